package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/gtminspect/internal/inspector"
	"github.com/ajitpratap0/gtminspect/pkg/compression"
	"github.com/ajitpratap0/gtminspect/pkg/config"
	"github.com/ajitpratap0/gtminspect/pkg/errors"
	"github.com/ajitpratap0/gtminspect/pkg/logger"
	"github.com/ajitpratap0/gtminspect/pkg/metrics"
	"github.com/ajitpratap0/gtminspect/pkg/report"
	"github.com/ajitpratap0/gtminspect/pkg/storage"
)

func newInspectCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "inspect <file|->",
		Short: "Flatten a container export into a tag report",
		Long: `Flatten a Google Tag Manager container export into one row per tag.

The report goes to --output: a local path, file://path, s3://bucket/key,
gs://bucket/object, or "-" for stdout. Use "-" as the input to read stdin.

Example:
  gtminspect inspect container.json
  gtminspect inspect --format jsonl --compression zstd --output s3://exports/tags.jsonl container.json
  cat container.json | gtminspect inspect --output - -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), configFile, map[string]string{
				"inspect.format":      "format",
				"inspect.output":      "output",
				"inspect.compression": "compression",
				"inspect.strict":      "strict",
				"log.level":           "log-level",
			})
			if err != nil {
				return err
			}
			done, err := setup(cfg)
			if err != nil {
				return err
			}
			defer done()

			return runInspect(cmd, args[0], cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	cmd.Flags().String("format", "csv", fmt.Sprintf("Report format %v", report.Formats()))
	cmd.Flags().StringP("output", "o", report.DefaultBaseName+".csv", `Report destination; "-" writes to stdout`)
	cmd.Flags().String("compression", "none", fmt.Sprintf("Report compression %v", compression.Algorithms()))
	cmd.Flags().Bool("strict", false, "Reject exports missing containerVersion, tag or trigger")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	return cmd
}

func runInspect(cmd *cobra.Command, input string, cfg *config.Config) error {
	ctx := cmd.Context()

	var src io.Reader
	if input == "-" {
		src = cmd.InOrStdin()
	} else {
		f, err := os.Open(input) //nolint:gosec // path comes from the operator
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to open %s", input))
		}
		defer f.Close()
		src = f
		ctx = logger.ContextWithDocument(ctx, input)
	}

	svc := inspector.NewService(logger.Get(), metrics.Default(), storageOptions(cfg, cmd.OutOrStdout()))

	rep, err := svc.Inspect(ctx, src, cfg.ParseOptions())
	if err != nil {
		return err
	}

	format := report.Format(strings.ToLower(cfg.Inspect.Format))
	alg, err := compression.Parse(cfg.Inspect.Compression)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid compression")
	}
	target, err := storage.ParseTarget(outputFor(cfg.Inspect.Output, format))
	if err != nil {
		return err
	}

	location, err := svc.Export(ctx, rep, inspector.ExportOptions{
		Format:      format,
		Compression: alg,
		Level:       compression.Default,
		Target:      target,
	})
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "%d rows produced\n", len(rep.Rows))
	if target.Scheme != storage.SchemeStdout {
		fmt.Fprintf(stderr, "report written to %s\n", location)
	}
	return nil
}

// outputFor swaps the default CSV file name for one matching format.
func outputFor(output string, format report.Format) string {
	if output != report.DefaultBaseName+".csv" || format == report.FormatCSV {
		return output
	}
	w, err := report.NewWriter(format)
	if err != nil {
		return output
	}
	return report.DefaultBaseName + w.Extension()
}

func storageOptions(cfg *config.Config, stdout io.Writer) storage.Options {
	return storage.Options{
		Stdout:             stdout,
		S3Region:           cfg.Storage.S3Region,
		S3Endpoint:         cfg.Storage.S3Endpoint,
		S3UsePathStyle:     cfg.Storage.S3UsePathStyle,
		GCSCredentialsFile: cfg.Storage.GCSCredentialsFile,
		GCSEndpoint:        cfg.Storage.GCSEndpoint,
		Logger:             logger.Get(),
	}
}
