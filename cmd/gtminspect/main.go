package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/gtminspect/pkg/config"
	"github.com/ajitpratap0/gtminspect/pkg/flatten"
	"github.com/ajitpratap0/gtminspect/pkg/logger"
	"github.com/ajitpratap0/gtminspect/pkg/observability"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "gtminspect",
		Short: "gtminspect - flatten Google Tag Manager container exports",
		Long: `gtminspect reads a Google Tag Manager container export and produces one
row per tag, with its firing triggers and parameters resolved inline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gtminspect v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "columns",
		Short: "Print the report column order",
		Run: func(cmd *cobra.Command, args []string) {
			for _, c := range flatten.Columns {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
		},
	})

	root.AddCommand(newInspectCmd())
	root.AddCommand(newServeCmd())
	return root
}

// loadConfig layers defaults, the --config file, GTMINSPECT_ env and the
// explicitly set flags named in bindings (viper key -> flag name).
func loadConfig(flags *pflag.FlagSet, path string, bindings map[string]string) (*config.Config, error) {
	v := config.NewViper()
	if err := bindFlags(v, flags, bindings); err != nil {
		return nil, err
	}
	if err := config.ReadFile(v, path); err != nil {
		return nil, err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setup initializes the global logger and tracing from cfg. The returned
// function flushes both.
func setup(cfg *config.Config) (func(), error) {
	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Development: cfg.Log.Development,
	}); err != nil {
		return nil, err
	}

	tracing := observability.DefaultTracingConfig()
	tracing.ServiceVersion = version
	tracing.Enabled = cfg.Observability.EnableTracing
	tracing.SamplingRate = cfg.Observability.TracingSampleRate
	if err := observability.Init(tracing); err != nil {
		return nil, err
	}

	return func() {
		_ = observability.Shutdown(context.Background())
		_ = logger.Sync()
	}, nil
}
