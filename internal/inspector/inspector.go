// Package inspector runs one inspection of a container export: read, parse,
// flatten, and optionally export the resulting report. It is shared by the
// CLI and the HTTP API.
//
// # Basic Usage
//
//	svc := inspector.NewService(logger, metrics.Default(), storage.Options{})
//
//	rep, err := svc.Inspect(ctx, file, gtm.ParseOptions{})
//	if err != nil {
//	    return err
//	}
//
//	loc, err := svc.Export(ctx, rep, inspector.ExportOptions{
//	    Format: report.FormatCSV,
//	    Target: storage.Target{Scheme: storage.SchemeFile, Path: "gtm_tags_export.csv"},
//	})
package inspector

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/gtminspect/pkg/compression"
	"github.com/ajitpratap0/gtminspect/pkg/errors"
	"github.com/ajitpratap0/gtminspect/pkg/flatten"
	"github.com/ajitpratap0/gtminspect/pkg/gtm"
	"github.com/ajitpratap0/gtminspect/pkg/logger"
	"github.com/ajitpratap0/gtminspect/pkg/metrics"
	"github.com/ajitpratap0/gtminspect/pkg/observability"
	"github.com/ajitpratap0/gtminspect/pkg/report"
	"github.com/ajitpratap0/gtminspect/pkg/storage"
)

// Report is the outcome of one inspection.
type Report struct {
	Rows     []flatten.FlatRow
	Stats    flatten.Stats
	Duration time.Duration
}

// ExportOptions selects how and where a report is written.
type ExportOptions struct {
	Format      report.Format
	Compression compression.Algorithm
	Level       compression.Level
	Target      storage.Target
}

// Opener creates the destination for a target. It exists so tests can
// substitute in-memory destinations for object stores.
type Opener func(ctx context.Context, target storage.Target, opts storage.Options) (storage.Destination, error)

// Service performs inspections. It holds no per-document state and is safe
// for concurrent use.
type Service struct {
	logger     *zap.Logger
	metrics    *metrics.Collector
	storageOpt storage.Options
	open       Opener
}

// NewService creates a service. A nil collector disables metrics.
func NewService(log *zap.Logger, collector *metrics.Collector, storageOpts storage.Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if storageOpts.Logger == nil {
		storageOpts.Logger = log
	}
	return &Service{
		logger:     log.With(zap.String("component", "inspector")),
		metrics:    collector,
		storageOpt: storageOpts,
		open:       storage.New,
	}
}

// WithOpener replaces how destinations are created.
func (s *Service) WithOpener(open Opener) *Service {
	s.open = open
	return s
}

// Inspect reads the document from r and flattens it. A malformed document
// yields an error wrapping gtm.ErrMalformedDocument and no partial report.
func (s *Service) Inspect(ctx context.Context, r io.Reader, opts gtm.ParseOptions) (rep *Report, err error) {
	ctx, span := observability.StartSpan(ctx, "inspector.inspect",
		attribute.Bool("strict", opts.Strict))
	defer func() { observability.EndSpan(span, err) }()

	timer := metrics.NewTimer("inspect")
	log := logger.FromContext(ctx, s.logger)

	ws, err := gtm.Decode(r, opts)
	if err != nil {
		s.metrics.ObserveInspection(resultOf(err), flatten.Stats{}, timer.Stop())
		log.Debug("document rejected", zap.Error(err))
		return nil, err
	}

	result := flatten.Run(ws)
	rep = &Report{
		Rows:     result.Rows,
		Stats:    result.Stats,
		Duration: timer.Stop(),
	}

	s.metrics.ObserveInspection(metrics.ResultOK, rep.Stats, rep.Duration)
	span.SetAttributes(
		attribute.Int("tags", rep.Stats.Tags),
		attribute.Int("triggers", rep.Stats.Triggers),
	)
	log.Info("document inspected",
		zap.Int("rows", len(rep.Rows)),
		zap.Int("tags", rep.Stats.Tags),
		zap.Int("triggers", rep.Stats.Triggers),
		zap.Duration("duration", rep.Duration))

	return rep, nil
}

// Encode writes the report rows to w in the given format, compressed with
// alg.
func Encode(w io.Writer, rows []flatten.FlatRow, format report.Format, alg compression.Algorithm, level compression.Level) error {
	writer, err := report.NewWriter(format)
	if err != nil {
		return err
	}

	cw, err := compression.NewWriter(w, alg, level)
	if err != nil {
		return err
	}
	if err := writer.Write(cw, rows); err != nil {
		_ = cw.Close()
		return errors.Wrap(err, errors.ErrorTypeData, fmt.Sprintf("failed to encode %s report", format))
	}
	if err := cw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to flush compressed report")
	}
	return nil
}

// Export encodes the report and delivers it to opts.Target. When
// compression is enabled its extension is appended to the target path. It
// returns the final location.
func (s *Service) Export(ctx context.Context, rep *Report, opts ExportOptions) (location string, err error) {
	format := report.Format(strings.ToLower(string(opts.Format)))
	if format == "" {
		format = report.FormatCSV
	}
	writer, err := report.NewWriter(format)
	if err != nil {
		return "", err
	}

	target := opts.Target.WithSuffix(compression.Extension(opts.Compression))

	ctx, span := observability.StartSpan(ctx, "inspector.export",
		attribute.String("format", string(format)),
		attribute.String("compression", string(opts.Compression)),
		attribute.String("scheme", string(target.Scheme)))
	timer := metrics.NewTimer("export")
	defer func() {
		s.metrics.ObserveExport(string(format), string(target.Scheme), err, timer.Stop())
		observability.EndSpan(span, err)
	}()

	dest, err := s.open(ctx, target, s.storageOpt)
	if err != nil {
		return "", err
	}
	defer dest.Close()

	pr, pw := io.Pipe()
	encoded := make(chan error, 1)
	go func() {
		err := Encode(pw, rep.Rows, format, opts.Compression, opts.Level)
		pw.CloseWithError(err)
		encoded <- err
	}()

	putErr := dest.Put(ctx, storage.Object{
		Body:            pr,
		ContentType:     writer.ContentType(),
		ContentEncoding: compression.ContentEncoding(opts.Compression),
		Metadata: map[string]string{
			"rows":   fmt.Sprint(len(rep.Rows)),
			"format": string(format),
		},
	})
	// Unblocks the encoder if the destination stopped reading early.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	encErr := <-encoded

	// An encoder failure reaches Put through the pipe, so putErr already
	// carries it.
	if putErr != nil {
		return "", putErr
	}
	if encErr != nil {
		return "", encErr
	}

	s.logger.Info("report exported",
		zap.String("location", dest.Location()),
		zap.String("format", string(format)),
		zap.Int("rows", len(rep.Rows)))
	return dest.Location(), nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, gtm.ErrMalformedDocument):
		return metrics.ResultMalformed
	case errors.Is(err, gtm.ErrDocumentTooLarge):
		return metrics.ResultTooLarge
	default:
		return metrics.ResultError
	}
}
