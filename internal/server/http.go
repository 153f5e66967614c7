// Package server exposes inspections over HTTP.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ajitpratap0/gtminspect/internal/inspector"
	"github.com/ajitpratap0/gtminspect/pkg/compression"
	"github.com/ajitpratap0/gtminspect/pkg/errors"
	"github.com/ajitpratap0/gtminspect/pkg/flatten"
	"github.com/ajitpratap0/gtminspect/pkg/gtm"
	"github.com/ajitpratap0/gtminspect/pkg/logger"
	"github.com/ajitpratap0/gtminspect/pkg/observability"
	"github.com/ajitpratap0/gtminspect/pkg/report"
)

// multipartOverhead is allowed on top of the document limit for form
// boundaries and part headers.
const multipartOverhead = 64 << 10

// Options configures the HTTP API.
type Options struct {
	// Parse is applied to every uploaded document. A "strict" query
	// parameter overrides Parse.Strict per request.
	Parse      gtm.ParseOptions
	CORSOrigin string
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// HTTPServer serves the inspection API.
type HTTPServer struct {
	service *inspector.Service
	opts    Options
	logger  *zap.Logger
	metrics http.Handler
}

// NewHTTPServer creates the API around service.
func NewHTTPServer(service *inspector.Service, opts Options, log *zap.Logger) *HTTPServer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	s := &HTTPServer{
		service: service,
		opts:    opts,
		logger:  log.With(zap.String("component", "http")),
	}
	if opts.Gatherer != nil {
		s.metrics = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
	}
	return s
}

// Handler returns the root handler with request-id, CORS, access-log and
// tracing middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return observability.TracingMiddleware("gtminspect")(s.withMiddleware(http.HandlerFunc(s.handle)))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch r.URL.Path {
	case "/api/health":
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "/api/columns":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"columns": flatten.Columns})
	case "/api/inspect":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.handleInspect(w, r)
	case "/metrics":
		if s.metrics == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Metrics are disabled")
			return
		}
		s.metrics.ServeHTTP(w, r)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	}
}

func (s *HTTPServer) handleInspect(w http.ResponseWriter, r *http.Request) {
	opts := s.opts.Parse
	if v := r.URL.Query().Get("strict"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", fmt.Sprintf("strict must be a boolean, got %q", v))
			return
		}
		opts.Strict = strict
	}

	format, ok := responseFormat(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT",
			fmt.Sprintf("format must be one of %v", report.Formats()))
		return
	}

	if opts.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBytes+multipartOverhead)
	}

	body, name, err := documentBody(r)
	if err != nil {
		s.writeInspectError(w, err)
		return
	}
	ctx := r.Context()
	if name != "" {
		ctx = logger.ContextWithDocument(ctx, name)
	}

	rep, err := s.service.Inspect(ctx, body, opts)
	if err != nil {
		s.writeInspectError(w, err)
		return
	}

	if format == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"rows":    nonNil(rep.Rows),
			"count":   len(rep.Rows),
			"columns": flatten.Columns,
		})
		return
	}

	writer, err := report.NewWriter(format)
	if err != nil {
		s.writeInspectError(w, err)
		return
	}
	w.Header().Set("Content-Type", writer.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", report.DefaultBaseName+writer.Extension()))
	w.WriteHeader(http.StatusOK)
	if err := inspector.Encode(w, rep.Rows, format, compression.None, compression.Default); err != nil {
		// Headers are already sent; the truncated body is all we can do.
		s.logger.Error("failed to stream report", zap.Error(err))
	}
}

// responseFormat picks the attachment format. An empty result means the
// JSON envelope.
func responseFormat(r *http.Request) (report.Format, bool) {
	if q := strings.ToLower(r.URL.Query().Get("format")); q != "" {
		if q == "json" {
			return "", true
		}
		return report.Format(q), report.IsSupported(report.Format(q))
	}
	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		return report.FormatCSV, true
	}
	return "", true
}

// documentBody returns the uploaded document: the "file" field of a
// multipart form, or the raw request body otherwise.
func documentBody(r *http.Request) (io.Reader, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, "", nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrorTypeValidation, "invalid multipart body")
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, "", errors.New(errors.ErrorTypeValidation, `multipart field "file" is required`)
		}
		if err != nil {
			return nil, "", errors.Wrap(err, errors.ErrorTypeValidation, "invalid multipart body")
		}
		if part.FormName() == "file" {
			return part, part.FileName(), nil
		}
	}
}

func (s *HTTPServer) writeInspectError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, gtm.ErrDocumentTooLarge), errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE", "Document is too large")
	case errors.Is(err, gtm.ErrMalformedDocument):
		writeError(w, http.StatusBadRequest, "MALFORMED_DOCUMENT", err.Error())
	case errors.IsType(err, errors.ErrorTypeValidation):
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
	case errors.IsType(err, errors.ErrorTypeCapability):
		writeError(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
	default:
		s.logger.Error("inspection failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Inspection failed")
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		r = r.WithContext(logger.ContextWithRequestID(r.Context(), requestID))

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.opts.CORSOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Duration("duration", time.Since(started)))
	})
}

// Serve runs an http.Server on addr until ctx is canceled, then shuts it
// down within shutdownTimeout.
func (s *HTTPServer) Serve(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gtminspect API listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "shutdown failed")
	}
	s.logger.Info("gtminspect API stopped")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func nonNil(rows []flatten.FlatRow) []flatten.FlatRow {
	if rows == nil {
		return []flatten.FlatRow{}
	}
	return rows
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
