// Package storage delivers finished reports to their destination: a local
// file, stdout, an S3 bucket or a GCS bucket.
//
// Targets are URLs:
//
//	-                        stdout
//	report.csv               local file (relative or absolute)
//	file:///tmp/report.csv   local file
//	s3://bucket/key.csv      Amazon S3 (or any S3-compatible endpoint)
//	gs://bucket/object.csv   Google Cloud Storage
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

// Scheme identifies a destination kind.
type Scheme string

const (
	// SchemeStdout writes to the process stdout
	SchemeStdout Scheme = "stdout"
	// SchemeFile writes to the local filesystem
	SchemeFile Scheme = "file"
	// SchemeS3 uploads to Amazon S3
	SchemeS3 Scheme = "s3"
	// SchemeGCS uploads to Google Cloud Storage
	SchemeGCS Scheme = "gs"
)

// Object is a finished report ready for delivery.
type Object struct {
	Body            io.Reader
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
}

// Destination receives one report.
type Destination interface {
	// Put writes the object. It consumes Body but does not close it.
	Put(ctx context.Context, obj Object) error
	// Location describes where the object goes, for logs and summaries.
	Location() string
	// Close releases clients held by the destination.
	Close() error
}

// Target is a parsed destination URL.
type Target struct {
	Scheme Scheme
	// Bucket is set for s3 and gs targets.
	Bucket string
	// Path is the object key for buckets and the file path for files.
	Path string
}

// String renders the target in URL form.
func (t Target) String() string {
	switch t.Scheme {
	case SchemeStdout:
		return "-"
	case SchemeFile:
		return t.Path
	default:
		return string(t.Scheme) + "://" + t.Bucket + "/" + t.Path
	}
}

// WithSuffix returns the target with suffix appended to its path unless the
// path already ends with it. Stdout targets are returned unchanged.
func (t Target) WithSuffix(suffix string) Target {
	if t.Scheme == SchemeStdout || suffix == "" || strings.HasSuffix(t.Path, suffix) {
		return t
	}
	t.Path += suffix
	return t
}

// ParseTarget parses a destination URL.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return Target{Scheme: SchemeStdout}, nil
	}

	if !strings.Contains(raw, "://") {
		return Target{Scheme: SchemeFile, Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("invalid destination %q", raw))
	}

	switch Scheme(strings.ToLower(u.Scheme)) {
	case SchemeFile:
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return Target{}, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("destination %q has no path", raw))
		}
		return Target{Scheme: SchemeFile, Path: path}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Target{}, errors.New(errors.ErrorTypeConfig,
				fmt.Sprintf("destination %q must name a bucket and an object", raw))
		}
		return Target{Scheme: Scheme(strings.ToLower(u.Scheme)), Bucket: u.Host, Path: key}, nil
	default:
		return Target{}, errors.New(errors.ErrorTypeCapability,
			fmt.Sprintf("unsupported destination scheme %q", u.Scheme))
	}
}

// Options configures destination clients.
type Options struct {
	// Stdout replaces os.Stdout for "-" targets.
	Stdout io.Writer

	S3Region       string
	S3Endpoint     string
	S3UsePathStyle bool
	S3PartSize     int64

	GCSCredentialsFile string
	GCSEndpoint        string

	Logger *zap.Logger
}

// New creates the destination for a parsed target.
func New(ctx context.Context, target Target, opts Options) (Destination, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	switch target.Scheme {
	case SchemeStdout:
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		return &WriterDestination{w: out, name: "stdout"}, nil
	case SchemeFile:
		return &FileDestination{path: target.Path, logger: opts.Logger}, nil
	case SchemeS3:
		return newS3Destination(ctx, target, opts)
	case SchemeGCS:
		return newGCSDestination(ctx, target, opts)
	default:
		return nil, errors.New(errors.ErrorTypeCapability, fmt.Sprintf("unsupported destination scheme %q", target.Scheme))
	}
}

// WriterDestination copies the report to an io.Writer.
type WriterDestination struct {
	w    io.Writer
	name string
}

// NewWriterDestination wraps w.
func NewWriterDestination(w io.Writer, name string) *WriterDestination {
	return &WriterDestination{w: w, name: name}
}

// Put implements Destination.
func (d *WriterDestination) Put(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.Copy(d.w, obj.Body); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to write to %s", d.name))
	}
	return nil
}

// Location implements Destination.
func (d *WriterDestination) Location() string { return d.name }

// Close implements Destination.
func (d *WriterDestination) Close() error { return nil }
