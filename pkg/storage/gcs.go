package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

// GCSDestination uploads the report to a Cloud Storage bucket.
type GCSDestination struct {
	bucket string
	object string
	client *gcs.Client
	logger *zap.Logger
}

func newGCSDestination(ctx context.Context, target Target, opts Options) (*GCSDestination, error) {
	var clientOpts []option.ClientOption
	if opts.GCSCredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.GCSCredentialsFile))
	}
	if opts.GCSEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.GCSEndpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}

	return &GCSDestination{
		bucket: target.Bucket,
		object: target.Path,
		client: client,
		logger: opts.Logger.With(zap.String("component", "gcs_destination")),
	}, nil
}

// Put implements Destination.
func (d *GCSDestination) Put(ctx context.Context, obj Object) error {
	start := time.Now()

	writer := d.client.Bucket(d.bucket).Object(d.object).NewWriter(ctx)
	writer.ContentType = obj.ContentType
	writer.ContentEncoding = obj.ContentEncoding
	writer.Metadata = obj.Metadata

	n, err := io.Copy(writer, obj.Body)
	if err != nil {
		_ = writer.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to write to %s", d.Location()))
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to finalize %s", d.Location()))
	}

	d.logger.Info("report uploaded to GCS",
		zap.String("bucket", d.bucket),
		zap.String("object", d.object),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Location implements Destination.
func (d *GCSDestination) Location() string { return "gs://" + d.bucket + "/" + d.object }

// Close implements Destination.
func (d *GCSDestination) Close() error { return d.client.Close() }
