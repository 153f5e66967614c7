package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

// S3Destination uploads the report to an S3 bucket.
type S3Destination struct {
	bucket   string
	key      string
	client   *s3.Client
	uploader *manager.Uploader
	logger   *zap.Logger
}

func newS3Destination(ctx context.Context, target Target, opts Options) (*S3Destination, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.S3Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	return NewS3DestinationFromConfig(cfg, target, opts), nil
}

// NewS3DestinationFromConfig builds an S3 destination from a loaded AWS config.
func NewS3DestinationFromConfig(cfg aws.Config, target Target, opts Options) *S3Destination {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.S3Endpoint)
		}
		o.UsePathStyle = opts.S3UsePathStyle
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if opts.S3PartSize > 0 {
			u.PartSize = opts.S3PartSize
		}
	})

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &S3Destination{
		bucket:   target.Bucket,
		key:      target.Path,
		client:   client,
		uploader: uploader,
		logger:   logger.With(zap.String("component", "s3_destination")),
	}
}

// Put implements Destination.
func (d *S3Destination) Put(ctx context.Context, obj Object) error {
	start := time.Now()

	input := &s3.PutObjectInput{
		Bucket:   aws.String(d.bucket),
		Key:      aws.String(d.key),
		Body:     obj.Body,
		Metadata: obj.Metadata,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.ContentEncoding != "" {
		input.ContentEncoding = aws.String(obj.ContentEncoding)
	}

	if _, err := d.uploader.Upload(ctx, input); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to upload to %s", d.Location())).
			WithDetail("bucket", d.bucket).
			WithDetail("key", d.key)
	}

	d.logger.Info("report uploaded to S3",
		zap.String("bucket", d.bucket),
		zap.String("key", d.key),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Location implements Destination.
func (d *S3Destination) Location() string { return "s3://" + d.bucket + "/" + d.key }

// Close implements Destination.
func (d *S3Destination) Close() error { return nil }
