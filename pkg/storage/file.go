package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

// FileDestination writes the report to a local file. The file is written to
// a temporary sibling first and renamed into place, so a failed export never
// leaves a truncated report behind.
type FileDestination struct {
	path   string
	logger *zap.Logger
}

// Put implements Destination.
func (d *FileDestination) Put(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to create directory %s", dir))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	n, err := io.Copy(tmp, obj.Body)
	if err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to write %s", d.path))
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to close %s", d.path))
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to set permissions on %s", d.path))
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to move report into %s", d.path))
	}

	d.logger.Debug("report written", zap.String("path", d.path), zap.Int64("bytes", n))
	return nil
}

// Location implements Destination.
func (d *FileDestination) Location() string { return d.path }

// Close implements Destination.
func (d *FileDestination) Close() error { return nil }
