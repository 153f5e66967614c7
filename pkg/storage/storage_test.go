package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want Target
	}{
		{"", Target{Scheme: SchemeStdout}},
		{"-", Target{Scheme: SchemeStdout}},
		{"out/report.csv", Target{Scheme: SchemeFile, Path: "out/report.csv"}},
		{"file:///tmp/report.csv", Target{Scheme: SchemeFile, Path: "/tmp/report.csv"}},
		{"file://report.csv", Target{Scheme: SchemeFile, Path: "report.csv"}},
		{"s3://exports/gtm/report.csv", Target{Scheme: SchemeS3, Bucket: "exports", Path: "gtm/report.csv"}},
		{"gs://exports/report.csv", Target{Scheme: SchemeGCS, Bucket: "exports", Path: "report.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTarget(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTargetErrors(t *testing.T) {
	for _, raw := range []string{"s3://bucket-only", "gs:///object", "ftp://host/file", "file://"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTarget(raw)
			require.Error(t, err)
		})
	}

	_, err := ParseTarget("ftp://host/file")
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}

func TestTargetWithSuffix(t *testing.T) {
	target := Target{Scheme: SchemeS3, Bucket: "b", Path: "report.csv"}
	assert.Equal(t, "s3://b/report.csv.gz", target.WithSuffix(".gz").String())
	assert.Equal(t, "s3://b/report.csv", target.WithSuffix(".csv").String())
	assert.Equal(t, "-", Target{Scheme: SchemeStdout}.WithSuffix(".gz").String())
}

func TestStdoutDestination(t *testing.T) {
	var out bytes.Buffer
	dest, err := New(context.Background(), Target{Scheme: SchemeStdout}, Options{Stdout: &out})
	require.NoError(t, err)
	defer dest.Close()

	require.NoError(t, dest.Put(context.Background(), Object{Body: strings.NewReader("a,b\n")}))
	assert.Equal(t, "a,b\n", out.String())
	assert.Equal(t, "stdout", dest.Location())
}

func TestFileDestination(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "gtm_tags_export.csv")

	dest, err := New(context.Background(), Target{Scheme: SchemeFile, Path: path}, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	require.NoError(t, dest.Put(context.Background(), Object{Body: strings.NewReader("first")}))
	require.NoError(t, dest.Put(context.Background(), Object{Body: strings.NewReader("second")}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileDestinationFailedWriteKeepsOldReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	dest := &FileDestination{path: path, logger: zaptest.NewLogger(t)}
	err := dest.Put(context.Background(), Object{Body: io.MultiReader(strings.NewReader("partial"), failingReader{})})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := &FileDestination{path: filepath.Join(t.TempDir(), "x.csv"), logger: zaptest.NewLogger(t)}
	assert.ErrorIs(t, dest.Put(ctx, Object{Body: strings.NewReader("x")}), context.Canceled)
}

func TestS3DestinationUpload(t *testing.T) {
	var (
		mu      sync.Mutex
		method  string
		path    string
		ctype   string
		gotBody []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		path = r.URL.Path
		ctype = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("key", "secret", ""),
	}
	target := Target{Scheme: SchemeS3, Bucket: "exports", Path: "gtm/report.csv"}
	dest := NewS3DestinationFromConfig(cfg, target, Options{
		S3Endpoint:     server.URL,
		S3UsePathStyle: true,
		Logger:         zaptest.NewLogger(t),
	})
	assert.Equal(t, "s3://exports/gtm/report.csv", dest.Location())

	err := dest.Put(context.Background(), Object{
		Body:        strings.NewReader("Tag Name,Type\n"),
		ContentType: "text/csv",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/exports/gtm/report.csv", path)
	assert.Equal(t, "text/csv", ctype)
	assert.Contains(t, string(gotBody), "Tag Name,Type")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
