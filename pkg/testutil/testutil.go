// Package testutil provides testing utilities for gtminspect
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// SampleExport is a small container export: one tag with a resolvable
// trigger and conversion parameters, and one paused tag whose only trigger
// id resolves to nothing.
const SampleExport = `{"containerVersion": {
  "tag": [
    {"name": "GA4 Purchase", "type": "gaawe", "firingTriggerId": ["t1"],
     "parameter": [{"key": "eventName", "value": "purchase"}, {"key": "conversionLabel", "value": "AW-1"}]},
    {"name": "Orphan", "type": "html", "paused": "true", "firingTriggerId": ["t99"]}
  ],
  "trigger": [
    {"triggerId": "t1", "name": "PageView", "type": "pageview",
     "filter": [{"type": "EQUALS", "parameter": [{"key": "arg0", "value": "{{Page}}"}, {"key": "arg1", "value": "/home"}]}]}
  ]
}}`

// SampleTriggers is the Triggers cell of the first SampleExport row.
const SampleTriggers = "Name: PageView | Type: pageview | Filter: ['{{Page}} equals '/home'']"

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a context with a 30-second timeout, canceled when the
// test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
