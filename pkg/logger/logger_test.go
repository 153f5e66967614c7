package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestInitReplacesGlobal(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug", Encoding: "console"}))
	first := Get()

	require.NoError(t, Init(Config{Level: "error", Encoding: "json"}))
	second := Get()

	assert.NotSame(t, first, second)
	assert.False(t, second.Core().Enabled(zapcore.DebugLevel))
}

func TestWithContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, DocumentKey, "container.json")

	assert.NotNil(t, WithContext(ctx))
}

func TestFromContextAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithDocument(ContextWithRequestID(context.Background(), "req-7"), "export.json")

	FromContext(ctx, zap.New(core)).Info("inspected")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "export.json", fields["document"])
}
