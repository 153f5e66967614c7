package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "verbose"
	cfg.Inspect.Format = "xlsx"
	cfg.Inspect.Compression = "brotli"
	cfg.Observability.TracingSampleRate = 2

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "inspect.format")
	assert.Contains(t, err.Error(), "inspect.compression")
	assert.Contains(t, err.Error(), "tracing_sample_rate")
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileWithEnvSubstitution(t *testing.T) {
	t.Setenv("GTM_TEST_REGION", "eu-west-1")

	path := filepath.Join(t.TempDir(), "gtminspect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
inspect:
  strict: true
  format: json
server:
  read_timeout: 5s
storage:
  s3_region: ${GTM_TEST_REGION}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding, "unset keys keep defaults")
	assert.True(t, cfg.Inspect.Strict)
	assert.Equal(t, "json", cfg.Inspect.Format)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "eu-west-1", cfg.Storage.S3Region)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtminspect.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o644))
	t.Setenv("GTMINSPECT_SERVER_ADDR", ":9100")
	t.Setenv("GTMINSPECT_INSPECT_STRICT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.True(t, cfg.Inspect.Strict)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSaveThenLoad(t *testing.T) {
	cfg := Default()
	cfg.Inspect.Compression = "zstd"
	cfg.Server.WriteTimeout = 90 * time.Second

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("GTM_A", "alpha")

	assert.Equal(t, "x alpha y", substituteEnvVars("x ${GTM_A} y"))
	assert.Equal(t, "alpha-", substituteEnvVars("${GTM_A}-${GTM_UNSET_VAR}"))
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace"))
}
