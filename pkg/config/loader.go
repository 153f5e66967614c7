package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. GTMINSPECT_LOG_LEVEL.
const EnvPrefix = "GTMINSPECT"

// NewViper returns a viper instance carrying the built-in defaults and the
// GTMINSPECT_ environment bindings. Callers may bind flags on top before
// calling ReadFile and Decode.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a YAML file into v. ${VAR_NAME} references in the file are
// replaced with environment values before parsing. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
			WithDetail("path", path)
	}

	v.SetConfigType("yaml")
	if err := v.MergeConfig(bytes.NewReader([]byte(substituteEnvVars(string(data))))); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML").
			WithDetail("path", path)
	}
	return nil
}

// Decode unmarshals the merged settings of v into a Config.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	return cfg, nil
}

// Load reads defaults, the optional YAML file and environment overrides.
func Load(path string) (*Config, error) {
	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Save writes cfg to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("failed to write config file %s", path))
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("inspect.strict", d.Inspect.Strict)
	v.SetDefault("inspect.format", d.Inspect.Format)
	v.SetDefault("inspect.compression", d.Inspect.Compression)
	v.SetDefault("inspect.output", d.Inspect.Output)
	v.SetDefault("inspect.max_document_bytes", d.Inspect.MaxDocumentBytes)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origin", d.Server.CORSOrigin)

	v.SetDefault("storage.s3_region", d.Storage.S3Region)
	v.SetDefault("storage.s3_endpoint", d.Storage.S3Endpoint)
	v.SetDefault("storage.s3_use_path_style", d.Storage.S3UsePathStyle)
	v.SetDefault("storage.gcs_credentials_file", d.Storage.GCSCredentialsFile)
	v.SetDefault("storage.gcs_endpoint", d.Storage.GCSEndpoint)

	v.SetDefault("observability.enable_metrics", d.Observability.EnableMetrics)
	v.SetDefault("observability.enable_tracing", d.Observability.EnableTracing)
	v.SetDefault("observability.tracing_sample_rate", d.Observability.TracingSampleRate)
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables become empty strings.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
