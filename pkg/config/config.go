package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/gtminspect/pkg/compression"
	"github.com/ajitpratap0/gtminspect/pkg/errors"
	"github.com/ajitpratap0/gtminspect/pkg/gtm"
	"github.com/ajitpratap0/gtminspect/pkg/report"
)

// Config is the complete gtminspect configuration.
type Config struct {
	// Log controls structured logging
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Inspect controls document parsing and report export
	Inspect InspectConfig `mapstructure:"inspect" yaml:"inspect"`

	// Server configures the HTTP API
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Storage configures object store clients
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Observability toggles metrics and tracing
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`
	// Encoding is json or console
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
	// Development enables colored levels and error stack traces
	Development bool `mapstructure:"development" yaml:"development"`
}

// InspectConfig contains the settings of one inspection.
type InspectConfig struct {
	// Strict rejects documents missing containerVersion, tag or trigger
	Strict bool `mapstructure:"strict" yaml:"strict"`
	// Format is the report format (csv, json, jsonl, avro)
	Format string `mapstructure:"format" yaml:"format"`
	// Compression is none, gzip, zstd, snappy, s2 or lz4
	Compression string `mapstructure:"compression" yaml:"compression"`
	// Output is the destination URL; "-" is stdout
	Output string `mapstructure:"output" yaml:"output"`
	// MaxDocumentBytes bounds uploads; negative disables the limit
	MaxDocumentBytes int64 `mapstructure:"max_document_bytes" yaml:"max_document_bytes"`
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin" yaml:"cors_origin"`
}

// StorageConfig contains object store client settings.
type StorageConfig struct {
	S3Region           string `mapstructure:"s3_region" yaml:"s3_region"`
	S3Endpoint         string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	S3UsePathStyle     bool   `mapstructure:"s3_use_path_style" yaml:"s3_use_path_style"`
	GCSCredentialsFile string `mapstructure:"gcs_credentials_file" yaml:"gcs_credentials_file"`
	GCSEndpoint        string `mapstructure:"gcs_endpoint" yaml:"gcs_endpoint"`
}

// ObservabilityConfig contains metrics and tracing settings.
type ObservabilityConfig struct {
	// EnableMetrics exposes /metrics on the HTTP API
	EnableMetrics bool `mapstructure:"enable_metrics" yaml:"enable_metrics"`
	// EnableTracing exports spans to stderr
	EnableTracing bool `mapstructure:"enable_tracing" yaml:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate" yaml:"tracing_sample_rate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Inspect: InspectConfig{
			Strict:           false,
			Format:           string(report.FormatCSV),
			Compression:      string(compression.None),
			Output:           report.DefaultBaseName + ".csv",
			MaxDocumentBytes: gtm.DefaultMaxDocumentBytes,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigin:      "*",
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			TracingSampleRate: 1.0,
		},
	}
}

// Validate checks values that the rest of the program trusts.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log.encoding %q must be json or console", c.Log.Encoding))
	}

	if !report.IsSupported(report.Format(c.Inspect.Format)) {
		problems = append(problems, fmt.Sprintf("inspect.format %q is not one of %v", c.Inspect.Format, report.Formats()))
	}
	if _, err := compression.Parse(c.Inspect.Compression); err != nil {
		problems = append(problems, fmt.Sprintf("inspect.compression %q is not one of %v", c.Inspect.Compression, compression.Algorithms()))
	}
	if c.Inspect.MaxDocumentBytes == 0 {
		problems = append(problems, "inspect.max_document_bytes must not be zero")
	}

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		problems = append(problems, "server timeouts must not be negative")
	}

	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		problems = append(problems, fmt.Sprintf("observability.tracing_sample_rate %v must be within [0, 1]", r))
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrorTypeConfig, "invalid configuration: "+strings.Join(problems, "; ")).
			WithDetail("problems", problems)
	}
	return nil
}

// ParseOptions returns the document parsing options implied by the config.
func (c *Config) ParseOptions() gtm.ParseOptions {
	return gtm.ParseOptions{
		Strict:   c.Inspect.Strict,
		MaxBytes: c.Inspect.MaxDocumentBytes,
	}
}
