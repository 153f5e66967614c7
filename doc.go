// Package gtminspect flattens Google Tag Manager container exports into a
// tag report: one row per tag, with its firing triggers and parameters
// resolved inline.
//
// # Architecture
//
// An inspection runs in three steps:
//
//  1. pkg/gtm decodes the export into a Workspace. Optional fields are typed
//     and defaulted once here; strict mode rejects exports missing
//     containerVersion, its tag list or its trigger list.
//  2. pkg/flatten resolves each tag's firing trigger ids against an
//     immutable trigger index and renders filters, triggers and parameters
//     into a FlatRow. Unresolved ids and filters missing an operand never
//     fail the inspection.
//  3. pkg/report encodes the rows (CSV, JSON, JSON lines or Avro),
//     pkg/compression optionally compresses them, and pkg/storage delivers
//     the result to stdout, a local file, S3 or Cloud Storage.
//
// internal/inspector ties the steps together with logging, Prometheus
// metrics and OpenTelemetry spans. cmd/gtminspect exposes it as a CLI and
// internal/server as an HTTP API.
//
// # Quick Start
//
//	gtminspect inspect container.json
//	gtminspect inspect --format avro --output s3://exports/gtm/tags.avro container.json
//	gtminspect serve --addr :8080
//
//	curl -F file=@container.json 'localhost:8080/api/inspect?format=csv'
//
// # Configuration
//
// Settings come from defaults, an optional YAML file (--config), GTMINSPECT_
// environment variables and command-line flags, in increasing precedence.
// See pkg/config.
package gtminspect
