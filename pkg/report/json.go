package report

import (
	"bufio"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/gtminspect/pkg/flatten"
)

// JSONWriter writes the report as a single JSON array.
type JSONWriter struct {
	Indent bool
}

// Write encodes rows as a JSON array. An empty report is [].
func (j *JSONWriter) Write(w io.Writer, rows []flatten.FlatRow) error {
	if rows == nil {
		rows = []flatten.FlatRow{}
	}
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode json report: %w", err)
	}
	return nil
}

// ContentType implements Writer.
func (j *JSONWriter) ContentType() string { return "application/json" }

// Extension implements Writer.
func (j *JSONWriter) Extension() string { return ".json" }

// JSONLinesWriter writes one JSON object per row.
type JSONLinesWriter struct{}

// Write encodes each row on its own line.
func (j *JSONLinesWriter) Write(w io.Writer, rows []flatten.FlatRow) error {
	bw := bufio.NewWriter(w)
	enc := gojson.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush jsonl report: %w", err)
	}
	return nil
}

// ContentType implements Writer.
func (j *JSONLinesWriter) ContentType() string { return "application/x-ndjson" }

// Extension implements Writer.
func (j *JSONLinesWriter) Extension() string { return ".jsonl" }
