// Package report serializes flattened rows into tabular export formats.
//
// Every format writes the columns of flatten.Columns in order. CSV is the
// primary export; JSON, JSON Lines and Avro object container files are
// offered for downstream tooling.
//
// # Basic Usage
//
//	w, err := report.NewWriter(report.FormatCSV)
//	if err != nil {
//	    return err
//	}
//	err = w.Write(out, rows)
package report

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
	"github.com/ajitpratap0/gtminspect/pkg/flatten"
)

// Format names an export format.
type Format string

const (
	// FormatCSV is UTF-8, comma-delimited CSV with a header row
	FormatCSV Format = "csv"
	// FormatJSON is a JSON array of objects keyed by column name
	FormatJSON Format = "json"
	// FormatJSONL is one JSON object per line
	FormatJSONL Format = "jsonl"
	// FormatAvro is an Avro object container file
	FormatAvro Format = "avro"
)

// DefaultBaseName is the file name used for exports without an explicit one.
const DefaultBaseName = "gtm_tags_export"

// Writer serializes a complete report.
type Writer interface {
	// Write encodes rows to w. It does not close w.
	Write(w io.Writer, rows []flatten.FlatRow) error
	// ContentType is the MIME type of the encoded report.
	ContentType() string
	// Extension is the file extension including the leading dot.
	Extension() string
}

// Factory creates a Writer.
type Factory func() Writer

var (
	mu        sync.RWMutex
	factories = map[Format]Factory{}
)

func init() {
	_ = Register(FormatCSV, func() Writer { return &CSVWriter{} })
	_ = Register(FormatJSON, func() Writer { return &JSONWriter{Indent: true} })
	_ = Register(FormatJSONL, func() Writer { return &JSONLinesWriter{} })
	_ = Register(FormatAvro, func() Writer { return &AvroWriter{} })
}

// Register adds a format. Registering a name twice is an error.
func Register(format Format, factory Factory) error {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[format]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "report format %s already registered", format)
	}
	factories[format] = factory
	return nil
}

// NewWriter creates a writer for the named format.
func NewWriter(format Format) (Writer, error) {
	mu.RLock()
	factory, ok := factories[Format(strings.ToLower(string(format)))]
	mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrorTypeCapability, "unsupported report format %q", format).
			WithDetail("supported", Formats())
	}
	return factory(), nil
}

// Formats lists the registered formats, sorted.
func Formats() []Format {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]Format, 0, len(factories))
	for f := range factories {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSupported reports whether format is registered.
func IsSupported(format Format) bool {
	_, err := NewWriter(format)
	return err == nil
}
