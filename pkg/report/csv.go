package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ajitpratap0/gtminspect/pkg/flatten"
)

// CSVWriter writes a header row followed by one record per row. Fields with
// embedded newlines, quotes or commas are quoted.
type CSVWriter struct {
	// UseCRLF ends records with \r\n instead of \n.
	UseCRLF bool
}

// Write encodes rows as CSV.
func (c *CSVWriter) Write(w io.Writer, rows []flatten.FlatRow) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = c.UseCRLF

	if err := cw.Write(flatten.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ContentType implements Writer.
func (c *CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }

// Extension implements Writer.
func (c *CSVWriter) Extension() string { return ".csv" }

// ReadCSV parses a CSV export back into rows. The header must match
// flatten.Columns.
func ReadCSV(r io.Reader) ([]flatten.FlatRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(flatten.Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range flatten.Columns {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], name)
		}
	}

	var rows []flatten.FlatRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows), err)
		}
		row, err := flatten.RowFromValues(record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
