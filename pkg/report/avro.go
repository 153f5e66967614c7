package report

import (
	"fmt"
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/gtminspect/pkg/flatten"
)

// Avro field names must be identifiers, so each column maps to a snake_case
// field. The column name is kept in the field doc.
var avroFields = []struct {
	name, column, typ string
}{
	{"tag_name", flatten.ColTagName, "string"},
	{"type", flatten.ColType, "string"},
	{"tag_paused", flatten.ColTagPaused, "boolean"},
	{"triggers", flatten.ColTriggers, "string"},
	{"trigger_name", flatten.ColTriggerName, "string"},
	{"trigger_type", flatten.ColTriggerType, "string"},
	{"parameters", flatten.ColParameters, "string"},
	{"parameters_conversion_label", flatten.ColConversionLabel, "string"},
	{"parameters_event_name", flatten.ColEventName, "string"},
}

// AvroSchema returns the record schema used by AvroWriter.
func AvroSchema() string {
	schema := `{"type":"record","name":"FlatRow","namespace":"gtminspect","fields":[`
	for i, f := range avroFields {
		if i > 0 {
			schema += ","
		}
		schema += fmt.Sprintf(`{"name":%q,"type":%q,"doc":%q}`, f.name, f.typ, f.column)
	}
	return schema + "]}"
}

// AvroWriter writes an Avro object container file.
type AvroWriter struct {
	// Compression is an OCF block codec: null, deflate or snappy.
	Compression string
}

// Write encodes rows into a single OCF stream.
func (a *AvroWriter) Write(w io.Writer, rows []flatten.FlatRow) error {
	codec, err := goavro.NewCodec(AvroSchema())
	if err != nil {
		return fmt.Errorf("failed to create Avro codec: %w", err)
	}

	compression := a.Compression
	if compression == "" {
		compression = goavro.CompressionNullLabel
	}

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return fmt.Errorf("failed to create Avro writer: %w", err)
	}

	if len(rows) == 0 {
		return nil
	}

	records := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		records = append(records, avroRecord(row))
	}
	if err := ocf.Append(records); err != nil {
		return fmt.Errorf("failed to append Avro records: %w", err)
	}
	return nil
}

// ContentType implements Writer.
func (a *AvroWriter) ContentType() string { return "application/avro" }

// Extension implements Writer.
func (a *AvroWriter) Extension() string { return ".avro" }

func avroRecord(row flatten.FlatRow) map[string]interface{} {
	byColumn := row.Map()
	rec := make(map[string]interface{}, len(avroFields))
	for _, f := range avroFields {
		rec[f.name] = byColumn[f.column]
	}
	return rec
}

// ReadAvro decodes an OCF stream written by AvroWriter.
func ReadAvro(r io.Reader) ([]flatten.FlatRow, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Avro reader: %w", err)
	}

	var rows []flatten.FlatRow
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read Avro record: %w", err)
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected Avro datum %T", datum)
		}
		rows = append(rows, flatten.FlatRow{
			TagName:         asString(rec["tag_name"]),
			Type:            asString(rec["type"]),
			TagPaused:       rec["tag_paused"] == true,
			Triggers:        asString(rec["triggers"]),
			TriggerName:     asString(rec["trigger_name"]),
			TriggerType:     asString(rec["trigger_type"]),
			Parameters:      asString(rec["parameters"]),
			ConversionLabel: asString(rec["parameters_conversion_label"]),
			EventName:       asString(rec["parameters_event_name"]),
		})
	}
	if err := ocf.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan Avro stream: %w", err)
	}
	return rows, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
