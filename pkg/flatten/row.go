package flatten

import "strconv"

// Column names, in export order.
const (
	ColTagName         = "Tag Name"
	ColType            = "Type"
	ColTagPaused       = "Tag Paused"
	ColTriggers        = "Triggers"
	ColTriggerName     = "Trigger.Name"
	ColTriggerType     = "Trigger.Type"
	ColParameters      = "Parameters"
	ColConversionLabel = "Parameters.conversionLabel"
	ColEventName       = "Parameters.eventName"
)

// Columns is the fixed column order of every report.
var Columns = []string{
	ColTagName,
	ColType,
	ColTagPaused,
	ColTriggers,
	ColTriggerName,
	ColTriggerType,
	ColParameters,
	ColConversionLabel,
	ColEventName,
}

// FlatRow is the denormalized record produced for one tag.
type FlatRow struct {
	TagName         string `json:"Tag Name"`
	Type            string `json:"Type"`
	TagPaused       bool   `json:"Tag Paused"`
	Triggers        string `json:"Triggers"`
	TriggerName     string `json:"Trigger.Name"`
	TriggerType     string `json:"Trigger.Type"`
	Parameters      string `json:"Parameters"`
	ConversionLabel string `json:"Parameters.conversionLabel"`
	EventName       string `json:"Parameters.eventName"`
}

// Values returns the row as strings in Columns order.
func (r FlatRow) Values() []string {
	return []string{
		r.TagName,
		r.Type,
		strconv.FormatBool(r.TagPaused),
		r.Triggers,
		r.TriggerName,
		r.TriggerType,
		r.Parameters,
		r.ConversionLabel,
		r.EventName,
	}
}

// Map returns the row keyed by column name, keeping TagPaused a bool.
func (r FlatRow) Map() map[string]interface{} {
	return map[string]interface{}{
		ColTagName:         r.TagName,
		ColType:            r.Type,
		ColTagPaused:       r.TagPaused,
		ColTriggers:        r.Triggers,
		ColTriggerName:     r.TriggerName,
		ColTriggerType:     r.TriggerType,
		ColParameters:      r.Parameters,
		ColConversionLabel: r.ConversionLabel,
		ColEventName:       r.EventName,
	}
}

// RowFromValues rebuilds a row from Columns-ordered strings, as read back
// from a CSV export.
func RowFromValues(values []string) (FlatRow, error) {
	if len(values) != len(Columns) {
		return FlatRow{}, &ColumnCountError{Got: len(values), Want: len(Columns)}
	}
	paused, err := strconv.ParseBool(values[2])
	if err != nil {
		return FlatRow{}, err
	}
	return FlatRow{
		TagName:         values[0],
		Type:            values[1],
		TagPaused:       paused,
		Triggers:        values[3],
		TriggerName:     values[4],
		TriggerType:     values[5],
		Parameters:      values[6],
		ConversionLabel: values[7],
		EventName:       values[8],
	}, nil
}

// ColumnCountError reports a record with the wrong number of fields.
type ColumnCountError struct {
	Got, Want int
}

func (e *ColumnCountError) Error() string {
	return "expected " + strconv.Itoa(e.Want) + " columns, got " + strconv.Itoa(e.Got)
}
