// Package gtm models the parts of a Google Tag Manager container export that
// gtminspect reads: tags, triggers, their filters and key/value parameters.
//
// Every optional field is resolved once while decoding. Absent arrays decode
// to nil slices, an absent paused flag decodes to false and an absent
// parameter value decodes to a nil Value, so consumers never re-apply
// defaults at access sites.
package gtm

import (
	"bytes"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// Workspace is the containerVersion section of an export.
type Workspace struct {
	Tags     []Tag
	Triggers []Trigger
}

// Tag is a configured action with its firing conditions.
type Tag struct {
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	Paused           Flag        `json:"paused"`
	FiringTriggerIDs []ID        `json:"firingTriggerId"`
	Parameters       []Parameter `json:"parameter"`
}

// UnmarshalJSON decodes a tag. Name and type take any scalar.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name             gojson.RawMessage `json:"name"`
		Type             gojson.RawMessage `json:"type"`
		Paused           Flag              `json:"paused"`
		FiringTriggerIDs []ID              `json:"firingTriggerId"`
		Parameters       []Parameter       `json:"parameter"`
	}
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Tag{
		Name:             text(raw.Name),
		Type:             text(raw.Type),
		Paused:           raw.Paused,
		FiringTriggerIDs: raw.FiringTriggerIDs,
		Parameters:       raw.Parameters,
	}
	return nil
}

// Trigger is a named condition that determines when a tag fires.
type Trigger struct {
	TriggerID          ID       `json:"triggerId"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	Filters            []Filter `json:"filter"`
	CustomEventFilters []Filter `json:"customEventFilter"`
}

// UnmarshalJSON decodes a trigger. Name and type take any scalar.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var raw struct {
		TriggerID          ID                `json:"triggerId"`
		Name               gojson.RawMessage `json:"name"`
		Type               gojson.RawMessage `json:"type"`
		Filters            []Filter          `json:"filter"`
		CustomEventFilters []Filter          `json:"customEventFilter"`
	}
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Trigger{
		TriggerID:          raw.TriggerID,
		Name:               text(raw.Name),
		Type:               text(raw.Type),
		Filters:            raw.Filters,
		CustomEventFilters: raw.CustomEventFilters,
	}
	return nil
}

// AllFilters returns the filter list followed by the custom event filters.
func (t Trigger) AllFilters() []Filter {
	all := make([]Filter, 0, len(t.Filters)+len(t.CustomEventFilters))
	all = append(all, t.Filters...)
	return append(all, t.CustomEventFilters...)
}

// Filter is a single comparison inside a trigger.
type Filter struct {
	Type       string      `json:"type"`
	Parameters []Parameter `json:"parameter"`
}

// UnmarshalJSON decodes a filter. The comparison type takes any scalar.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       gojson.RawMessage `json:"type"`
		Parameters []Parameter       `json:"parameter"`
	}
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Filter{Type: text(raw.Type), Parameters: raw.Parameters}
	return nil
}

// Parameter is a key/value pair. Value is nil when the export carries no
// scalar value for the key (absent, null, or a nested list/map parameter).
type Parameter struct {
	Key   string
	Value *string
}

// String returns the value, or the empty string when it is absent.
func (p Parameter) String() string {
	if p.Value == nil {
		return ""
	}
	return *p.Value
}

// UnmarshalJSON decodes a parameter, keeping scalar values as their text.
func (p *Parameter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key   gojson.RawMessage `json:"key"`
		Value gojson.RawMessage `json:"value"`
	}
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Key = text(raw.Key)
	p.Value = scalarText(raw.Value)
	return nil
}

// MarshalJSON encodes the parameter in export form.
func (p Parameter) MarshalJSON() ([]byte, error) {
	out := struct {
		Key   string  `json:"key"`
		Value *string `json:"value,omitempty"`
	}{Key: p.Key, Value: p.Value}
	return gojson.Marshal(out)
}

// Lookup returns the parameter with the given key. Keys are unique within
// an owner; if an export repeats one, the later entry wins.
func Lookup(params []Parameter, key string) (Parameter, bool) {
	for i := len(params) - 1; i >= 0; i-- {
		if params[i].Key == key {
			return params[i], true
		}
	}
	return Parameter{}, false
}

// ID is an entity identifier. Exports encode ids as strings but numeric ids
// are accepted and kept in their decimal form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID(text(data))
	return nil
}

// Flag is a boolean that also accepts the string "true", as some exports
// serialize booleans as strings. Any other string is false.
type Flag bool

// UnmarshalJSON accepts a JSON boolean or string.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*f = true
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := gojson.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = s == "true"
	default:
		*f = false
	}
	return nil
}

// scalarText returns the text of a JSON string, number or boolean, and nil
// for null, absent, objects and arrays. Booleans render as True and False so
// they never read as the string flags "true" and "false".
func scalarText(data []byte) *string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := gojson.Unmarshal(data, &s); err != nil {
			return nil
		}
		return &s
	case 'n', '{', '[':
		return nil
	}

	var s string
	switch lit := string(data); lit {
	case "true":
		s = "True"
	case "false":
		s = "False"
	default:
		if _, err := strconv.ParseFloat(lit, 64); err != nil {
			return nil
		}
		s = lit
	}
	return &s
}

// text is scalarText with absent values as the empty string.
func text(data []byte) string {
	if s := scalarText(data); s != nil {
		return *s
	}
	return ""
}
