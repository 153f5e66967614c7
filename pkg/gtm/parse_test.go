package gtm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gtminspect/pkg/errors"
)

const sampleExport = `{
  "exportFormatVersion": 2,
  "containerVersion": {
    "tag": [
      {
        "name": "Purchase",
        "type": "gaid",
        "paused": true,
        "firingTriggerId": ["t1", 42],
        "parameter": [
          {"type": "template", "key": "eventName", "value": "purchase"},
          {"type": "list", "key": "eventSettingsTable", "list": [{"type": "map"}]},
          {"type": "template", "key": "sendTo"}
        ]
      }
    ],
    "trigger": [
      {
        "triggerId": "t1",
        "name": "PageView",
        "type": "pageview",
        "filter": [
          {"type": "EQUALS", "parameter": [
            {"type": "template", "key": "arg0", "value": "{{Page}}"},
            {"type": "template", "key": "arg1", "value": "/home"}
          ]}
        ],
        "customEventFilter": [
          {"type": "CONTAINS", "parameter": [{"key": "arg0", "value": "{{_event}}"}]}
        ]
      }
    ]
  }
}`

func TestParseSample(t *testing.T) {
	ws, err := Parse([]byte(sampleExport), ParseOptions{Strict: true})
	require.NoError(t, err)
	require.Len(t, ws.Tags, 1)
	require.Len(t, ws.Triggers, 1)

	tag := ws.Tags[0]
	assert.Equal(t, "Purchase", tag.Name)
	assert.Equal(t, "gaid", tag.Type)
	assert.True(t, bool(tag.Paused))
	assert.Equal(t, []ID{"t1", "42"}, tag.FiringTriggerIDs)

	require.Len(t, tag.Parameters, 3)
	assert.Equal(t, "purchase", tag.Parameters[0].String())
	assert.Nil(t, tag.Parameters[1].Value, "nested list parameters carry no scalar value")
	assert.Nil(t, tag.Parameters[2].Value)

	trig := ws.Triggers[0]
	assert.Equal(t, ID("t1"), trig.TriggerID)
	filters := trig.AllFilters()
	require.Len(t, filters, 2)
	assert.Equal(t, "EQUALS", filters[0].Type)
	assert.Equal(t, "CONTAINS", filters[1].Type)
}

func TestParseLenientDefaults(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty object", `{}`},
		{"null container", `{"containerVersion": null}`},
		{"no tags", `{"containerVersion": {"trigger": []}}`},
		{"no triggers", `{"containerVersion": {"tag": []}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := Parse([]byte(tt.doc), ParseOptions{})
			require.NoError(t, err)
			assert.Empty(t, ws.Tags)
			assert.Empty(t, ws.Triggers)
		})
	}
}

func TestParseStrictRejectsMissingSections(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		message string
	}{
		{"no container", `{}`, "missing containerVersion"},
		{"no tags", `{"containerVersion": {"trigger": []}}`, "missing containerVersion.tag"},
		{"no triggers", `{"containerVersion": {"tag": []}}`, "missing containerVersion.trigger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), ParseOptions{Strict: true})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedDocument)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseInvalidJSON(t *testing.T) {
	for _, doc := range []string{"", "   ", "{", "not json", `{"containerVersion": {"tag": "nope"}}`} {
		for _, strict := range []bool{true, false} {
			_, err := Parse([]byte(doc), ParseOptions{Strict: strict})
			require.Error(t, err, "doc %q strict=%v", doc, strict)
			assert.ErrorIs(t, err, ErrMalformedDocument)
		}
	}
}

func TestFlagDecoding(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"paused": true}`, true},
		{`{"paused": false}`, false},
		{`{"paused": "true"}`, true},
		{`{"paused": "True"}`, false},
		{`{"paused": 1}`, false},
		{`{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			doc := `{"containerVersion": {"tag": [` + tt.raw + `], "trigger": []}}`
			ws, err := Parse([]byte(doc), ParseOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, bool(ws.Tags[0].Paused))
		})
	}
}

func TestParameterScalarValues(t *testing.T) {
	doc := `{"containerVersion": {"tag": [{"parameter": [
		{"key": "a", "value": "x"},
		{"key": "b", "value": 12.5},
		{"key": "c", "value": false},
		{"key": "d", "value": null},
		{"key": "e", "value": {"nested": 1}}
	]}]}}`

	ws, err := Parse([]byte(doc), ParseOptions{})
	require.NoError(t, err)

	params := ws.Tags[0].Parameters
	require.Len(t, params, 5)
	assert.Equal(t, "x", params[0].String())
	assert.Equal(t, "12.5", params[1].String())
	assert.Equal(t, "False", params[2].String(), "booleans keep their own spelling")
	assert.Nil(t, params[3].Value)
	assert.Nil(t, params[4].Value)
}

func TestLenientScalarFields(t *testing.T) {
	doc := `{"containerVersion": {
		"tag": [{"name": 5, "type": true, "parameter": [{"key": 7, "value": true}]}],
		"trigger": [{"triggerId": 1, "name": 2.5, "type": {"x": 1},
			"filter": [{"type": false, "parameter": []}]}]
	}}`

	ws, err := Parse([]byte(doc), ParseOptions{})
	require.NoError(t, err)

	tag := ws.Tags[0]
	assert.Equal(t, "5", tag.Name)
	assert.Equal(t, "True", tag.Type)
	assert.Equal(t, "7", tag.Parameters[0].Key)
	assert.Equal(t, "True", tag.Parameters[0].String())

	trig := ws.Triggers[0]
	assert.Equal(t, ID("1"), trig.TriggerID)
	assert.Equal(t, "2.5", trig.Name)
	assert.Empty(t, trig.Type)
	assert.Equal(t, "False", trig.Filters[0].Type)
}

func TestLookupLaterKeyWins(t *testing.T) {
	first, second := "first", "second"
	params := []Parameter{{Key: "k", Value: &first}, {Key: "other"}, {Key: "k", Value: &second}}

	p, ok := Lookup(params, "k")
	require.True(t, ok)
	assert.Equal(t, "second", p.String())

	_, ok = Lookup(params, "missing")
	assert.False(t, ok)
}

func TestDecodeLimit(t *testing.T) {
	_, err := Decode(strings.NewReader(sampleExport), ParseOptions{MaxBytes: 16})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	ws, err := Decode(strings.NewReader(sampleExport), ParseOptions{MaxBytes: -1})
	require.NoError(t, err)
	assert.Len(t, ws.Tags, 1)
}
