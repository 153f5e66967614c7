// Package flatten turns a GTM workspace into one flat row per tag.
//
// The transformation is pure: it reads a parsed workspace, never mutates it
// and returns the same rows for the same input. References that cannot be
// resolved degrade silently. A firing trigger id with no matching trigger is
// skipped, a parameter without a value reads "key: None" and a filter missing
// an operand renders as "<TYPE> (invalid or missing args)".
//
// # Basic Usage
//
//	ws, err := gtm.Parse(data, gtm.ParseOptions{})
//	if err != nil {
//	    return err
//	}
//	for _, row := range flatten.Flatten(ws) {
//	    fmt.Println(row.TagName, row.TriggerName)
//	}
package flatten

import (
	"strings"

	"github.com/ajitpratap0/gtminspect/pkg/gtm"
)

// Well-known tag parameters surfaced as their own columns.
const (
	paramConversionLabel = "conversionLabel"
	paramEventName       = "eventName"
)

// absentValue is how a parameter without a value reads in the Parameters
// column. The dedicated conversionLabel and eventName columns stay empty.
const absentValue = "None"

// Stats describes what a flatten pass saw. It is never part of the report.
type Stats struct {
	Tags               int
	Triggers           int
	ResolvedTriggers   int
	UnresolvedTriggers int
	InvalidFilters     int
}

// Result holds the rows of a flatten pass and its stats.
type Result struct {
	Rows  []FlatRow
	Stats Stats
}

// Flatten returns one row per tag, in tag order.
func Flatten(ws *gtm.Workspace) []FlatRow {
	return Run(ws).Rows
}

// Run flattens the workspace and collects stats along the way.
func Run(ws *gtm.Workspace) Result {
	if ws == nil {
		ws = &gtm.Workspace{}
	}

	idx := NewTriggerIndex(ws.Triggers)
	res := Result{
		Rows: make([]FlatRow, 0, len(ws.Tags)),
		Stats: Stats{
			Tags:     len(ws.Tags),
			Triggers: idx.Len(),
		},
	}

	for _, tag := range ws.Tags {
		summary := idx.Summarize(tag.FiringTriggerIDs)
		res.Stats.ResolvedTriggers += len(summary.Lines)
		res.Stats.UnresolvedTriggers += summary.Unresolved
		res.Stats.InvalidFilters += summary.InvalidFilters

		res.Rows = append(res.Rows, flattenTag(tag, summary))
	}

	return res
}

func flattenTag(tag gtm.Tag, triggers TriggerSummary) FlatRow {
	params := newParamSet(tag.Parameters)

	return FlatRow{
		TagName:         tag.Name,
		Type:            tag.Type,
		TagPaused:       bool(tag.Paused),
		Triggers:        strings.Join(triggers.Lines, "\n"),
		TriggerName:     triggers.Name,
		TriggerType:     triggers.Type,
		Parameters:      params.render(),
		ConversionLabel: params.get(paramConversionLabel),
		EventName:       params.get(paramEventName),
	}
}

func hasOperands(f gtm.Filter) bool {
	return paramValue(f.Parameters, keyArg0) != "" && paramValue(f.Parameters, keyArg1) != ""
}

// paramSet is an insertion-ordered key/value view of a tag's parameters.
// A repeated key keeps its first position and takes the later value.
type paramSet struct {
	keys   []string
	values map[string]*string
}

func newParamSet(params []gtm.Parameter) paramSet {
	ps := paramSet{
		keys:   make([]string, 0, len(params)),
		values: make(map[string]*string, len(params)),
	}
	for _, p := range params {
		if _, seen := ps.values[p.Key]; !seen {
			ps.keys = append(ps.keys, p.Key)
		}
		ps.values[p.Key] = p.Value
	}
	return ps
}

func (ps paramSet) get(key string) string {
	if v := ps.values[key]; v != nil {
		return *v
	}
	return ""
}

// render lists every parameter as "key: value", with absentValue standing
// in for a parameter that has no value.
func (ps paramSet) render() string {
	lines := make([]string, 0, len(ps.keys))
	for _, k := range ps.keys {
		v := absentValue
		if ps.values[k] != nil {
			v = *ps.values[k]
		}
		lines = append(lines, k+": "+v)
	}
	return strings.Join(lines, "\n")
}
