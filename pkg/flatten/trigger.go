package flatten

import (
	"strings"

	"github.com/ajitpratap0/gtminspect/pkg/gtm"
)

// TriggerIndex maps trigger ids to triggers. It is built once per workspace
// and never modified afterwards.
type TriggerIndex struct {
	byID map[gtm.ID]gtm.Trigger
}

// NewTriggerIndex indexes triggers by id. Ids are unique in an export; if
// one repeats, the first trigger keeps it.
func NewTriggerIndex(triggers []gtm.Trigger) *TriggerIndex {
	idx := &TriggerIndex{byID: make(map[gtm.ID]gtm.Trigger, len(triggers))}
	for _, t := range triggers {
		if _, dup := idx.byID[t.TriggerID]; dup {
			continue
		}
		idx.byID[t.TriggerID] = t
	}
	return idx
}

// Len returns the number of indexed triggers.
func (idx *TriggerIndex) Len() int {
	return len(idx.byID)
}

// Get returns the trigger with the given id.
func (idx *TriggerIndex) Get(id gtm.ID) (gtm.Trigger, bool) {
	t, ok := idx.byID[id]
	return t, ok
}

// Resolve looks up ids in order, skipping ids that match no trigger.
func (idx *TriggerIndex) Resolve(ids []gtm.ID) []gtm.Trigger {
	resolved := make([]gtm.Trigger, 0, len(ids))
	for _, id := range ids {
		if t, ok := idx.Get(id); ok {
			resolved = append(resolved, t)
		}
	}
	return resolved
}

// Describe renders one trigger line:
//
//	Name: PageView | Type: pageview | Filter: ['{{Page}} equals '/home'']
func Describe(t gtm.Trigger) string {
	var b strings.Builder
	b.WriteString("Name: ")
	b.WriteString(t.Name)
	b.WriteString(" | Type: ")
	b.WriteString(t.Type)
	b.WriteString(" | Filter: [")
	for i, f := range t.AllFilters() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(FormatFilter(f))
		b.WriteByte('\'')
	}
	b.WriteByte(']')
	return b.String()
}

// TriggerSummary is what a tag's firing triggers contribute to its row.
type TriggerSummary struct {
	// Lines holds one Describe line per resolved trigger, in firing order.
	Lines []string
	// Name and Type come from the first resolved trigger.
	Name string
	Type string
	// Unresolved counts firing ids that matched no trigger.
	Unresolved int
	// InvalidFilters counts filters of resolved triggers missing an operand.
	InvalidFilters int
}

// Summarize resolves a tag's firing trigger ids.
func (idx *TriggerIndex) Summarize(ids []gtm.ID) TriggerSummary {
	resolved := idx.Resolve(ids)

	s := TriggerSummary{
		Lines:      make([]string, 0, len(resolved)),
		Unresolved: len(ids) - len(resolved),
	}
	for i, t := range resolved {
		s.Lines = append(s.Lines, Describe(t))
		for _, f := range t.AllFilters() {
			if !hasOperands(f) {
				s.InvalidFilters++
			}
		}
		if i == 0 {
			s.Name = t.Name
			s.Type = t.Type
		}
	}
	return s
}
