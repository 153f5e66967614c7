package flatten

import (
	"strings"

	"github.com/ajitpratap0/gtminspect/pkg/gtm"
)

// Filter parameter keys read by FormatFilter.
const (
	keyArg0       = "arg0"
	keyArg1       = "arg1"
	keyIgnoreCase = "ignore_case"
	keyNegate     = "negate"
)

// flagTrue is the only value that switches a filter flag on. "True", "1"
// and JSON true are all off.
const flagTrue = "true"

// FormatFilter renders a filter as a readable expression such as
//
//	{{Page Path}} contains '/checkout' (ignore_case=True, negate=True)
//
// A filter missing either operand renders as "<TYPE> (invalid or missing args)".
func FormatFilter(f gtm.Filter) string {
	arg0 := paramValue(f.Parameters, keyArg0)
	arg1 := paramValue(f.Parameters, keyArg1)

	if arg0 == "" || arg1 == "" {
		return f.Type + " (invalid or missing args)"
	}

	var b strings.Builder
	b.WriteString(arg0)
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(f.Type))
	b.WriteString(" '")
	b.WriteString(arg1)
	b.WriteByte('\'')

	var flags []string
	if paramValue(f.Parameters, keyIgnoreCase) == flagTrue {
		flags = append(flags, "ignore_case=True")
	}
	if paramValue(f.Parameters, keyNegate) == flagTrue {
		flags = append(flags, "negate=True")
	}
	if len(flags) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(flags, ", "))
		b.WriteByte(')')
	}

	return b.String()
}

func paramValue(params []gtm.Parameter, key string) string {
	p, ok := gtm.Lookup(params, key)
	if !ok {
		return ""
	}
	return p.String()
}
