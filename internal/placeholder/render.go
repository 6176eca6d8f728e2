// Package placeholder merges record fields into subject and body text that
// contains {{key}} placeholders. It has no dependencies and performs no I/O.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
)

// pattern matches one {{key}} occurrence. Keys are taken literally, without
// trimming or case folding.
var pattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Render replaces every {{key}} in tmpl whose key is present in data.
//
//   - present key, nil value → ""
//   - present key, any other value → its string form (see format)
//   - absent key → the placeholder is left exactly as written
//
// Substitution is a single pass: a value that itself contains {{...}} is
// emitted verbatim and never expanded.
func Render(tmpl string, data map[string]any) string {
	if tmpl == "" || len(data) == 0 {
		return tmpl
	}
	return pattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := match[2 : len(match)-2]
		v, ok := data[key]
		if !ok {
			return match
		}
		return format(v)
	})
}

// Keys returns the distinct placeholder keys in tmpl in order of first
// appearance.
func Keys(tmpl string) []string {
	matches := pattern.FindAllStringSubmatch(tmpl, -1)
	seen := make(map[string]struct{}, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		keys = append(keys, m[1])
	}
	return keys
}

func format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case *float64:
		if t == nil {
			return ""
		}
		return strconv.FormatFloat(*t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
