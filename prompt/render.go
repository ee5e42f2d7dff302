// Package prompt renders localized prompt templates by substituting
// ${key} placeholders from a value bag.
package prompt

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Render replaces every occurrence of ${key} in template with the
// stringified value from vars. Lists render comma-joined, flat mappings as
// "k: v, k2: v2" pairs, nil values as the empty string. Unknown
// placeholders stay untouched and an empty value bag returns the template
// unchanged. Render never fails.
func Render(template string, vars map[string]any) string {
	if template == "" || len(vars) == 0 {
		return template
	}
	out := template
	for _, key := range sortedKeys(vars) {
		out = strings.ReplaceAll(out, "${"+key+"}", formatValue(vars[key]))
	}
	return out
}

func formatValue(v any) string {
	rv, ok := concrete(v)
	if !ok {
		return ""
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return joinElements(rv)
	case reflect.Map:
		pairs := make([]string, 0, rv.Len())
		for _, key := range sortedMapKeys(rv) {
			pairs = append(pairs, fmt.Sprintf("%v: %s", key.Interface(), formatNested(rv.MapIndex(key).Interface())))
		}
		return strings.Join(pairs, ", ")
	default:
		return fmt.Sprintf("%v", rv.Interface())
	}
}

func formatNested(v any) string {
	rv, ok := concrete(v)
	if !ok {
		return ""
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return joinElements(rv)
	case reflect.Map:
		// Compact structured-text fallback for deep nesting.
		if b, err := json.Marshal(rv.Interface()); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", rv.Interface())
	default:
		return fmt.Sprintf("%v", rv.Interface())
	}
}

func joinElements(rv reflect.Value) string {
	parts := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		el, ok := concrete(rv.Index(i).Interface())
		if !ok {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, fmt.Sprintf("%v", el.Interface()))
	}
	return strings.Join(parts, ", ")
}

// concrete unwraps interfaces and pointers, reporting false for nil.
func concrete(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
	})
	return keys
}
