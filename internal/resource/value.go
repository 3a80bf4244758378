package resource

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Normalize maps a property value onto a canonical representation so values
// decoded from XML-RPC, YAML and the command line compare equal when they
// mean the same thing. Integers of every width and integral floats become
// int64, lists become []any and maps become map[string]any. Unsigned values
// beyond the int64 range are returned unchanged.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		if uint64(t) > math.MaxInt64 {
			return t
		}
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return t
		}
		return int64(t)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case Properties:
		return Normalize(map[string]any(t))
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	}
	return v
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

var equalOpts = cmp.Options{cmpopts.EquateEmpty()}

// Equal reports whether a desired value matches the current value of a
// property. Strings never equal numbers. A string compares equal to a map
// when it is the option string the server would parse into that map, and to
// a list of strings when its whitespace separated fields match.
func Equal(desired, current any) bool {
	d, c := Normalize(desired), Normalize(current)
	if s, ok := d.(string); ok {
		switch ct := c.(type) {
		case map[string]any:
			return cmp.Equal(optionTokens(s), mapTokens(ct), equalOpts)
		case []any:
			if strs, ok := allStrings(ct); ok {
				return cmp.Equal(strings.Fields(s), strs, equalOpts)
			}
		}
	}
	return cmp.Equal(d, c, equalOpts)
}

// FlattenOptions renders a map property the way Cobbler prints option
// strings: sorted "key=value" tokens, bare keys for empty values, and one
// token per element for list values.
func FlattenOptions(m map[string]any) string {
	return strings.Join(mapTokens(m), " ")
}

func mapTokens(m map[string]any) []string {
	var tokens []string
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			tokens = append(tokens, k)
		case string:
			if t == "" || t == "~" {
				tokens = append(tokens, k)
			} else {
				tokens = append(tokens, k+"="+t)
			}
		case []any:
			for _, e := range t {
				tokens = append(tokens, k+"="+fmt.Sprint(e))
			}
		default:
			tokens = append(tokens, k+"="+fmt.Sprint(t))
		}
	}
	sort.Strings(tokens)
	return tokens
}

func optionTokens(s string) []string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if k, v, ok := strings.Cut(tok, "="); ok && (v == "" || v == "~") {
			tokens[i] = k
		}
	}
	sort.Strings(tokens)
	return tokens
}

func allStrings(list []any) ([]string, bool) {
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
