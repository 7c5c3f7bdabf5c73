package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Options is a loosely-typed option bag decoded from JSON config.
//
// Readers consume it through the typed accessors below, which apply defaults
// and tolerate the usual JSON decoding quirks (numbers arrive as float64,
// single-character strings stand in for runes).
type Options map[string]any

// Bool returns the boolean option for key, or def when absent.
// String forms "true"/"false"/"1"/"0" are accepted.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

// Int returns the integer option for key, or def when absent or unparseable.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// String returns the string option for key, or def when absent.
func (o Options) String(key string, def string) string {
	v, ok := o[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Rune returns the first rune of a string option, or def when absent/empty.
// Used for CSV delimiters ("," ";" "\t").
func (o Options) Rune(key string, def rune) rune {
	s, ok := o[key].(string)
	if !ok || s == "" {
		return def
	}
	return []rune(s)[0]
}

// StringMap returns a map option with string values, or an empty map.
func (o Options) StringMap(key string) map[string]string {
	out := map[string]string{}
	m, ok := o[key].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Any returns the raw option value, or nil when absent.
func (o Options) Any(key string) any { return o[key] }
