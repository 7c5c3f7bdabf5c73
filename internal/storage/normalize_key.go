package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeKey converts a lookup key value to a canonical string form,
// suitable for in-memory cache keys (e.g. "7590-VHVEG").
//
// Backends must not assume a particular underlying type for keys: drivers
// variously return string, []byte, int64 or float64 for the same column.
// This helper keeps lookup maps consistent across backends.
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
