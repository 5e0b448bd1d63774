package aggregate

import (
	"strconv"
	"strings"
	"time"
)

// Record is a raw module record as returned by the data boundary. Field
// names are caller-supplied; values arrive as whatever JSON decoding
// produced, so every read goes through a coercion helper.
type Record map[string]any

// Number coerces a record field to float64. Numeric strings parse like
// parseFloat; anything missing or malformed contributes 0.
func (r Record) Number(field string) float64 {
	return ToNumber(r[field])
}

// Date coerces a record field to a timestamp. The second return is false
// when the field is missing or unparseable.
func (r Record) Date(field string) (time.Time, bool) {
	return ToDate(r[field])
}

// String returns a trimmed string field, or "" when absent.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return strings.TrimSpace(s)
}

// ToNumber converts loosely typed amounts to float64, defaulting to 0.
func ToNumber(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		prefix := numberPrefix(strings.TrimSpace(val))
		if prefix == "" {
			return 0
		}
		f, err := strconv.ParseFloat(prefix, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// numberPrefix returns the longest leading substring that forms a valid
// float: sign, digits, fraction, optional exponent. Trailing garbage after
// the number is ignored, the way parseFloat reads "100abc" as 100.
func numberPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := func() bool {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		return i > start
	}
	whole := digits()
	var frac bool
	if i < len(s) && s[i] == '.' {
		i++
		frac = digits()
	}
	if !whole && !frac {
		return ""
	}
	mark := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if !digits() {
			i = mark
		}
	}
	return s[:i]
}

// dateLayouts lists the formats the upstream API is known to emit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToDate converts loosely typed date values to a timestamp.
func ToDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
