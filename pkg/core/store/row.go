package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value as trimmed text, "" for nil.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []byte:
		return strings.TrimSpace(string(t))
	}
	if f, ok := Numeric(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// StringPtr returns nil for missing/empty values.
func (r Row) StringPtr(key string) *string {
	s := r.String(key)
	if s == "" {
		return nil
	}
	return &s
}

// Float returns numeric values; numeric strings are parsed as well.
func (r Row) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	if f, ok := Numeric(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

// FloatPtr is Float returning nil when absent.
func (r Row) FloatPtr(key string) *float64 {
	f, ok := r.Float(key)
	if !ok {
		return nil
	}
	return &f
}

// Int truncates a numeric value.
func (r Row) Int(key string) (int, bool) {
	f, ok := r.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// IntPtr is Int returning nil when absent.
func (r Row) IntPtr(key string) *int {
	i, ok := r.Int(key)
	if !ok {
		return nil
	}
	return &i
}

// Time parses time.Time values and RFC3339 / date-only strings.
func (r Row) Time(key string) (time.Time, bool) {
	switch t := r[key].(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// Numeric reports whether v is a Go number and returns it as float64.
// Strings are never numeric here.
func Numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Ptr helpers used when building rows from typed records.
func Val[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
