package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Str trims a cell and returns nil when it is empty.
func Str(v interface{}) *string {
	if v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Num parses a numeric cell. Thousands separators and surrounding spaces are
// tolerated; anything non-finite or unparsable becomes nil.
func Num(v interface{}) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		s = strings.ReplaceAll(s, " ", "")
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return Num(fmt.Sprint(t))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Int is Num truncated toward zero.
func Int(v interface{}) *int {
	f := Num(v)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}
