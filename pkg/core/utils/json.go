package utils

import (
	"encoding/json"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ParseJSONObject recovers a JSON object from free-form model output.
//
// Order of attempts:
//  1. strip a leading/trailing Markdown code fence
//  2. parse directly when the remainder starts with '{'
//  3. scan for the first balanced {...} block (quote and escape aware)
//  4. JSON repair of the candidate (also closes truncated output)
//  5. Hjson (most lenient)
//
// It never fails: unrecoverable input yields an empty map.
func ParseJSONObject(content string) map[string]interface{} {
	out := map[string]interface{}{}
	cleaned := StripCodeFence(content)
	if cleaned == "" {
		return out
	}

	candidate := cleaned
	if !strings.HasPrefix(candidate, "{") {
		block, ok := FirstBalancedBlock(cleaned, '{', '}')
		if !ok {
			return out
		}
		candidate = block
	}

	if m, ok := decodeObject(candidate); ok {
		return m
	}
	if repaired, err := jsonrepair.RepairJSON(candidate); err == nil {
		if m, ok := decodeObject(repaired); ok {
			return m
		}
	}
	var lenient map[string]interface{}
	if err := hjson.Unmarshal([]byte(candidate), &lenient); err == nil && lenient != nil {
		// Round-trip through encoding/json so nested values use the same
		// types as the strict path (map[string]interface{}, float64).
		if b, err := json.Marshal(lenient); err == nil {
			if m, ok := decodeObject(string(b)); ok {
				return m
			}
		}
	}
	return out
}

// ParseJSONArray is the array counterpart of ParseJSONObject.
func ParseJSONArray(content string) []interface{} {
	cleaned := StripCodeFence(content)
	candidate := cleaned
	if !strings.HasPrefix(candidate, "[") {
		block, ok := FirstBalancedBlock(cleaned, '[', ']')
		if !ok {
			return nil
		}
		candidate = block
	}
	var arr []interface{}
	if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
		return arr
	}
	if repaired, err := jsonrepair.RepairJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(repaired), &arr); err == nil {
			return arr
		}
	}
	return nil
}

// StripCodeFence removes one leading ``` fence line (with optional language
// tag) and one trailing ``` fence.
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// FirstBalancedBlock returns the first open...close block in s. Delimiters
// inside double-quoted strings are ignored and backslash escapes are honored.
// When the block never closes (truncated output) the tail from the opening
// delimiter is returned with ok=true so a repair pass can close it.
func FirstBalancedBlock(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], true
}

func decodeObject(s string) (map[string]interface{}, bool) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
