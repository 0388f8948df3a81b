// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformed reports that a response contained no parseable JSON
// even after one repair attempt. Callers fall back to their
// deterministic strategy instead of retrying.
var ErrMalformed = errors.New("LLM response contained no parseable JSON")

// OnRepair, when set, is invoked when a truncated response is
// successfully repaired. Metrics hook; set once at startup.
var OnRepair func()

// ExtractJSON pulls the first complete JSON object out of an LLM
// response. Models wrap answers in code fences and preamble text;
// this strips fences, locates the first '{', and walks the braces
// escape-aware. When the object never closes (truncated output), one
// bracket-balance repair is attempted before giving up.
func ExtractJSON(raw string) (string, error) {
	s := stripCodeFences(strings.TrimSpace(raw))

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrMalformed
	}
	s = s[start:]

	if obj, ok := scanObject(s); ok {
		return obj, nil
	}

	if repaired, ok := repairBrackets(s); ok {
		if OnRepair != nil {
			OnRepair()
		}
		return repaired, nil
	}
	return "", ErrMalformed
}

// stripCodeFences removes a surrounding ``` or ```json fence pair.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line ("json").
		if lang := strings.TrimSpace(s[:nl]); lang == "json" || lang == "" {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// scanObject walks s (which starts at '{') and returns the substring
// up to the matching close brace. String literals and escapes are
// honored so braces inside values do not confuse the walk.
func scanObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Braces inside strings are payload.
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				candidate := s[:i+1]
				return candidate, json.Valid([]byte(candidate))
			}
		}
	}
	return "", false
}

// repairBrackets closes any unterminated string and appends the
// missing closers in stack order, then validates the result.
func repairBrackets(s string) (string, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(s, ", \t\n"))
	if inString {
		sb.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteByte(stack[i])
	}

	repaired := sb.String()
	if json.Valid([]byte(repaired)) {
		return repaired, true
	}
	return "", false
}
