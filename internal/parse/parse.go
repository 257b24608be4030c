// Package parse recovers a JSON object from a raw model completion. Models
// wrap their output in markdown fences or surround it with chatter often
// enough that the recovery chain has a fixed, documented precedence:
//
//  1. strip a ```json / ``` fence around the whole response
//  2. direct structural parse
//  3. greedy brace span (first '{' to last '}') and re-parse
//  4. typed error; the pipeline substitutes its documented default
package parse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error reports an unrecoverable completion. The raw text is retained for
// logging only.
type Error struct {
	Raw   string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse: no recoverable JSON object: %v", e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Clean strips a markdown code fence wrapping the whole response.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Span returns the greedy brace span of raw, from the first '{' through the
// last '}'. It reports false when no such span exists.
func Span(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// Into unmarshals the JSON object recovered from raw into v. On total failure
// it returns *Error; the caller owns the fallback value.
func Into(raw string, v any) error {
	cleaned := Clean(raw)
	directErr := json.Unmarshal([]byte(cleaned), v)
	if directErr == nil {
		return nil
	}

	span, ok := Span(cleaned)
	if !ok {
		return &Error{Raw: raw, Cause: directErr}
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return &Error{Raw: raw, Cause: err}
	}
	return nil
}
