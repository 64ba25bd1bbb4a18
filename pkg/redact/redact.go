// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package redact replaces known credential patterns and sensitive object
// keys with a fixed placeholder before any error text or payload leaves the
// process (spec.md §4.3, P5).
package redact

import "regexp"

// Placeholder replaces every matched secret.
const Placeholder = "[REDACTED]"

// patterns is the fixed table from spec.md §4.3. Order matters only in
// that the key/value pattern's capture group preserves the "key:" prefix
// while redacting the value.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`glpat-[A-Za-z0-9_\-]{8,}`),
	regexp.MustCompile(`ghp_[A-Za-z0-9]{8,}`),
	regexp.MustCompile(`gho_[A-Za-z0-9]{8,}`),
	regexp.MustCompile(`ghs_[A-Za-z0-9]{8,}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_\-=]+\.[A-Za-z0-9_\-=]+(\.[A-Za-z0-9_\-=]+)?`),
}

// keyValuePattern matches `authorization: <value>`, `private_token = <value>`,
// `password: <value>` style fragments embedded in free text; the value
// portion (and only the value portion) is replaced.
var keyValuePattern = regexp.MustCompile(`(?i)((?:authorization|private[_-]?token|password)\s*[:=]\s*)(\S+)`)

// sensitiveKeyPattern matches object keys whose value must always be
// redacted regardless of its shape.
var sensitiveKeyPattern = regexp.MustCompile(`(?i)^(authorization|password|token|secret|cookie|set-cookie)$`)

// Redact replaces every credential pattern found in s with Placeholder.
func Redact(s string) string {
	out := s
	for _, p := range patterns {
		out = p.ReplaceAllString(out, Placeholder)
	}
	out = keyValuePattern.ReplaceAllString(out, "${1}"+Placeholder)
	return out
}

// Value walks a decoded JSON-like value (map[string]any / []any /
// primitives) and redacts: (a) any string matching the §4.3 patterns, and
// (b) the value at any key matching sensitiveKeyPattern, regardless of its
// own shape. Always returns a fresh value.
func Value(v any) any {
	switch val := v.(type) {
	case string:
		return Redact(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if sensitiveKeyPattern.MatchString(k) {
				out[k] = Placeholder
				continue
			}
			out[k] = Value(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = Value(child)
		}
		return out
	default:
		return val
	}
}
