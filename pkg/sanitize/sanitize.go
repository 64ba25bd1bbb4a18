// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sanitize deep-strips null entries from decoded JSON-like values to
// reduce payload size before formatting (spec.md §4.2).
package sanitize

// StripNulls recursively removes null-valued object entries and null array
// elements from v, which is expected to be the result of decoding JSON into
// `any` (map[string]any / []any / primitives). It always returns a fresh
// value; the input is never mutated in place.
//
// Rules:
//   - primitives (including 0, "", false) pass through unchanged
//   - a top-level nil returns nil ("absent")
//   - in a map, keys whose value is nil are dropped; empty maps are kept
//   - in a slice, nil elements are removed, shortening the slice
func StripNulls(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if child == nil {
				continue
			}
			out[k] = StripNulls(child)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, child := range val {
			if child == nil {
				continue
			}
			out = append(out, StripNulls(child))
		}
		return out
	default:
		return val
	}
}
