// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripNulls_TopLevelNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, StripNulls(nil))
}

func TestStripNulls_Primitives(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, StripNulls(0))
	assert.Equal(t, "", StripNulls(""))
	assert.Equal(t, false, StripNulls(false))
	assert.Equal(t, "x", StripNulls("x"))
}

func TestStripNulls_ObjectDropsNullKeys(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"keep":    "value",
		"dropped": nil,
		"zero":    0,
		"blank":   "",
		"no":      false,
	}
	got := StripNulls(in).(map[string]any)

	assert.Equal(t, "value", got["keep"])
	assert.Equal(t, 0, got["zero"])
	assert.Equal(t, "", got["blank"])
	assert.Equal(t, false, got["no"])
	_, present := got["dropped"]
	assert.False(t, present)
}

func TestStripNulls_EmptyObjectAllowed(t *testing.T) {
	t.Parallel()

	got := StripNulls(map[string]any{"a": nil}).(map[string]any)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestStripNulls_ArrayRemovesNullElements(t *testing.T) {
	t.Parallel()

	in := []any{1, nil, "x", nil, false}
	got := StripNulls(in).([]any)
	assert.Equal(t, []any{1, "x", false}, got)
}

func TestStripNulls_Recursive(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"nested": map[string]any{
			"a": nil,
			"b": []any{nil, map[string]any{"c": nil, "d": 1}},
		},
	}
	got := StripNulls(in).(map[string]any)
	nested := got["nested"].(map[string]any)
	_, hasA := nested["a"]
	assert.False(t, hasA)

	b := nested["b"].([]any)
	inner := b[0].(map[string]any)
	_, hasC := inner["c"]
	assert.False(t, hasC)
	assert.Equal(t, 1, inner["d"])
}

// TestStripNulls_Idempotent checks P3: strip(strip(x)) == strip(x).
func TestStripNulls_Idempotent(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"a": nil,
		"b": []any{nil, 1, map[string]any{"c": nil}},
		"d": 0,
		"e": "",
		"f": false,
	}
	once := StripNulls(in)
	twice := StripNulls(once)
	assert.Equal(t, once, twice)
}

func TestStripNulls_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := map[string]any{"a": nil, "b": 1}
	_ = StripNulls(in)
	_, stillPresent := in["a"]
	assert.True(t, stillPresent, "StripNulls must not mutate its input")
}
