// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package format serializes tool results as JSON, compact JSON, or YAML and
// enforces a byte cap with a visible truncation suffix (spec.md §4.1).
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects the serialization used by Format.
type Mode string

// Supported response modes.
const (
	ModeJSON        Mode = "json"
	ModeCompactJSON Mode = "compact-json"
	ModeYAML        Mode = "yaml"
)

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeJSON, ModeCompactJSON, ModeYAML:
		return true
	default:
		return false
	}
}

// Options controls how Format renders a value.
type Options struct {
	Mode     Mode
	MaxBytes int // 0 means unbounded
}

// Payload is the result of formatting a value: the rendered text, whether
// it was truncated, and the original (pre-truncation) byte length.
type Payload struct {
	Text      string
	Truncated bool
	Bytes     int
}

const truncationSuffixTemplate = "\n... [truncated %d bytes]"

// Format serializes v per opts.Mode and truncates at opts.MaxBytes when
// positive. Byte length is measured in UTF-8; truncation may split a
// multi-byte rune by design (spec.md §9 "Truncation is byte-wise") — the
// suffix is the marker, never a re-encode.
func Format(v any, opts Options) (Payload, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeJSON
	}
	if !mode.Valid() {
		return Payload{}, fmt.Errorf("format: unsupported response mode %q", mode)
	}

	raw, err := serialize(v, mode)
	if err != nil {
		return Payload{}, fmt.Errorf("format: %w", err)
	}

	full := len(raw)
	if opts.MaxBytes <= 0 || full <= opts.MaxBytes {
		return Payload{Text: raw, Truncated: false, Bytes: full}, nil
	}

	elided := full - opts.MaxBytes
	suffix := fmt.Sprintf(truncationSuffixTemplate, elided)
	text := raw[:opts.MaxBytes] + suffix
	return Payload{Text: text, Truncated: true, Bytes: full}, nil
}

func serialize(v any, mode Mode) (string, error) {
	switch mode {
	case ModeJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	case ModeCompactJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case ModeYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return strings.TrimSuffix(string(b), "\n"), nil
	default:
		return "", fmt.Errorf("unsupported mode %q", mode)
	}
}
