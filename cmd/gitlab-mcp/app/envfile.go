// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// loadEnvFile parses a simple KEY=VALUE dotenv file and applies each
// assignment via os.Setenv, skipping blank lines and lines starting with
// '#'. Existing process environment variables are never overwritten, so
// an operator's real environment always wins over the file. No dotenv
// parsing library appears anywhere in the reference corpus — the one
// example that needs this (a vault/dotenv tool) hand-rolls its own
// line-by-line KEY=VALUE scanner rather than importing one, so this
// follows the same approach instead of reaching for a standard-library
// substitute for something the corpus shows no library for either.
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening env file %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%s:%d: expected KEY=VALUE, got %q", path, lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)

		if key == "" {
			return fmt.Errorf("%s:%d: empty key", path, lineNo)
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("%s:%d: setting %s: %w", path, lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading env file %q: %w", path, err)
	}
	return nil
}
