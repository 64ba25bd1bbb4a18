// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// setSingletonForTest temporarily replaces the singleton logger and restores
// the original when the test completes.
func setSingletonForTest(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := singleton.Load()
	singleton.Store(zap.New(core).Sugar())
	t.Cleanup(func() { singleton.Store(prev) })
	return logs
}

// TestLogLevels tests that each log function writes to the underlying core.
func TestLogLevels(t *testing.T) { //nolint:paralleltest // mutates singleton
	logs := setSingletonForTest(t)

	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "debug msg", entries[0].Message)
	assert.Equal(t, "info msg", entries[1].Message)
	assert.Equal(t, "warn msg", entries[2].Message)
	assert.Equal(t, "error msg", entries[3].Message)
}

// TestFormattedAndKeyedVariants tests the f/w suffixed variants.
func TestFormattedAndKeyedVariants(t *testing.T) { //nolint:paralleltest // mutates singleton
	logs := setSingletonForTest(t)

	Infof("hello %s", "world")
	Warnw("kv message", "key", "val")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello world", entries[0].Message)
	assert.Equal(t, "kv message", entries[1].Message)
	assert.Equal(t, "val", entries[1].ContextMap()["key"])
}

// TestPanicLogsThenPanics tests that Panic logs before panicking.
func TestPanicLogsThenPanics(t *testing.T) { //nolint:paralleltest // mutates singleton
	logs := setSingletonForTest(t)

	require.Panics(t, func() { Panic("panic msg") })

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "panic msg", entries[0].Message)
}

// TestGetInitializesDefaultWhenUnset verifies Get never returns nil.
func TestGetInitializesDefaultWhenUnset(t *testing.T) {
	prev := singleton.Load()
	singleton.Store(nil)
	t.Cleanup(func() { singleton.Store(prev) })

	got := Get()
	require.NotNil(t, got)
}

// TestInitializeRespectsDebugEnv verifies the DEBUG env var selects the level.
func TestInitializeRespectsDebugEnv(t *testing.T) { //nolint:paralleltest // mutates env + singleton
	prev := singleton.Load()
	t.Cleanup(func() { singleton.Store(prev) })

	t.Setenv("DEBUG", "true")
	Initialize()
	require.NotNil(t, Get())
	assert.True(t, Get().Desugar().Core().Enabled(zap.DebugLevel))
}
