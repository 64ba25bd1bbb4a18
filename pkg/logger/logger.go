// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logger provides a package-level structured logger shared by every
// component of the gitlab-mcp bridge. It wraps a single zap.SugaredLogger
// singleton so call sites never have to thread a logger through
// constructors.
package logger

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var singleton atomic.Pointer[zap.SugaredLogger]

// Initialize installs the process-wide logger. Call once at startup; safe
// to call again in tests to reset the singleton.
func Initialize() {
	level := zapcore.InfoLevel
	if os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1" {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		// Fall back to zap's example logger rather than leaving the
		// singleton nil.
		l = zap.NewExample()
	}
	singleton.Store(l.Sugar())
}

// Get returns the current singleton logger, initializing a no-op default
// if Initialize was never called.
func Get() *zap.SugaredLogger {
	if l := singleton.Load(); l != nil {
		return l
	}
	l := zap.NewNop().Sugar()
	singleton.CompareAndSwap(nil, l)
	return singleton.Load()
}

// Debug logs at debug level.
func Debug(args ...any) { Get().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(template string, args ...any) { Get().Debugf(template, args...) }

// Debugw logs a message with structured key/value pairs at debug level.
func Debugw(msg string, kv ...any) { Get().Debugw(msg, kv...) }

// Info logs at info level.
func Info(args ...any) { Get().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(template string, args ...any) { Get().Infof(template, args...) }

// Infow logs a message with structured key/value pairs at info level.
func Infow(msg string, kv ...any) { Get().Infow(msg, kv...) }

// Warn logs at warn level.
func Warn(args ...any) { Get().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(template string, args ...any) { Get().Warnf(template, args...) }

// Warnw logs a message with structured key/value pairs at warn level.
func Warnw(msg string, kv ...any) { Get().Warnw(msg, kv...) }

// Error logs at error level.
func Error(args ...any) { Get().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...any) { Get().Errorf(template, args...) }

// Errorw logs a message with structured key/value pairs at error level.
func Errorw(msg string, kv ...any) { Get().Errorw(msg, kv...) }

// Panic logs at panic level then panics.
func Panic(args ...any) { Get().Panic(args...) }

// Panicf logs a formatted message at panic level then panics.
func Panicf(template string, args ...any) { Get().Panicf(template, args...) }

// Panicw logs a message with structured key/value pairs at panic level then panics.
func Panicw(msg string, kv ...any) { Get().Panicw(msg, kv...) }
