// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package policy decides which tools are offered and permitted under the
// current configuration. Tool descriptors are static data and the decision
// procedure is a pure, ordered boolean filter (spec.md §4.4) — no
// inheritance, no dispatch tables.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	mcperrors "github.com/mcpland/gitlab-mcp/pkg/errors"
)

// ToolDescriptor is the static, policy-relevant shape of a tool. The
// catalog in pkg/tools builds these; policy never inspects anything else.
type ToolDescriptor struct {
	Name            string
	Mutating        bool
	RequiresFeature string // empty means no feature gate
	RequiresGraphql bool
}

// Config is the policy configuration, read once at startup from the
// GITLAB_* environment variables (see pkg/config).
type Config struct {
	ReadOnly                     bool
	AllowedTools                 []string
	DeniedToolsRegex             string
	EnabledFeatures              map[string]bool
	AllowGraphqlWithProjectScope bool
	AllowedProjectIds            []string
}

// Engine evaluates Config against ToolDescriptors.
type Engine struct {
	cfg         Config
	allowedSet  map[string]struct{} // canonicalized, trimmed, non-empty
	deniedRegex *regexp.Regexp
}

// NewEngine compiles cfg into an Engine. An invalid deniedToolsRegex is
// returned as an error rather than panicking at first use.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{cfg: cfg}

	if len(cfg.AllowedTools) > 0 {
		e.allowedSet = make(map[string]struct{}, len(cfg.AllowedTools))
		for _, entry := range cfg.AllowedTools {
			trimmed := strings.TrimSpace(entry)
			if trimmed == "" {
				continue
			}
			e.allowedSet[trimmed] = struct{}{}
		}
	}

	if cfg.DeniedToolsRegex != "" {
		re, err := regexp.Compile(cfg.DeniedToolsRegex)
		if err != nil {
			return nil, fmt.Errorf("policy: invalid deniedToolsRegex: %w", err)
		}
		e.deniedRegex = re
	}

	return e, nil
}

const gitlabToolPrefix = "gitlab_"

// IsToolEnabled runs the six-stage decision procedure and returns the
// final allow/deny verdict with no error.
func (e *Engine) IsToolEnabled(tool ToolDescriptor) bool {
	return e.decide(tool) == ""
}

// AssertCanExecute returns a *mcperrors.PolicyDenied when tool is not
// enabled under the current policy, nil otherwise.
func (e *Engine) AssertCanExecute(tool ToolDescriptor) error {
	if reason := e.decide(tool); reason != "" {
		return &mcperrors.PolicyDenied{Tool: tool.Name, Reason: reason}
	}
	return nil
}

// FilterTools returns the subset of tools enabled under the policy,
// preserving input order. Per P1, the result is always a subset of the
// input regardless of configuration.
func (e *Engine) FilterTools(tools []ToolDescriptor) []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(tools))
	for _, t := range tools {
		if e.IsToolEnabled(t) {
			out = append(out, t)
		}
	}
	return out
}

// decide returns "" when the tool is allowed, or a short human-readable
// denial reason otherwise. Stages run in the fixed order spec.md §4.4
// requires and short-circuit on the first failing stage.
func (e *Engine) decide(tool ToolDescriptor) string {
	if tool.RequiresFeature != "" && !e.cfg.EnabledFeatures[tool.RequiresFeature] {
		return fmt.Sprintf("feature %q is disabled", tool.RequiresFeature)
	}

	if e.cfg.ReadOnly && tool.Mutating {
		return "mutating tools are disabled in read-only mode"
	}

	if e.allowedSet != nil && !e.matchesAllowlist(tool.Name) {
		return "tool is not in the configured allow-list"
	}

	if e.deniedRegex != nil && e.deniedRegex.MatchString(tool.Name) {
		return "tool name matches the denied-tools pattern"
	}

	if tool.RequiresGraphql && len(e.cfg.AllowedProjectIds) > 0 && !e.cfg.AllowGraphqlWithProjectScope {
		return "graphql tools are disabled when a project allow-list is set"
	}

	return ""
}

// matchesAllowlist implements the bare/prefixed name matching rule: an
// allow-list entry "get_project" matches "gitlab_get_project".
func (e *Engine) matchesAllowlist(toolName string) bool {
	if _, ok := e.allowedSet[toolName]; ok {
		return true
	}
	bare := strings.TrimPrefix(toolName, gitlabToolPrefix)
	if _, ok := e.allowedSet[bare]; ok {
		return true
	}
	if _, ok := e.allowedSet[gitlabToolPrefix+toolName]; ok {
		return true
	}
	return false
}
