// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package pipeline is the tool-invocation pipeline shared by every
// transport (spec.md §4.7, C7): validate arguments, enforce policy,
// classify GraphQL, dispatch to the upstream client, shape the result, and
// normalize errors. It is the only place that turns a Go error into the
// text an MCP client sees.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	mcperrors "github.com/mcpland/gitlab-mcp/pkg/errors"
	"github.com/mcpland/gitlab-mcp/pkg/format"
	"github.com/mcpland/gitlab-mcp/pkg/gitlabclient"
	"github.com/mcpland/gitlab-mcp/pkg/logger"
	"github.com/mcpland/gitlab-mcp/pkg/policy"
	"github.com/mcpland/gitlab-mcp/pkg/redact"
	"github.com/mcpland/gitlab-mcp/pkg/sanitize"
	"github.com/mcpland/gitlab-mcp/pkg/tools"
)

// ErrorDetailMode controls how much of an upstream error body reaches the
// client.
type ErrorDetailMode string

// Supported error detail modes (GITLAB_ERROR_DETAIL_MODE).
const (
	ErrorDetailFull ErrorDetailMode = "full"
	ErrorDetailSafe ErrorDetailMode = "safe"
)

// ContentItem is one element of a ToolResult's content list.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the MCP-shaped result every tool call produces.
type ToolResult struct {
	IsError bool          `json:"isError,omitempty"`
	Content []ContentItem `json:"content"`
}

func textResult(isError bool, text string) ToolResult {
	return ToolResult{IsError: isError, Content: []ContentItem{{Type: "text", Text: text}}}
}

// Pipeline wires together the policy engine, the upstream client, and the
// output formatter behind the single Invoke entry point shared by stdio
// and HTTP transports.
type Pipeline struct {
	Policy          *policy.Engine
	Client          gitlabclient.Client
	FormatOptions   format.Options
	ErrorDetailMode ErrorDetailMode
}

// graphqlToolNames is the set of tools whose `query` argument gets the
// mutation/query classification treatment.
var graphqlToolNames = map[string]bool{
	"gitlab_execute_graphql_query":    true,
	"gitlab_execute_graphql_mutation": true,
	"gitlab_execute_graphql":          true,
}

// Invoke runs tool with args through validate → policy → GraphQL classify
// → dispatch → shape → normalize. It never panics and never returns a Go
// error — every failure mode becomes an isError ToolResult.
func (p *Pipeline) Invoke(ctx context.Context, tool tools.Descriptor, args map[string]any) ToolResult {
	if err := tool.Validate(args); err != nil {
		logger.Debugw("tool argument validation failed", "tool", tool.Name, "error", err)
		// Validation errors can never contain secrets, so they're never
		// redacted or suppressed by ErrorDetailMode (spec.md §7).
		return textResult(true, err.Error())
	}

	if err := p.Policy.AssertCanExecute(tool.ToolDescriptor); err != nil {
		logger.Infow("tool call denied by policy", "tool", tool.Name)
		return textResult(true, "tool disabled by policy")
	}

	if graphqlToolNames[tool.Name] {
		if denied := p.classifyGraphqlTool(tool.Name, args); denied != "" {
			return textResult(true, denied)
		}
	}

	raw, err := tool.Invoke(ctx, p.Client, args)
	if err != nil {
		return p.normalizeError(tool.Name, err)
	}

	return p.shape(raw)
}

// classifyGraphqlTool applies step 3 of §4.7: gitlab_execute_graphql_query
// rejects mutations, gitlab_execute_graphql_mutation rejects non-mutations,
// and the compat gitlab_execute_graphql allows both. Returns a non-empty
// denial message when the call should be rejected before dispatch.
func (p *Pipeline) classifyGraphqlTool(toolName string, args map[string]any) string {
	query, _ := args["query"].(string)
	isMutation := IsMutation(query)

	switch toolName {
	case "gitlab_execute_graphql_query":
		if isMutation {
			return "this is a mutation; use gitlab_execute_graphql_mutation instead"
		}
	case "gitlab_execute_graphql_mutation":
		if !isMutation {
			return "this is not a mutation; use gitlab_execute_graphql_query instead"
		}
	}
	return ""
}

// shape applies the null-strip (at the tool's discretion — here, always,
// since the upstream client already strips nulls at its own boundary) and
// the C1 formatter, producing the final text content.
func (p *Pipeline) shape(raw any) ToolResult {
	stripped := sanitize.StripNulls(raw)
	payload, err := format.Format(stripped, p.FormatOptions)
	if err != nil {
		logger.Errorw("formatting tool result failed", "error", err)
		return textResult(true, "Unknown error")
	}
	return textResult(false, payload.Text)
}

// normalizeError implements §4.7 step 6 / §7's error taxonomy: every
// failure becomes isError text, redacted, with the level of detail
// ErrorDetailMode permits.
func (p *Pipeline) normalizeError(toolName string, err error) ToolResult {
	var apiErr *mcperrors.GitLabAPIError
	if errors.As(err, &apiErr) {
		text := fmt.Sprintf("GitLab API error %d", apiErr.Status)
		if p.ErrorDetailMode == ErrorDetailFull {
			text += ": " + apiErr.Body
		}
		logger.Warnw("upstream API error", "tool", toolName, "status", apiErr.Status)
		return textResult(true, redact.Redact(text))
	}

	var denied *mcperrors.PolicyDenied
	if errors.As(err, &denied) {
		return textResult(true, "tool disabled by policy")
	}

	var validation *mcperrors.ValidationError
	if errors.As(err, &validation) {
		return textResult(true, validation.Error())
	}

	if err != nil {
		text := "Request failed"
		if p.ErrorDetailMode == ErrorDetailFull {
			text = err.Error()
		}
		logger.Errorw("tool invocation failed", "tool", toolName, "error", err)
		return textResult(true, redact.Redact(text))
	}

	return textResult(true, "Unknown error")
}
