// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver builds the *server.MCPServer exposed to MCP clients
// (spec.md §4.8, C8). It registers the health tool and every GitLab tool
// whose descriptor passes the policy engine at build time; tools denied
// only by a feature flag are left unregistered entirely so `listTools`
// reflects the policy truthfully rather than merely hiding denied tools.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcpland/gitlab-mcp/pkg/pipeline"
	"github.com/mcpland/gitlab-mcp/pkg/policy"
	"github.com/mcpland/gitlab-mcp/pkg/tools"
)

// ServerName, together with the version passed to Build, identifies this
// bridge to MCP clients during the initialize handshake.
const ServerName = "gitlab-mcp"

// Build constructs an *server.MCPServer with every catalog tool that
// passes engine registered, plus a `health` tool. Each handler is a thin
// adapter that forwards (name, args) into pl and never mutates its
// output, per spec.md §4.8.
func Build(version string, engine *policy.Engine, pl *pipeline.Pipeline) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	mcpServer.AddTool(
		mcp.NewTool("health", mcp.WithDescription("Report bridge liveness; never subject to policy.")),
		handleHealth,
	)

	enabled := engine.FilterTools(descriptorsOf(tools.Catalog()))
	enabledNames := make(map[string]bool, len(enabled))
	for _, d := range enabled {
		enabledNames[d.Name] = true
	}

	for _, t := range tools.Catalog() {
		if !enabledNames[t.Name] {
			continue
		}
		mcpServer.AddTool(
			mcp.NewTool(t.Name, mcp.WithDescription(toolDescription(t))),
			adaptHandler(t, pl),
		)
	}

	return mcpServer
}

func descriptorsOf(catalog []tools.Descriptor) []policy.ToolDescriptor {
	out := make([]policy.ToolDescriptor, len(catalog))
	for i, d := range catalog {
		out[i] = d.ToolDescriptor
	}
	return out
}

func toolDescription(t tools.Descriptor) string {
	if t.RequiresGraphql {
		return "GitLab GraphQL operation: " + t.Name
	}
	return "GitLab REST operation: " + t.Name
}

func handleHealth(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

// adaptHandler forwards (name, args) into the pipeline and converts its
// ToolResult into the *mcp.CallToolResult shape the SDK expects. The
// adapter never reinterprets or mutates the pipeline's output.
func adaptHandler(t tools.Descriptor, pl *pipeline.Pipeline) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := pl.Invoke(ctx, t, req.GetArguments())
		text := ""
		if len(result.Content) > 0 {
			text = result.Content[0].Text
		}
		if result.IsError {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}
