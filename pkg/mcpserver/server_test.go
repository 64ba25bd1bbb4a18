// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpland/gitlab-mcp/pkg/format"
	"github.com/mcpland/gitlab-mcp/pkg/gitlabclient"
	"github.com/mcpland/gitlab-mcp/pkg/pipeline"
	"github.com/mcpland/gitlab-mcp/pkg/policy"
	"github.com/mcpland/gitlab-mcp/pkg/tools"
)

func TestDescriptorsOf_PreservesPolicyRelevantFields(t *testing.T) {
	t.Parallel()

	catalog := tools.Catalog()
	descriptors := descriptorsOf(catalog)
	require.Len(t, descriptors, len(catalog))
	for i, d := range descriptors {
		assert.Equal(t, catalog[i].Name, d.Name)
		assert.Equal(t, catalog[i].Mutating, d.Mutating)
	}
}

func TestToolDescription_DistinguishesGraphqlTools(t *testing.T) {
	t.Parallel()

	graphqlTool := tools.Descriptor{ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_execute_graphql", RequiresGraphql: true}}
	restTool := tools.Descriptor{ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_project"}}

	assert.Contains(t, toolDescription(graphqlTool), "GraphQL")
	assert.Contains(t, toolDescription(restTool), "REST")
}

func TestHandleHealth_AlwaysReportsOK(t *testing.T) {
	t.Parallel()

	result, err := handleHealth(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)
}

type buildStubClient struct {
	gitlabclient.Client
}

func (buildStubClient) GetProject(_ context.Context, _ string) (any, error) {
	return map[string]any{"id": float64(7)}, nil
}

func newTestPipeline(t *testing.T, cfg policy.Config) *pipeline.Pipeline {
	t.Helper()
	engine, err := policy.NewEngine(cfg)
	require.NoError(t, err)
	return &pipeline.Pipeline{
		Policy:          engine,
		Client:          buildStubClient{},
		FormatOptions:   format.Options{Mode: format.ModeCompactJSON},
		ErrorDetailMode: pipeline.ErrorDetailSafe,
	}
}

func findTool(t *testing.T, name string) tools.Descriptor {
	t.Helper()
	for _, d := range tools.Catalog() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("tool %q not found", name)
	return tools.Descriptor{}
}

func TestAdaptHandler_SuccessProducesNonErrorResult(t *testing.T) {
	t.Parallel()

	pl := newTestPipeline(t, policy.Config{})
	handler := adaptHandler(findTool(t, "gitlab_get_project"), pl)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "gitlab_get_project", Arguments: map[string]any{"project_id": "group/project"}}}
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
}

func TestAdaptHandler_PolicyDenialProducesErrorResult(t *testing.T) {
	t.Parallel()

	pl := newTestPipeline(t, policy.Config{ReadOnly: true})
	handler := adaptHandler(findTool(t, "gitlab_create_issue"), pl)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "gitlab_create_issue", Arguments: map[string]any{
		"project_id": "group/project", "title": "bug",
	}}}
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestBuild_ReturnsServerUnderReadOnlyPolicy(t *testing.T) {
	t.Parallel()

	engine, err := policy.NewEngine(policy.Config{ReadOnly: true})
	require.NoError(t, err)
	pl := newTestPipeline(t, policy.Config{ReadOnly: true})

	srv := Build("test", engine, pl)
	assert.NotNil(t, srv)
}
