// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tools is the static catalog of GitLab tool descriptors, their
// argument validators, and their dispatch functions into pkg/gitlabclient.
// Concrete tool schemas are explicitly out of this bridge's scope (spec.md
// §1); this catalog is a representative slice covering every
// requiresFeature category and the three GraphQL-shaped tools, not an
// exhaustive mirror of the upstream GitLab API surface.
package tools

import (
	"context"
	"fmt"

	"github.com/mcpland/gitlab-mcp/pkg/gitlabclient"
	"github.com/mcpland/gitlab-mcp/pkg/policy"
)

// Feature flag names matched against policy.Config.EnabledFeatures.
const (
	FeatureWiki      = "wiki"
	FeatureMilestone = "milestone"
	FeaturePipeline  = "pipeline"
	FeatureRelease   = "release"
)

// Descriptor pairs a policy.ToolDescriptor with the argument validator and
// dispatch function the pipeline needs to actually run the tool.
type Descriptor struct {
	policy.ToolDescriptor
	Validate func(args map[string]any) error
	Invoke   func(ctx context.Context, client gitlabclient.Client, args map[string]any) (any, error)
}

func requireString(args map[string]any, field string) (string, error) {
	v, ok := args[field]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", field)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", field)
	}
	return s, nil
}

func requireInt(args map[string]any, field string) (int, error) {
	v, ok := args[field]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", field)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", field)
	}
}

func optionalListOptions(args map[string]any) gitlabclient.ListOptions {
	opts := gitlabclient.ListOptions{}
	if p, ok := args["page"].(float64); ok {
		opts.Page = int(p)
	}
	if pp, ok := args["per_page"].(float64); ok {
		opts.PerPage = int(pp)
	}
	return opts
}

func validateNoArgs(map[string]any) error { return nil }

// Catalog returns the full static tool catalog. It is built fresh on each
// call so callers never share mutable state.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_project"},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "project_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				id, _ := requireString(args, "project_id")
				return c.GetProject(ctx, id)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_list_projects"},
			Validate:       validateNoArgs,
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				return c.ListProjects(ctx, optionalListOptions(args))
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_create_issue", Mutating: true},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireString(args, "title")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				return c.CreateIssue(ctx, projectID, map[string]any{
					"title":       args["title"],
					"description": args["description"],
				})
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_issue"},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireInt(args, "issue_iid")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				iid, _ := requireInt(args, "issue_iid")
				return c.GetIssue(ctx, projectID, iid)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_list_issues"},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "project_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				return c.ListIssues(ctx, projectID, optionalListOptions(args))
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_create_merge_request", Mutating: true},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				if _, err := requireString(args, "source_branch"); err != nil {
					return err
				}
				if _, err := requireString(args, "target_branch"); err != nil {
					return err
				}
				_, err := requireString(args, "title")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				return c.CreateMergeRequest(ctx, projectID, map[string]any{
					"source_branch": args["source_branch"],
					"target_branch": args["target_branch"],
					"title":         args["title"],
				})
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_merge_request"},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireInt(args, "mr_iid")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				iid, _ := requireInt(args, "mr_iid")
				return c.GetMergeRequest(ctx, projectID, iid)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_list_merge_requests"},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "project_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				return c.ListMergeRequests(ctx, projectID, optionalListOptions(args))
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_pipeline", RequiresFeature: FeaturePipeline},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireInt(args, "pipeline_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				id, _ := requireInt(args, "pipeline_id")
				return c.GetPipeline(ctx, projectID, id)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_list_pipelines", RequiresFeature: FeaturePipeline},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "project_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				return c.ListPipelines(ctx, projectID, optionalListOptions(args))
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_release", RequiresFeature: FeatureRelease},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireString(args, "tag_name")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				tag, _ := requireString(args, "tag_name")
				return c.GetRelease(ctx, projectID, tag)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_list_releases", RequiresFeature: FeatureRelease},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "project_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				return c.ListReleases(ctx, projectID, optionalListOptions(args))
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_list_wiki_pages", RequiresFeature: FeatureWiki},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "project_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				return c.ListWikiPages(ctx, projectID, optionalListOptions(args))
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_wiki_page", RequiresFeature: FeatureWiki},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireString(args, "slug")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				slug, _ := requireString(args, "slug")
				return c.GetWikiPage(ctx, projectID, slug)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_list_milestones", RequiresFeature: FeatureMilestone},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "project_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				return c.ListMilestones(ctx, projectID, optionalListOptions(args))
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_milestone", RequiresFeature: FeatureMilestone},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireInt(args, "milestone_id")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				id, _ := requireInt(args, "milestone_id")
				return c.GetMilestone(ctx, projectID, id)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_upload_file", Mutating: true},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireString(args, "filename")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				filename, _ := requireString(args, "filename")
				content, _ := args["content"].(string)
				return c.UploadFile(ctx, projectID, filename, []byte(content))
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_commit"},
			Validate: func(args map[string]any) error {
				if _, err := requireString(args, "project_id"); err != nil {
					return err
				}
				_, err := requireString(args, "sha")
				return err
			},
			Invoke: func(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
				projectID, _ := requireString(args, "project_id")
				sha, _ := requireString(args, "sha")
				return c.GetCommit(ctx, projectID, sha)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_get_current_user"},
			Validate:       validateNoArgs,
			Invoke: func(ctx context.Context, c gitlabclient.Client, _ map[string]any) (any, error) {
				return c.GetCurrentUser(ctx)
			},
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_execute_graphql_query", RequiresGraphql: true},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "query")
				return err
			},
			Invoke: graphqlInvoke,
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_execute_graphql_mutation", RequiresGraphql: true, Mutating: true},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "query")
				return err
			},
			Invoke: graphqlInvoke,
		},
		{
			ToolDescriptor: policy.ToolDescriptor{Name: "gitlab_execute_graphql", RequiresGraphql: true, Mutating: true},
			Validate: func(args map[string]any) error {
				_, err := requireString(args, "query")
				return err
			},
			Invoke: graphqlInvoke,
		},
	}
}

func graphqlInvoke(ctx context.Context, c gitlabclient.Client, args map[string]any) (any, error) {
	query, _ := requireString(args, "query")
	variables, _ := args["variables"].(map[string]any)
	return c.ExecuteGraphQL(ctx, query, variables)
}
