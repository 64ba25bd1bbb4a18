// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gitlabclient issues REST and GraphQL requests against one or more
// upstream GitLab API URLs, on behalf of the tool pipeline (spec.md §4.5,
// C5). It never classifies GraphQL query vs. mutation — that's the
// pipeline's job — and never chooses an auth header — that's C6's.
package gitlabclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	mcperrors "github.com/mcpland/gitlab-mcp/pkg/errors"
	"github.com/mcpland/gitlab-mcp/pkg/sanitize"
)

// ListOptions carries GitLab's common page/per_page/scope query params.
type ListOptions struct {
	Page    int
	PerPage int
	Extra   map[string]string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(o.PerPage))
	}
	for k, val := range o.Extra {
		v.Set(k, val)
	}
	return v
}

// Client is the upstream contract: one method per supported GitLab
// operation, plus the single GraphQL endpoint.
type Client interface {
	GetProject(ctx context.Context, idOrPath string) (any, error)
	ListProjects(ctx context.Context, opts ListOptions) (any, error)

	CreateIssue(ctx context.Context, projectID string, body map[string]any) (any, error)
	GetIssue(ctx context.Context, projectID string, issueIID int) (any, error)
	ListIssues(ctx context.Context, projectID string, opts ListOptions) (any, error)

	CreateMergeRequest(ctx context.Context, projectID string, body map[string]any) (any, error)
	GetMergeRequest(ctx context.Context, projectID string, mrIID int) (any, error)
	ListMergeRequests(ctx context.Context, projectID string, opts ListOptions) (any, error)

	GetPipeline(ctx context.Context, projectID string, pipelineID int) (any, error)
	ListPipelines(ctx context.Context, projectID string, opts ListOptions) (any, error)

	GetRelease(ctx context.Context, projectID string, tagName string) (any, error)
	ListReleases(ctx context.Context, projectID string, opts ListOptions) (any, error)

	ListWikiPages(ctx context.Context, projectID string, opts ListOptions) (any, error)
	GetWikiPage(ctx context.Context, projectID string, slug string) (any, error)

	ListMilestones(ctx context.Context, projectID string, opts ListOptions) (any, error)
	GetMilestone(ctx context.Context, projectID string, milestoneID int) (any, error)

	UploadFile(ctx context.Context, projectID string, filename string, content []byte) (any, error)
	GetCommit(ctx context.Context, projectID string, sha string) (any, error)
	GetCurrentUser(ctx context.Context) (any, error)

	ExecuteGraphQL(ctx context.Context, query string, variables map[string]any) (any, error)
}

// RuntimeHook is the C6 seam: called once per outgoing request to add
// headers and cookies, and consulted before dispatch for a per-session API
// URL override.
type RuntimeHook interface {
	BeforeRequest(ctx context.Context, req *http.Request) error

	// ResolveAPIURL returns a per-session API URL override to dispatch
	// against instead of the configured apiURLs, when ctx carries one and
	// it is permitted. ok is false when there is no override, in which
	// case the caller falls back to its configured apiURLs.
	ResolveAPIURL(ctx context.Context) (override string, ok bool)
}

// httpClient is the net/http-based Client implementation. No GitLab REST
// SDK is used — none appears anywhere in the retrieved reference corpus,
// and this bridge only ever needs a handful of endpoint shapes.
type httpClient struct {
	httpClient *http.Client
	apiURLs    []string // tried in order; first success wins
	runtime    RuntimeHook
}

// New builds a Client that tries apiURLs in the order given, stopping at
// the first successful response.
func New(hc *http.Client, runtime RuntimeHook, apiURLs []string) Client {
	return &httpClient{httpClient: hc, apiURLs: apiURLs, runtime: runtime}
}

func (c *httpClient) GetProject(ctx context.Context, idOrPath string) (any, error) {
	return c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(idOrPath), nil, nil)
}

func (c *httpClient) ListProjects(ctx context.Context, opts ListOptions) (any, error) {
	return c.do(ctx, http.MethodGet, "/projects", opts.values(), nil)
}

func (c *httpClient) CreateIssue(ctx context.Context, projectID string, body map[string]any) (any, error) {
	return c.do(ctx, http.MethodPost, projectPath(projectID, "issues"), nil, body)
}

func (c *httpClient) GetIssue(ctx context.Context, projectID string, issueIID int) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "issues", itoa(issueIID)), nil, nil)
}

func (c *httpClient) ListIssues(ctx context.Context, projectID string, opts ListOptions) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "issues"), opts.values(), nil)
}

func (c *httpClient) CreateMergeRequest(ctx context.Context, projectID string, body map[string]any) (any, error) {
	return c.do(ctx, http.MethodPost, projectPath(projectID, "merge_requests"), nil, body)
}

func (c *httpClient) GetMergeRequest(ctx context.Context, projectID string, mrIID int) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "merge_requests", itoa(mrIID)), nil, nil)
}

func (c *httpClient) ListMergeRequests(ctx context.Context, projectID string, opts ListOptions) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "merge_requests"), opts.values(), nil)
}

func (c *httpClient) GetPipeline(ctx context.Context, projectID string, pipelineID int) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "pipelines", itoa(pipelineID)), nil, nil)
}

func (c *httpClient) ListPipelines(ctx context.Context, projectID string, opts ListOptions) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "pipelines"), opts.values(), nil)
}

func (c *httpClient) GetRelease(ctx context.Context, projectID string, tagName string) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "releases", url.PathEscape(tagName)), nil, nil)
}

func (c *httpClient) ListReleases(ctx context.Context, projectID string, opts ListOptions) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "releases"), opts.values(), nil)
}

func (c *httpClient) ListWikiPages(ctx context.Context, projectID string, opts ListOptions) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "wikis"), opts.values(), nil)
}

func (c *httpClient) GetWikiPage(ctx context.Context, projectID string, slug string) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "wikis", url.PathEscape(slug)), nil, nil)
}

func (c *httpClient) ListMilestones(ctx context.Context, projectID string, opts ListOptions) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "milestones"), opts.values(), nil)
}

func (c *httpClient) GetMilestone(ctx context.Context, projectID string, milestoneID int) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "milestones", itoa(milestoneID)), nil, nil)
}

func (c *httpClient) UploadFile(ctx context.Context, projectID string, filename string, content []byte) (any, error) {
	return c.do(ctx, http.MethodPost, projectPath(projectID, "uploads"), nil, map[string]any{
		"file":     content,
		"filename": filename,
	})
}

func (c *httpClient) GetCommit(ctx context.Context, projectID string, sha string) (any, error) {
	return c.do(ctx, http.MethodGet, projectPath(projectID, "repository", "commits", url.PathEscape(sha)), nil, nil)
}

func (c *httpClient) GetCurrentUser(ctx context.Context) (any, error) {
	return c.do(ctx, http.MethodGet, "/user", nil, nil)
}

func (c *httpClient) ExecuteGraphQL(ctx context.Context, query string, variables map[string]any) (any, error) {
	return c.doGraphQL(ctx, query, variables)
}

func projectPath(projectID string, segments ...string) string {
	path := "/projects/" + url.PathEscape(projectID)
	for _, s := range segments {
		path += "/" + s
	}
	return path
}

func itoa(n int) string { return strconv.Itoa(n) }

// do issues a REST call against the first apiURL that succeeds, in order.
// "Success" means the round-trip completed and got a response at all —
// a non-2xx upstream status is still a definitive answer from that URL and
// is returned immediately rather than tried against the next one.
func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	apiURLs := c.apiURLs
	if c.runtime != nil {
		if override, ok := c.runtime.ResolveAPIURL(ctx); ok {
			apiURLs = []string{override}
		}
	}
	if len(apiURLs) == 0 {
		return nil, mcperrors.ErrMissingAPIURLHeader
	}

	var lastErr error
	for _, base := range apiURLs {
		result, err := c.attempt(ctx, base, method, path, query, body)
		if err == nil {
			return result, nil
		}
		var netErr *mcperrors.NetworkError
		var timeoutErr *mcperrors.TimeoutError
		if errors.As(err, &netErr) || errors.As(err, &timeoutErr) {
			lastErr = err
			continue // try the next API URL on transport failure only
		}
		return nil, err // GitLabAPIError or validation error: definitive
	}
	return nil, lastErr
}

func (c *httpClient) attempt(ctx context.Context, base, method, path string, query url.Values, body any) (any, error) {
	fullURL := base + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gitlabclient: encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("gitlabclient: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.runtime != nil {
		if err := c.runtime.BeforeRequest(ctx, req); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &mcperrors.TimeoutError{Cause: err}
		}
		return nil, &mcperrors.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &mcperrors.NetworkError{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &mcperrors.GitLabAPIError{Status: resp.StatusCode, Body: string(raw)}
	}

	if len(raw) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("gitlabclient: decoding response body: %w", err)
	}

	return sanitize.StripNulls(decoded), nil
}

func (c *httpClient) doGraphQL(ctx context.Context, query string, variables map[string]any) (any, error) {
	body := map[string]any{"query": query, "variables": variables}
	return c.do(ctx, http.MethodPost, "/graphql", nil, body)
}
