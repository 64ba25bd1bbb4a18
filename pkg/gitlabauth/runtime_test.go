// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gitlabauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpland/gitlab-mcp/pkg/errors"
)

func TestBeforeRequest_MissingAuthContextFails(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(RuntimeConfig{}, http.DefaultClient)
	req := httptest.NewRequest(http.MethodGet, "https://gitlab.example.com/api/v4/projects", nil)

	err := rt.BeforeRequest(context.Background(), req)
	require.ErrorIs(t, err, mcperrors.ErrMissingRemoteAuthorization)
}

func TestBeforeRequest_SetsHeaderMatchingCaller(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		header     AuthHeader
		token      string
		wantHeader string
		wantValue  string
	}{
		{"private token default", HeaderPrivateToken, "glpat-abc", "PRIVATE-TOKEN", "glpat-abc"},
		{"bearer authorization", HeaderAuthorization, "Bearer abc", "Authorization", "Bearer abc"},
		{"job token", HeaderJobToken, "job-abc", "Job-Token", "job-abc"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rt := NewRuntime(RuntimeConfig{}, http.DefaultClient)
			req := httptest.NewRequest(http.MethodGet, "https://gitlab.example.com/api/v4/projects", nil)
			ctx := WithAuthContext(context.Background(), &AuthContext{Header: tc.header, Token: tc.token})

			require.NoError(t, rt.BeforeRequest(ctx, req))
			assert.Equal(t, tc.wantValue, req.Header.Get(tc.wantHeader))
		})
	}
}

func TestBeforeRequest_APIURLOverrideRejectedWhenDynamicDisabled(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(RuntimeConfig{EnableDynamicAPIURL: false}, http.DefaultClient)
	req := httptest.NewRequest(http.MethodGet, "https://gitlab.example.com/api/v4/projects", nil)
	ctx := WithAuthContext(context.Background(), &AuthContext{
		Header: HeaderPrivateToken, Token: "glpat-abc", APIURL: "https://other.example.com/api/v4",
	})

	err := rt.BeforeRequest(ctx, req)
	require.ErrorIs(t, err, mcperrors.ErrMissingAPIURLHeader)
}

func TestBeforeRequest_APIURLOverrideAllowedWhenDynamicEnabled(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(RuntimeConfig{EnableDynamicAPIURL: true}, http.DefaultClient)
	req := httptest.NewRequest(http.MethodGet, "https://gitlab.example.com/api/v4/projects", nil)
	ctx := WithAuthContext(context.Background(), &AuthContext{
		Header: HeaderPrivateToken, Token: "glpat-abc", APIURL: "https://other.example.com/api/v4",
	})

	require.NoError(t, rt.BeforeRequest(ctx, req))
}

func TestBeforeRequest_WarmsAndCachesCookies(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "warm"})
	}))
	t.Cleanup(srv.Close)

	rt := NewRuntime(RuntimeConfig{CookieWarmupPath: srv.URL, TokenCacheTTL: time.Minute}, srv.Client())
	ctx := WithAuthContext(context.Background(), &AuthContext{Header: HeaderPrivateToken, Token: "glpat-abc"})

	req1 := httptest.NewRequest(http.MethodGet, "https://gitlab.example.com/api/v4/projects", nil)
	require.NoError(t, rt.BeforeRequest(ctx, req1))
	assert.Equal(t, "warm", cookieValue(req1, "session"))
	assert.Equal(t, 1, hits)

	req2 := httptest.NewRequest(http.MethodGet, "https://gitlab.example.com/api/v4/projects", nil)
	require.NoError(t, rt.BeforeRequest(ctx, req2))
	assert.Equal(t, 1, hits, "cached cookie must not re-trigger the warm-up GET")
}

func TestBeforeRequest_CloudflareBypassHeaderSetWhenConfigured(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(RuntimeConfig{CloudflareBypassHeader: "secret-bypass"}, http.DefaultClient)
	req := httptest.NewRequest(http.MethodGet, "https://gitlab.example.com/api/v4/projects", nil)
	ctx := WithAuthContext(context.Background(), &AuthContext{Header: HeaderPrivateToken, Token: "glpat-abc"})

	require.NoError(t, rt.BeforeRequest(ctx, req))
	assert.Equal(t, "secret-bypass", req.Header.Get("X-Cloudflare-Bypass"))
}

func cookieValue(req *http.Request, name string) string {
	c, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
