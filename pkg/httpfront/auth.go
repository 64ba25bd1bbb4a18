// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpfront

import (
	"net/http"
	"strings"

	"github.com/mcpland/gitlab-mcp/pkg/gitlabauth"
)

// extractAuthContext parses the auth header and (optionally) the dynamic
// API URL override out of an incoming /mcp request, per spec.md §4.10. It
// returns (nil, "") when remoteAuthorization is disabled — auth then
// flows from process-wide environment configuration instead of per
// request.
func extractAuthContext(r *http.Request, remoteAuthorization, enableDynamicAPIURL bool) (*gitlabauth.AuthContext, string) {
	if !remoteAuthorization {
		return nil, ""
	}

	if v := r.Header.Get("Authorization"); v != "" {
		return authContextWithURL(gitlabauth.HeaderAuthorization, v, r, enableDynamicAPIURL), ""
	}
	if v := r.Header.Get("Private-Token"); v != "" {
		return authContextWithURL(gitlabauth.HeaderPrivateToken, v, r, enableDynamicAPIURL), ""
	}
	if v := r.Header.Get("Job-Token"); v != "" {
		return authContextWithURL(gitlabauth.HeaderJobToken, v, r, enableDynamicAPIURL), ""
	}

	return nil, "Missing remote authorization token"
}

func authContextWithURL(header gitlabauth.AuthHeader, token string, r *http.Request, enableDynamicAPIURL bool) *gitlabauth.AuthContext {
	ac := &gitlabauth.AuthContext{Header: header, Token: strings.TrimSpace(token)}
	if enableDynamicAPIURL {
		ac.APIURL = r.Header.Get("X-GitLab-API-URL")
	}
	return ac
}

// requireDynamicAPIURLHeader reports whether the X-GitLab-API-URL header
// is missing when ENABLE_DYNAMIC_API_URL requires it.
func requireDynamicAPIURLHeader(r *http.Request, enableDynamicAPIURL bool) bool {
	return enableDynamicAPIURL && r.Header.Get("X-GitLab-API-URL") == ""
}
