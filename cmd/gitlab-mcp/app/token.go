// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/oauth2"

	"github.com/mcpland/gitlab-mcp/pkg/config"
	"github.com/mcpland/gitlab-mcp/pkg/gitlabauth"
)

// resolveStaticAuth builds the single AuthContext used for every outgoing
// request when REMOTE_AUTHORIZATION is false (the single-tenant process
// credential, as opposed to per-request header extraction in pkg/httpfront).
// Precedence: a personal access token, then a token-minting script, then a
// token file, then an OAuth access token — the first configured source
// wins, matching the order GITLAB_* auth variables are documented in.
func resolveStaticAuth(cfg config.AuthConfig) (*gitlabauth.AuthContext, error) {
	switch {
	case cfg.PersonalAccessToken != "":
		return &gitlabauth.AuthContext{Header: gitlabauth.HeaderPrivateToken, Token: cfg.PersonalAccessToken}, nil

	case cfg.TokenScript != "":
		token, err := runTokenScript(cfg.TokenScript)
		if err != nil {
			return nil, err
		}
		return &gitlabauth.AuthContext{Header: gitlabauth.HeaderPrivateToken, Token: token}, nil

	case cfg.TokenFile != "":
		token, err := readTokenFile(cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		return &gitlabauth.AuthContext{Header: gitlabauth.HeaderPrivateToken, Token: token}, nil

	case cfg.UseOAuth:
		token, err := resolveOAuthToken(cfg.OAuthAccessToken)
		if err != nil {
			return nil, err
		}
		return &gitlabauth.AuthContext{Header: gitlabauth.HeaderAuthorization, Token: "Bearer " + token}, nil

	default:
		return nil, fmt.Errorf("no GitLab credential configured: set GITLAB_PERSONAL_ACCESS_TOKEN, GITLAB_TOKEN_SCRIPT, GITLAB_TOKEN_FILE, or GITLAB_USE_OAUTH")
	}
}

func runTokenScript(path string) (string, error) {
	out, err := exec.Command(path).Output()
	if err != nil {
		return "", fmt.Errorf("running GITLAB_TOKEN_SCRIPT %q: %w", path, err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("GITLAB_TOKEN_SCRIPT %q produced no output", path)
	}
	return token, nil
}

func readTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading GITLAB_TOKEN_FILE %q: %w", path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("GITLAB_TOKEN_FILE %q is empty", path)
	}
	return token, nil
}

// resolveOAuthToken wraps accessToken in a static oauth2.TokenSource and
// reads it back once. Minting the token in the first place — client
// credentials exchange, refresh flows — is out of scope; this only plugs a
// pre-minted token into the typed seam the rest of the stack expects.
func resolveOAuthToken(accessToken string) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("GITLAB_USE_OAUTH is set but GITLAB_OAUTH_ACCESS_TOKEN is empty")
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	tok, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("reading oauth2 token source: %w", err)
	}
	return tok.AccessToken, nil
}

// withStaticAuth is the stdio equivalent of pkg/httpfront's
// WithHTTPContextFunc wiring: every tool call gets the same process-wide
// AuthContext injected, since there is no per-request header to extract.
func withStaticAuth(auth *gitlabauth.AuthContext) func(ctx context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return gitlabauth.WithAuthContext(ctx, auth)
	}
}
