// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gitlabauth carries per-request GitLab credentials through
// context.Context and injects them into outgoing upstream requests
// (spec.md §4.6, C6). Go's idiomatic stand-in for a task-local store is the
// request context, not a goroutine-local.
package gitlabauth

import "context"

// AuthHeader names which header carries the caller's credential.
type AuthHeader string

// Supported auth headers, matching the header the caller used so the
// upstream call is authenticated the same way the inbound request was.
const (
	HeaderPrivateToken  AuthHeader = "PRIVATE-TOKEN"
	HeaderAuthorization AuthHeader = "Authorization"
	HeaderJobToken      AuthHeader = "JOB-TOKEN"
)

// AuthContext is the per-request GitLab credential bundle extracted from
// the inbound MCP request and threaded to the upstream client.
type AuthContext struct {
	Header AuthHeader
	Token  string // raw credential value, header-ready (e.g. "Bearer xyz")
	APIURL string // optional per-request API URL override
}

type authContextKey struct{}

// WithAuthContext returns a copy of ctx carrying ac. A nil ac is a no-op
// that returns ctx unchanged, mirroring the teacher's nil-identity
// behavior for WithIdentity.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	if ac == nil {
		return ctx
	}
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthContextFromContext retrieves the AuthContext stored by
// WithAuthContext, if any.
func AuthContextFromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return ac, ok
}
