// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package httpfront wires the streamable-HTTP MCP transport to a chi
// router (spec.md §4.10, C10): session admission/lookup against C9,
// per-request auth header extraction, JSON-RPC protocol-error envelopes,
// and per-minute rate limiting. The actual MCP wire protocol (JSON-RPC
// framing, SSE upgrade) is handled by the mcp-go streamable HTTP server;
// this package is the authoritative owner of session lifecycle around it.
package httpfront

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/mcpland/gitlab-mcp/pkg/gitlabauth"
	"github.com/mcpland/gitlab-mcp/pkg/logger"
	mcpsession "github.com/mcpland/gitlab-mcp/pkg/session"
)

// requestIDHeader carries a per-request correlation id into log lines, set
// here rather than left to chi's built-in middleware.RequestID so the id is
// a real UUID instead of a process-local counter, useful when log lines
// from several gitlab-mcp instances are aggregated together.
const requestIDHeader = "X-Request-Id"

const sessionIDHeader = "Mcp-Session-Id"

// Config is the environment-derived surface this package needs, kept
// separate from pkg/config so this package has no import-time dependency
// on how configuration is sourced.
type Config struct {
	SSEEnabled           bool
	RemoteAuthorization  bool
	EnableDynamicAPIURL  bool
	MaxRequestsPerMinute int

	// StaticAuth, when set, is injected into every request's context in
	// place of per-request header extraction. Used when RemoteAuthorization
	// is false and a single process-wide credential authenticates every
	// call, mirroring stdio's WithStdioContextFunc wiring in cmd/gitlab-mcp.
	StaticAuth *gitlabauth.AuthContext
}

// NewRouter builds the chi router exposing /mcp, /healthz, and
// (optionally) /sse, backed by sessions and mcpServer.
func NewRouter(cfg Config, sessions *mcpsession.Manager, mcpServer *server.MCPServer) http.Handler {
	opts := []server.StreamableHTTPOption{}
	switch {
	case cfg.StaticAuth != nil:
		staticAuth := cfg.StaticAuth
		opts = append(opts, server.WithHTTPContextFunc(func(ctx context.Context, _ *http.Request) context.Context {
			return gitlabauth.WithAuthContext(ctx, staticAuth)
		}))
	case cfg.RemoteAuthorization:
		opts = append(opts, server.WithHTTPContextFunc(remoteAuthContextFunc(sessions)))
	}
	streamable := server.NewStreamableHTTPServer(mcpServer, opts...)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	if cfg.MaxRequestsPerMinute > 0 {
		r.Use(rateLimitMiddleware(cfg.MaxRequestsPerMinute))
	}

	front := &frontend{cfg: cfg, sessions: sessions, streamable: streamable}

	r.Get("/healthz", front.handleHealthz)
	r.Route("/mcp", func(mcpRouter chi.Router) {
		mcpRouter.Post("/", front.handleMCPPost)
		mcpRouter.Get("/", front.handleMCPGet)
		mcpRouter.Delete("/", front.handleMCPDelete)
	})
	if cfg.SSEEnabled {
		r.Get("/sse", front.handleLegacySSE)
	}

	return r
}

// remoteAuthContextFunc carries the AuthContext bound to a session at
// initialize (BindAuth) back into the context handed to tool handlers on
// every later request against that session. The per-request Mcp-Session-Id
// header is the only thing available to a WithHTTPContextFunc hook; it
// never sees whatever createSessionAndServe stored the first time around,
// so that state has to be looked back up here instead.
func remoteAuthContextFunc(sessions *mcpsession.Manager) func(context.Context, *http.Request) context.Context {
	return func(ctx context.Context, r *http.Request) context.Context {
		id := r.Header.Get(sessionIDHeader)
		if id == "" {
			return ctx
		}
		sess, ok := sessions.Get(id)
		if !ok {
			return ctx
		}
		return gitlabauth.WithAuthContext(ctx, sess.Auth())
	}
}

type frontend struct {
	cfg        Config
	sessions   *mcpsession.Manager
	streamable *server.StreamableHTTPServer
}

func (f *frontend) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":              "ok",
		"activeSessions":      f.sessions.ActiveCount(),
		"maxSessions":         f.sessions.MaxSessions(),
		"remoteAuthorization": f.cfg.RemoteAuthorization,
	})
}

// handleMCPPost handles both session creation (initialize, no session
// header present) and ongoing requests against an established session.
func (f *frontend) handleMCPPost(w http.ResponseWriter, r *http.Request) {
	auth, missing := extractAuthContext(r, f.cfg.RemoteAuthorization, f.cfg.EnableDynamicAPIURL)
	if missing != "" {
		writeJSONRPCError(w, http.StatusUnauthorized, CodeMissingRemoteAuth, missing)
		return
	}
	if requireDynamicAPIURLHeader(r, f.cfg.EnableDynamicAPIURL) {
		writeJSONRPCError(w, http.StatusBadRequest, CodeMissingAPIURLHeader, "Missing X-GitLab-API-URL header")
		return
	}

	existingID := r.Header.Get(sessionIDHeader)
	if existingID != "" {
		if _, ok := f.sessions.Get(existingID); !ok {
			writeJSONRPCError(w, http.StatusNotFound, CodeUnknownSession, "unknown mcp-session-id")
			return
		}
		f.streamable.ServeHTTP(w, r)
		return
	}

	f.createSessionAndServe(w, r, auth)
}

// createSessionAndServe admits a new streamable session, lets the
// underlying MCP transport mint and return its own session id, then
// registers that id with the session manager so capacity/idle tracking
// take over from here on.
func (f *frontend) createSessionAndServe(w http.ResponseWriter, r *http.Request, auth *gitlabauth.AuthContext) {
	admitted, release := f.sessions.Admit(mcpsession.KindStreamable)
	if !admitted {
		writeJSONRPCError(w, http.StatusServiceUnavailable, CodeCapacityExceeded, "session capacity exceeded")
		return
	}

	f.streamable.ServeHTTP(w, r)

	mintedID := w.Header().Get(sessionIDHeader)
	if mintedID == "" {
		// Not actually an initialize handshake (e.g. malformed request the
		// transport rejected before minting an id): no session to track.
		release()
		return
	}

	if _, err := f.sessions.RegisterAdmitted(mintedID, release); err != nil {
		logger.Warnf("session %s already tracked after transport handshake: %v", mintedID, err)
		release()
		return
	}

	if auth != nil {
		_ = f.sessions.BindAuth(mintedID, auth)
	}
}

func (f *frontend) handleMCPGet(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionIDHeader)
	if id == "" {
		writeJSONRPCError(w, http.StatusBadRequest, CodeMissingSessionID, "missing mcp-session-id header")
		return
	}
	if _, ok := f.sessions.Get(id); !ok {
		writeJSONRPCError(w, http.StatusNotFound, CodeUnknownSession, "unknown mcp-session-id")
		return
	}
	f.streamable.ServeHTTP(w, r)
}

func (f *frontend) handleMCPDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionIDHeader)
	if id == "" {
		writeJSONRPCError(w, http.StatusBadRequest, CodeMissingSessionID, "missing mcp-session-id header")
		return
	}
	if err := f.sessions.Delete(id); err != nil {
		writeJSONRPCError(w, http.StatusNotFound, CodeUnknownSession, "unknown mcp-session-id")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleLegacySSE admits an sse-kind session and hands off to the same
// underlying transport; enabled only when SSE=true.
func (f *frontend) handleLegacySSE(w http.ResponseWriter, r *http.Request) {
	admitted, release := f.sessions.Admit(mcpsession.KindSSE)
	if !admitted {
		writeJSONRPCError(w, http.StatusServiceUnavailable, CodeCapacityExceeded, "session capacity exceeded")
		return
	}
	defer release()
	f.streamable.ServeHTTP(w, r)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		logger.Debugw("http request", "method", r.Method, "path", r.URL.Path, "requestId", id)
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(perMinute int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSONRPCError(w, http.StatusTooManyRequests, CodeCapacityExceeded, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

