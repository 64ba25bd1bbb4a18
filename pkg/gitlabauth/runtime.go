// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gitlabauth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	mcperrors "github.com/mcpland/gitlab-mcp/pkg/errors"
	"github.com/mcpland/gitlab-mcp/pkg/logger"
)

// RuntimeConfig mirrors the GITLAB_* environment variables read at startup
// (spec.md §6); pkg/config owns parsing them out of the environment.
type RuntimeConfig struct {
	DefaultAPIURL          string
	EnableDynamicAPIURL    bool
	CookieWarmupPath       string // empty disables warm-up
	TokenCacheTTL          time.Duration
	CloudflareBypassHeader string // header value to send, empty disables it
	UserAgent              string
	AcceptLanguage         string
}

// Runtime is the hook C5 calls per outgoing request: BeforeRequest
// mutates req in place to add the auth header, warm-up cookies, and any
// configured bypass headers, and ResolveAPIURL supplies a session's API
// URL override.
type Runtime struct {
	cfg        RuntimeConfig
	httpClient *http.Client

	mu         sync.Mutex
	cookies    []*http.Cookie
	cookiesAt  time.Time
	warmupOnce bool
}

// NewRuntime constructs a Runtime bound to httpClient, which it uses only
// for the one-shot cookie warm-up GET.
func NewRuntime(cfg RuntimeConfig, httpClient *http.Client) *Runtime {
	return &Runtime{cfg: cfg, httpClient: httpClient}
}

// BeforeRequest adds, in order: the caller's auth header, warm-up cookies
// (refreshed when the cache has expired), and cloudflare-bypass headers.
// It does not apply an API URL override; it returns ErrMissingAPIURLHeader
// when the AuthContext carries one while dynamic API URLs are disabled.
func (r *Runtime) BeforeRequest(ctx context.Context, req *http.Request) error {
	ac, _ := AuthContextFromContext(ctx)
	if ac == nil || ac.Token == "" {
		return mcperrors.ErrMissingRemoteAuthorization
	}

	switch ac.Header {
	case HeaderAuthorization:
		req.Header.Set("Authorization", ac.Token)
	case HeaderJobToken:
		req.Header.Set("Job-Token", ac.Token)
	case HeaderPrivateToken, "":
		req.Header.Set("PRIVATE-TOKEN", ac.Token)
	default:
		req.Header.Set(string(ac.Header), ac.Token)
	}

	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}
	if r.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", r.cfg.AcceptLanguage)
	}

	if ac.APIURL != "" && !r.cfg.EnableDynamicAPIURL {
		return mcperrors.ErrMissingAPIURLHeader
	}

	cookies, err := r.warmCookies(ctx)
	if err != nil {
		return err
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	if r.cfg.CloudflareBypassHeader != "" {
		req.Header.Set("X-Cloudflare-Bypass", r.cfg.CloudflareBypassHeader)
	}

	return nil
}

// ResolveAPIURL implements gitlabclient.RuntimeHook: it returns the
// session's bound API URL override when one was captured and
// EnableDynamicAPIURL permits honoring it, so the client dispatches
// against the overridden host instead of its configured apiURLs.
func (r *Runtime) ResolveAPIURL(ctx context.Context) (string, bool) {
	ac, _ := AuthContextFromContext(ctx)
	if ac == nil || ac.APIURL == "" || !r.cfg.EnableDynamicAPIURL {
		return "", false
	}
	return ac.APIURL, true
}

// warmCookies performs the one-shot warm-up GET the first time it's
// needed and caches the result for cfg.TokenCacheTTL, guarded by mu since
// multiple goroutines may race to warm the cache concurrently.
func (r *Runtime) warmCookies(ctx context.Context) ([]*http.Cookie, error) {
	if r.cfg.CookieWarmupPath == "" {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.warmupOnce && time.Since(r.cookiesAt) < r.cfg.TokenCacheTTL {
		return r.cookies, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.CookieWarmupPath, nil)
	if err != nil {
		return nil, fmt.Errorf("gitlabauth: building cookie warm-up request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		logger.Warnw("cookie warm-up request failed", "error", err, "path", r.cfg.CookieWarmupPath)
		return nil, &mcperrors.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	r.cookies = resp.Cookies()
	r.cookiesAt = time.Now()
	r.warmupOnce = true
	return r.cookies, nil
}
