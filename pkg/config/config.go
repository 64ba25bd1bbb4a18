// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config reads the environment-variable surface named in
// spec.md §6 into plain structs, one per collaborator package. There is
// no config file format: the spec's configuration is env-var driven, so
// this package is a thin os.Getenv reader, not a viper binding layer.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcpland/gitlab-mcp/pkg/format"
	"github.com/mcpland/gitlab-mcp/pkg/pipeline"
	"github.com/mcpland/gitlab-mcp/pkg/policy"
)

// AuthConfig is the transport/credential environment surface.
type AuthConfig struct {
	APIURL              string
	APIURLs             []string
	PersonalAccessToken string
	TokenScript         string
	TokenFile           string
	UseOAuth            bool
	OAuthAccessToken    string
	RemoteAuthorization bool
	EnableDynamicAPIURL bool
}

// NetworkConfig is the outbound HTTP/TLS environment surface.
type NetworkConfig struct {
	HTTPTimeout      time.Duration
	HTTPProxy        string
	HTTPSProxy       string
	AllowInsecureTLS bool
	CACertPath       string
	UserAgent        string
	AcceptLanguage   string
	CloudflareBypass string
	CookieWarmupPath string
	TokenCacheTTL    time.Duration
}

// HTTPConfig is the streamable-HTTP front-end environment surface.
type HTTPConfig struct {
	Host                 string
	Port                 int
	JSONOnly             bool
	SSE                  bool
	MaxSessions          int
	SessionTimeout       time.Duration
	MaxRequestsPerMinute int
}

// LoadPolicy reads policy.Config from the GITLAB_* policy variables.
func LoadPolicy() policy.Config {
	return policy.Config{
		ReadOnly:                     envBool("GITLAB_READ_ONLY_MODE", false),
		AllowedTools:                 envList("GITLAB_ALLOWED_TOOLS"),
		DeniedToolsRegex:             os.Getenv("GITLAB_DENIED_TOOLS_REGEX"),
		EnabledFeatures:              featureFlags(),
		AllowGraphqlWithProjectScope: envBool("GITLAB_ALLOW_GRAPHQL_WITH_PROJECT_SCOPE", false),
		AllowedProjectIds:            envList("GITLAB_ALLOWED_PROJECT_IDS"),
	}
}

func featureFlags() map[string]bool {
	return map[string]bool{
		"wiki":      envBool("USE_GITLAB_WIKI", true),
		"milestone": envBool("USE_MILESTONE", true),
		"pipeline":  envBool("USE_PIPELINE", true),
		"release":   envBool("USE_RELEASE", true),
	}
}

// LoadFormat reads format.Options from the GITLAB_RESPONSE_MODE/
// GITLAB_MAX_RESPONSE_BYTES variables.
func LoadFormat() format.Options {
	mode := format.Mode(envString("GITLAB_RESPONSE_MODE", string(format.ModeJSON)))
	maxBytes := envInt("GITLAB_MAX_RESPONSE_BYTES", 0)
	return format.Options{Mode: mode, MaxBytes: maxBytes}
}

// LoadErrorDetailMode reads GITLAB_ERROR_DETAIL_MODE, defaulting to safe
// so a misconfigured deployment fails closed on secret exposure.
func LoadErrorDetailMode() pipeline.ErrorDetailMode {
	if envString("GITLAB_ERROR_DETAIL_MODE", "safe") == "full" {
		return pipeline.ErrorDetailFull
	}
	return pipeline.ErrorDetailSafe
}

// LoadAuth reads AuthConfig from the GITLAB_API_URL(S)/token variables.
func LoadAuth() AuthConfig {
	return AuthConfig{
		APIURL:              envString("GITLAB_API_URL", "https://gitlab.com/api/v4"),
		APIURLs:             envList("GITLAB_API_URLS"),
		PersonalAccessToken: os.Getenv("GITLAB_PERSONAL_ACCESS_TOKEN"),
		TokenScript:         os.Getenv("GITLAB_TOKEN_SCRIPT"),
		TokenFile:           os.Getenv("GITLAB_TOKEN_FILE"),
		UseOAuth:            envBool("GITLAB_USE_OAUTH", false),
		OAuthAccessToken:    os.Getenv("GITLAB_OAUTH_ACCESS_TOKEN"),
		RemoteAuthorization: envBool("REMOTE_AUTHORIZATION", false),
		EnableDynamicAPIURL: envBool("ENABLE_DYNAMIC_API_URL", false),
	}
}

// LoadNetwork reads NetworkConfig from the networking environment
// surface.
func LoadNetwork() NetworkConfig {
	return NetworkConfig{
		HTTPTimeout:      time.Duration(envInt("GITLAB_HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		HTTPProxy:        os.Getenv("HTTP_PROXY"),
		HTTPSProxy:       os.Getenv("HTTPS_PROXY"),
		AllowInsecureTLS: envString("NODE_TLS_REJECT_UNAUTHORIZED", "1") == "0",
		CACertPath:       os.Getenv("GITLAB_CA_CERT_PATH"),
		UserAgent:        os.Getenv("GITLAB_USER_AGENT"),
		AcceptLanguage:   os.Getenv("GITLAB_ACCEPT_LANGUAGE"),
		CloudflareBypass: os.Getenv("GITLAB_CLOUDFLARE_BYPASS"),
		CookieWarmupPath: os.Getenv("GITLAB_COOKIE_WARMUP_PATH"),
		TokenCacheTTL:    time.Duration(envInt("GITLAB_TOKEN_CACHE_SECONDS", 300)) * time.Second,
	}
}

// LoadHTTP reads HTTPConfig from the HTTP_*/MAX_*/SESSION_* variables.
func LoadHTTP() HTTPConfig {
	return HTTPConfig{
		Host:                 envString("HTTP_HOST", "127.0.0.1"),
		Port:                 envInt("HTTP_PORT", 3000),
		JSONOnly:             envBool("HTTP_JSON_ONLY", false),
		SSE:                  envBool("SSE", false),
		MaxSessions:          envInt("MAX_SESSIONS", 100),
		SessionTimeout:       time.Duration(envInt("SESSION_TIMEOUT_SECONDS", 3600)) * time.Second,
		MaxRequestsPerMinute: envInt("MAX_REQUESTS_PER_MINUTE", 0),
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
