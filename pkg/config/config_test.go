// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcpland/gitlab-mcp/pkg/format"
	"github.com/mcpland/gitlab-mcp/pkg/pipeline"
)

func TestLoadPolicy_DefaultsToUnrestrictedAndAllFeaturesOn(t *testing.T) {
	cfg := LoadPolicy()
	assert.False(t, cfg.ReadOnly)
	assert.Empty(t, cfg.AllowedTools)
	assert.True(t, cfg.EnabledFeatures["wiki"])
	assert.True(t, cfg.EnabledFeatures["pipeline"])
}

func TestLoadPolicy_ReadsEnvOverrides(t *testing.T) {
	t.Setenv("GITLAB_READ_ONLY_MODE", "true")
	t.Setenv("GITLAB_ALLOWED_TOOLS", "get_project, gitlab_get_issue,")
	t.Setenv("USE_PIPELINE", "false")

	cfg := LoadPolicy()
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, []string{"get_project", "gitlab_get_issue"}, cfg.AllowedTools)
	assert.False(t, cfg.EnabledFeatures["pipeline"])
}

func TestLoadFormat_DefaultsToJSONUnbounded(t *testing.T) {
	opts := LoadFormat()
	assert.Equal(t, format.ModeJSON, opts.Mode)
	assert.Equal(t, 0, opts.MaxBytes)
}

func TestLoadFormat_ReadsResponseModeAndMaxBytes(t *testing.T) {
	t.Setenv("GITLAB_RESPONSE_MODE", "yaml")
	t.Setenv("GITLAB_MAX_RESPONSE_BYTES", "2048")

	opts := LoadFormat()
	assert.Equal(t, format.ModeYAML, opts.Mode)
	assert.Equal(t, 2048, opts.MaxBytes)
}

func TestLoadErrorDetailMode_DefaultsToSafe(t *testing.T) {
	assert.Equal(t, pipeline.ErrorDetailSafe, LoadErrorDetailMode())
}

func TestLoadErrorDetailMode_ReadsFull(t *testing.T) {
	t.Setenv("GITLAB_ERROR_DETAIL_MODE", "full")
	assert.Equal(t, pipeline.ErrorDetailFull, LoadErrorDetailMode())
}

func TestLoadAuth_Defaults(t *testing.T) {
	cfg := LoadAuth()
	assert.Equal(t, "https://gitlab.com/api/v4", cfg.APIURL)
	assert.False(t, cfg.RemoteAuthorization)
	assert.False(t, cfg.EnableDynamicAPIURL)
}

func TestLoadAuth_ParsesCommaSeparatedAPIURLs(t *testing.T) {
	t.Setenv("GITLAB_API_URLS", "https://a.example/api/v4, https://b.example/api/v4")
	cfg := LoadAuth()
	assert.Equal(t, []string{"https://a.example/api/v4", "https://b.example/api/v4"}, cfg.APIURLs)
}

func TestLoadNetwork_RejectUnauthorizedOnlyWhenExplicitlyZero(t *testing.T) {
	assert.False(t, LoadNetwork().AllowInsecureTLS)

	t.Setenv("NODE_TLS_REJECT_UNAUTHORIZED", "0")
	assert.True(t, LoadNetwork().AllowInsecureTLS)
}

func TestLoadHTTP_Defaults(t *testing.T) {
	cfg := LoadHTTP()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 100, cfg.MaxSessions)
}

func TestLoadHTTP_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")
	assert.Equal(t, 3000, LoadHTTP().Port)
}
