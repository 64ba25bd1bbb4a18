// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mcpland/gitlab-mcp/pkg/config"
	"github.com/mcpland/gitlab-mcp/pkg/gitlabauth"
	"github.com/mcpland/gitlab-mcp/pkg/gitlabclient"
	"github.com/mcpland/gitlab-mcp/pkg/mcpserver"
	"github.com/mcpland/gitlab-mcp/pkg/netruntime"
	"github.com/mcpland/gitlab-mcp/pkg/pipeline"
	"github.com/mcpland/gitlab-mcp/pkg/policy"
)

// built bundles everything main needs to either serve stdio or mount the
// HTTP front, built once from the environment per spec.md §6.
type built struct {
	authCfg    config.AuthConfig
	networkCfg config.NetworkConfig
	httpCfg    config.HTTPConfig
	mcpServer  *server.MCPServer
}

// buildFromEnv reads every GITLAB_*/HTTP_*/MAX_*/SESSION_* variable and
// assembles the policy engine, upstream client, and tool pipeline behind a
// single *server.MCPServer, shared by both the stdio and HTTP entry points.
func buildFromEnv() (*built, error) {
	authCfg := config.LoadAuth()
	networkCfg := config.LoadNetwork()
	httpCfg := config.LoadHTTP()

	apiURLs := authCfg.APIURLs
	if len(apiURLs) == 0 {
		apiURLs = []string{authCfg.APIURL}
	}

	httpClient, err := netruntime.NewHttpClientBuilder().
		WithCABundle(networkCfg.CACertPath).
		Build()
	if err != nil {
		return nil, fmt.Errorf("building upstream http client: %w", err)
	}

	runtime := gitlabauth.NewRuntime(gitlabauth.RuntimeConfig{
		DefaultAPIURL:          authCfg.APIURL,
		EnableDynamicAPIURL:    authCfg.EnableDynamicAPIURL,
		CookieWarmupPath:       networkCfg.CookieWarmupPath,
		TokenCacheTTL:          networkCfg.TokenCacheTTL,
		CloudflareBypassHeader: networkCfg.CloudflareBypass,
		UserAgent:              networkCfg.UserAgent,
		AcceptLanguage:         networkCfg.AcceptLanguage,
	}, httpClient)

	client := gitlabclient.New(httpClient, runtime, apiURLs)

	engine, err := policy.NewEngine(config.LoadPolicy())
	if err != nil {
		return nil, fmt.Errorf("compiling policy: %w", err)
	}

	pl := &pipeline.Pipeline{
		Policy:          engine,
		Client:          client,
		FormatOptions:   config.LoadFormat(),
		ErrorDetailMode: config.LoadErrorDetailMode(),
	}

	mcpServer := mcpserver.Build(getVersion(), engine, pl)

	return &built{authCfg: authCfg, networkCfg: networkCfg, httpCfg: httpCfg, mcpServer: mcpServer}, nil
}
