// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the cobra command tree for the GitLab MCP bridge:
// serve (stdio transport), serve-http (streamable HTTP transport), and
// version.
package app

import (
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mcpland/gitlab-mcp/pkg/httpfront"
	"github.com/mcpland/gitlab-mcp/pkg/logger"
	mcpsession "github.com/mcpland/gitlab-mcp/pkg/session"
)

var envFilePath string

// NewRootCmd builds the root cobra command. --env-file loads KEY=VALUE
// pairs into the process environment before any subcommand runs, since
// every config value downstream is read directly from os.Getenv.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "gitlab-mcp",
		Short:   "MCP bridge exposing GitLab as a set of tool calls",
		Version: getVersion(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if envFilePath == "" {
				return nil
			}
			return loadEnvFile(envFilePath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFilePath, "env-file", "", "path to a KEY=VALUE env file loaded before startup")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newServeHTTPCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newServeCmd runs the bridge over the stdio transport, the default
// transport an MCP client launches as a subprocess.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the bridge over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := buildFromEnv()
			if err != nil {
				return err
			}

			opts := []server.StdioOption{}
			if !b.authCfg.RemoteAuthorization {
				auth, err := resolveStaticAuth(b.authCfg)
				if err != nil {
					return err
				}
				opts = append(opts, server.WithStdioContextFunc(withStaticAuth(auth)))
			}

			logger.Infof("gitlab-mcp %s serving stdio", getVersion())
			return server.ServeStdio(b.mcpServer, opts...)
		},
	}
}

// newServeHTTPCmd runs the bridge behind the streamable HTTP front end
// (spec.md §4.10, C10), including session lifecycle, capacity admission,
// and rate limiting.
func newServeHTTPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-http",
		Short: "Serve the bridge over streamable HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := buildFromEnv()
			if err != nil {
				return err
			}

			sessions := mcpsession.NewManager(b.httpCfg.SessionTimeout, b.httpCfg.MaxSessions)
			defer sessions.Shutdown()

			frontCfg := httpfront.Config{
				SSEEnabled:           b.httpCfg.SSE,
				RemoteAuthorization:  b.authCfg.RemoteAuthorization,
				EnableDynamicAPIURL:  b.authCfg.EnableDynamicAPIURL,
				MaxRequestsPerMinute: b.httpCfg.MaxRequestsPerMinute,
			}
			if !b.authCfg.RemoteAuthorization {
				auth, err := resolveStaticAuth(b.authCfg)
				if err != nil {
					return err
				}
				frontCfg.StaticAuth = auth
			}

			router := httpfront.NewRouter(frontCfg, sessions, b.mcpServer)

			addr := fmt.Sprintf("%s:%d", b.httpCfg.Host, b.httpCfg.Port)
			logger.Infof("gitlab-mcp %s serving HTTP on %s", getVersion(), addr)
			return http.ListenAndServe(addr, router)
		},
	}
}

// newVersionCmd prints the build-time-injected version string.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bridge version",
		RunE: func(_ *cobra.Command, _ []string) error {
			logger.Infof("gitlab-mcp version: %s", getVersion())
			return nil
		},
	}
}
