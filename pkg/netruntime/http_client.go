// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package netruntime builds the outbound *http.Client used to reach GitLab,
// and the transport that enforces its transport-level invariants: HTTPS
// only, optional private/loopback address blocking, optional CA pinning and
// bearer-token auth from a file (spec.md §4.6, C6).
package netruntime

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// HttpTimeout is the overall per-request deadline applied to the built
// client, absent any shorter per-call context deadline.
const HttpTimeout = 30 * time.Second

// HttpClientBuilder assembles an *http.Client with a fluent interface; each
// With* method mutates and returns the same builder.
type HttpClientBuilder struct {
	clientTimeout         time.Duration
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
	caCertPath            string
	authTokenFile         string
	allowPrivate          bool
}

// NewHttpClientBuilder returns a builder with the package's fixed defaults.
func NewHttpClientBuilder() *HttpClientBuilder {
	return &HttpClientBuilder{
		clientTimeout:         HttpTimeout,
		tlsHandshakeTimeout:   10 * time.Second,
		responseHeaderTimeout: 10 * time.Second,
	}
}

// WithCABundle configures an additional CA certificate bundle to trust, on
// top of the system pool.
func (b *HttpClientBuilder) WithCABundle(path string) *HttpClientBuilder {
	b.caCertPath = path
	return b
}

// WithTokenFromFile configures a bearer token, read from path, to be
// attached to every outgoing request via an oauth2.Transport.
func (b *HttpClientBuilder) WithTokenFromFile(path string) *HttpClientBuilder {
	b.authTokenFile = path
	return b
}

// WithPrivateIPs controls whether the built client is permitted to dial
// loopback/private/link-local addresses. Defaults to false (blocked).
func (b *HttpClientBuilder) WithPrivateIPs(allow bool) *HttpClientBuilder {
	b.allowPrivate = allow
	return b
}

// Build assembles the *http.Client. Errors are returned, never panicked,
// since bad CA/token files are an operator configuration mistake, not a
// programming error.
func (b *HttpClientBuilder) Build() (*http.Client, error) {
	transport := &http.Transport{
		TLSHandshakeTimeout:   b.tlsHandshakeTimeout,
		ResponseHeaderTimeout: b.responseHeaderTimeout,
	}

	if b.caCertPath != "" {
		pool, err := loadCertPool(b.caCertPath)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}
	}

	if !b.allowPrivate {
		transport.DialContext = blockPrivateDialContext
	}

	var rt http.RoundTripper = &ValidatingTransport{Transport: transport}

	if b.authTokenFile != "" {
		token, err := readToken(b.authTokenFile)
		if err != nil {
			return nil, err
		}
		rt = &oauth2.Transport{
			Base:   rt,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}

	return &http.Client{
		Timeout:   b.clientTimeout,
		Transport: rt,
	}, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, fmt.Errorf("failed to parse CA certificate bundle at %s", path)
	}
	return pool, nil
}

func readToken(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to create token source: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("auth token file is empty: %s", path)
	}
	return token, nil
}

// blockPrivateDialContext refuses to dial loopback, private, link-local, or
// unspecified addresses, preventing GitLab tool calls from being used as an
// SSRF pivot into the host's own network.
func blockPrivateDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if isDisallowedIP(ip) {
			return nil, fmt.Errorf("netruntime: refusing to dial private/loopback address %s", ip)
		}
	}
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}

func isDisallowedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// ValidatingTransport wraps an http.RoundTripper and rejects any request
// that is not plain HTTPS before it reaches the network.
type ValidatingTransport struct {
	Transport http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *ValidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil || req.URL.Scheme != "https" {
		return nil, fmt.Errorf("netruntime: URL %q is not HTTPS scheme", req.URL)
	}
	return t.Transport.RoundTrip(req)
}

// IsRemoteURL reports whether s parses as an http(s) URL with a non-empty
// host that is not localhost or a loopback address. It does not reject
// private network ranges — those are blocked at dial time, not at the URL
// layer, since a hostname may only resolve to a private IP at call time.
func IsRemoteURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return false
	}
	return true
}
