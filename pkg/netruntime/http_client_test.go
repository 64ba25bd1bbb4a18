// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package netruntime

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewHttpClientBuilder_Defaults(t *testing.T) {
	t.Parallel()

	b := NewHttpClientBuilder()
	assert.Equal(t, HttpTimeout, b.clientTimeout)
	assert.Equal(t, 10*time.Second, b.tlsHandshakeTimeout)
	assert.Empty(t, b.caCertPath)
	assert.Empty(t, b.authTokenFile)
	assert.False(t, b.allowPrivate)
}

func TestHttpClientBuilder_FluentSettersReturnSameBuilder(t *testing.T) {
	t.Parallel()

	b := NewHttpClientBuilder()
	assert.Same(t, b, b.WithCABundle("/tmp/ca.crt"))
	assert.Same(t, b, b.WithTokenFromFile("/tmp/token"))
	assert.Same(t, b, b.WithPrivateIPs(true))
}

func TestBuild_BasicClientWrapsValidatingTransport(t *testing.T) {
	t.Parallel()

	client, err := NewHttpClientBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, HttpTimeout, client.Timeout)
	assert.IsType(t, &ValidatingTransport{}, client.Transport)
}

func TestBuild_PrivateIPsBlockedByDefault(t *testing.T) {
	t.Parallel()

	client, err := NewHttpClientBuilder().Build()
	require.NoError(t, err)
	transport := client.Transport.(*ValidatingTransport)
	httpTransport := transport.Transport.(*http.Transport)
	assert.NotNil(t, httpTransport.DialContext)
}

func TestBuild_PrivateIPsAllowedWhenRequested(t *testing.T) {
	t.Parallel()

	client, err := NewHttpClientBuilder().WithPrivateIPs(true).Build()
	require.NoError(t, err)
	transport := client.Transport.(*ValidatingTransport)
	httpTransport := transport.Transport.(*http.Transport)
	assert.Nil(t, httpTransport.DialContext)
}

func TestBuild_WithTokenFileWrapsOauth2Transport(t *testing.T) {
	t.Parallel()

	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("s3cr3t\n"), 0o600))

	client, err := NewHttpClientBuilder().WithTokenFromFile(tokenFile).Build()
	require.NoError(t, err)
	authTransport, ok := client.Transport.(*oauth2.Transport)
	require.True(t, ok)
	assert.IsType(t, &ValidatingTransport{}, authTransport.Base)
}

func TestBuild_MissingTokenFileErrors(t *testing.T) {
	t.Parallel()

	_, err := NewHttpClientBuilder().WithTokenFromFile("/nonexistent/token").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create token source")
}

func TestBuild_EmptyTokenFileErrors(t *testing.T) {
	t.Parallel()

	tokenFile := filepath.Join(t.TempDir(), "empty-token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("   \n"), 0o600))

	_, err := NewHttpClientBuilder().WithTokenFromFile(tokenFile).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth token file is empty")
}

func TestBuild_MissingCABundleErrors(t *testing.T) {
	t.Parallel()

	_, err := NewHttpClientBuilder().WithCABundle("/nonexistent/ca.crt").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read CA certificate bundle")
}

func TestBuild_InvalidCABundleErrors(t *testing.T) {
	t.Parallel()

	caFile := filepath.Join(t.TempDir(), "invalid-ca.crt")
	require.NoError(t, os.WriteFile(caFile, []byte("not a certificate"), 0o600))

	_, err := NewHttpClientBuilder().WithCABundle(caFile).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse CA certificate bundle")
}

type mockRoundTripper struct {
	response *http.Response
	err      error
}

func (m *mockRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	return m.response, m.err
}

func TestValidatingTransport_RejectsNonHTTPS(t *testing.T) {
	t.Parallel()

	transport := &ValidatingTransport{Transport: &mockRoundTripper{
		response: &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("ok"))},
	}}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/test", nil)
	require.NoError(t, err)

	_, err = transport.RoundTrip(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not HTTPS scheme")
}

func TestValidatingTransport_AllowsHTTPS(t *testing.T) {
	t.Parallel()

	transport := &ValidatingTransport{Transport: &mockRoundTripper{
		response: &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("ok"))},
	}}

	req, err := http.NewRequest(http.MethodGet, "https://example.com/test", nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestIsRemoteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "valid https url", input: "https://gitlab.example.com", expected: true},
		{name: "valid http url with path", input: "http://gitlab.example.com/api/v4", expected: true},
		{name: "localhost rejected", input: "http://localhost", expected: false},
		{name: "loopback ip rejected", input: "http://127.0.0.1:8080", expected: false},
		{name: "empty string rejected", input: "", expected: false},
		{name: "missing scheme rejected", input: "gitlab.example.com", expected: false},
		{name: "unsupported scheme rejected", input: "ftp://gitlab.example.com", expected: false},
		{name: "missing host rejected", input: "https://", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsRemoteURL(tt.input))
		})
	}
}
