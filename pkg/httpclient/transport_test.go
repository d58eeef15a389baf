package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerEcho(t *testing.T, name string) (*httptest.Server, *string) {
	t.Helper()
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(name)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestLoggingTransportSetsUserAgent(t *testing.T) {
	server, got := headerEcho(t, "User-Agent")
	transport := newLoggingTransport(http.DefaultTransport, "test-agent/1.0")

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "test-agent/1.0", *got)
}

func TestLoggingTransportPreservesExistingUserAgent(t *testing.T) {
	server, got := headerEcho(t, "User-Agent")
	transport := newLoggingTransport(http.DefaultTransport, "test-agent/1.0")

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom-agent/2.0")

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "custom-agent/2.0", *got)
}

func TestLoggingTransportPropagatesRunID(t *testing.T) {
	server, got := headerEcho(t, "X-Run-ID")
	transport := newLoggingTransport(http.DefaultTransport, "test-agent/1.0")

	ctx := WithRunID(context.Background(), "run-123")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "run-123", *got)
}

func TestLoggingTransportNoRunIDWithoutContext(t *testing.T) {
	server, got := headerEcho(t, "X-Run-ID")
	transport := newLoggingTransport(http.DefaultTransport, "test-agent/1.0")

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, *got)
}

func TestRunIDRoundTripsThroughContext(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-9")
	assert.Equal(t, "run-9", RunIDFromContext(ctx))

	// Empty IDs are not attached.
	assert.Empty(t, RunIDFromContext(WithRunID(context.Background(), "")))
}
