package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBackoff = 5 * time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond
	return cfg
}

func countingServer(t *testing.T, handler func(attempt int32, w http.ResponseWriter)) (*httptest.Server, *int32) {
	t.Helper()
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(atomic.AddInt32(&attempts, 1), w)
	}))
	t.Cleanup(server.Close)
	return server, &attempts
}

func TestRetryTransportSuccessOnFirstAttempt(t *testing.T) {
	server, attempts := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
	})

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig())
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(attempts))
}

func TestRetryTransportRetriesOn5xx(t *testing.T) {
	server, attempts := countingServer(t, func(attempt int32, w http.ResponseWriter) {
		if attempt < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig())
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(attempts))
}

func TestRetryTransportHonorsRetryAfter(t *testing.T) {
	server, attempts := countingServer(t, func(attempt int32, w http.ResponseWriter) {
		if attempt == 1 {
			w.Header().Set("Retry-After", strconv.Itoa(0)) // invalid, falls back to backoff
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig())
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(attempts))
}

func TestRetryTransportDoesNotRetry4xx(t *testing.T) {
	server, attempts := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusNotFound)
	})

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig())
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(attempts))
}

func TestRetryTransportExhaustsRetries(t *testing.T) {
	server, attempts := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	cfg := fastRetryConfig()
	cfg.RetryAttempts = 2
	transport := newRetryTransport(http.DefaultTransport, cfg)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	// Last response is returned after the attempt budget is spent.
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(attempts))
}

func TestRetryTransportSkipsNonIdempotentMethods(t *testing.T) {
	server, attempts := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	transport := newRetryTransport(http.DefaultTransport, fastRetryConfig())
	req, err := http.NewRequest(http.MethodPost, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), atomic.LoadInt32(attempts))
}

func TestRetryTransportAllowsNonIdempotentWhenConfigured(t *testing.T) {
	server, attempts := countingServer(t, func(attempt int32, w http.ResponseWriter) {
		if attempt == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	cfg := fastRetryConfig()
	cfg.AllowNonIdempotentRetry = true
	transport := newRetryTransport(http.DefaultTransport, cfg)
	req, err := http.NewRequest(http.MethodPost, server.URL, nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(attempts))
}

func TestRetryTransportStopsOnCancelledContext(t *testing.T) {
	server, _ := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	cfg := fastRetryConfig()
	cfg.RetryBackoff = time.Second
	cfg.MaxBackoff = time.Second
	transport := newRetryTransport(http.DefaultTransport, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	// Cancel while the transport waits out the first backoff.
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = transport.RoundTrip(req)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoffIsCapped(t *testing.T) {
	cfg := fastRetryConfig()
	transport := newRetryTransport(http.DefaultTransport, cfg)

	for attempt := 1; attempt <= 10; attempt++ {
		delay := transport.calculateBackoff(attempt)
		// Cap plus 20% jitter headroom.
		assert.LessOrEqual(t, delay, cfg.MaxBackoff+cfg.MaxBackoff/5)
	}
}
