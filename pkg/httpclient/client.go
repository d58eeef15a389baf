package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// New creates an HTTP client from cfg. The client layers retry and
// logging transports over a pooled TLS transport.
func New(cfg Config) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseTransport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// Logging sits inside retry so every attempt is logged.
	var transport http.RoundTripper = newLoggingTransport(baseTransport, cfg.UserAgent)
	if cfg.RetryAttempts > 0 {
		transport = newRetryTransport(transport, cfg)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}
