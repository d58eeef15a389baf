// Package httpclient builds the HTTP clients used to talk to catalog
// APIs. Every client it returns shares the same behavior:
//
//   - Retries with exponential backoff and jitter for transient failures
//   - Request logging with sanitized URLs (credentials redacted)
//   - User-Agent header injection
//   - Run ID propagation via the X-Run-ID header
//   - TLS 1.2 minimum (TLS 1.3 preferred)
//   - Connection pooling
//
// # Usage
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Timeout = 60 * time.Second
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    return err
//	}
//	resp, err := client.Get("https://catalog.example.com/collections")
//
// # Retry behavior
//
// Transient failures are retried with exponential backoff:
//   - HTTP 5xx server errors
//   - HTTP 429 (rate limit), honoring the Retry-After header
//   - HTTP 408 (request timeout)
//   - Network errors (connection refused, reset, DNS failures)
//
// Other 4xx responses are returned as-is. Only idempotent methods (GET,
// HEAD, OPTIONS) are retried unless AllowNonIdempotentRetry is set.
//
// # Run ID propagation
//
// Requests carry the pipeline run ID so catalog-side logs can be joined
// with a specific workflow run:
//
//	ctx = httpclient.WithRunID(ctx, run.RunID)
//	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
package httpclient
