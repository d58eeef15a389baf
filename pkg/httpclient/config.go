package httpclient

import (
	"fmt"
	"time"
)

// Config controls timeout, retry, and identification settings for
// clients built by New.
type Config struct {
	// Timeout is the total request timeout, including retries.
	// Must be > 0.
	Timeout time.Duration

	// RetryAttempts is the maximum number of retries (0 disables retry).
	RetryAttempts int

	// RetryBackoff is the initial delay before the first retry.
	// Must be > 0 when RetryAttempts > 0.
	RetryBackoff time.Duration

	// MaxBackoff caps the backoff delay. Must be >= RetryBackoff.
	MaxBackoff time.Duration

	// UserAgent is the User-Agent header value. Required.
	UserAgent string

	// AllowNonIdempotentRetry enables retry for POST, PUT, PATCH, and
	// DELETE. Leave false unless the target API is idempotent.
	AllowNonIdempotentRetry bool
}

// DefaultConfig returns a Config with the defaults used by catalog
// fetchers.
func DefaultConfig() Config {
	return Config{
		Timeout:                 30 * time.Second,
		RetryAttempts:           3,
		RetryBackoff:            100 * time.Millisecond,
		MaxBackoff:              30 * time.Second,
		UserAgent:               "stacflow/1.0",
		AllowNonIdempotentRetry: false,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0, got %d", c.RetryAttempts)
	}
	if c.RetryAttempts > 0 {
		if c.RetryBackoff <= 0 {
			return fmt.Errorf("retry_backoff must be > 0 when retry_attempts > 0, got %v", c.RetryBackoff)
		}
		if c.MaxBackoff < c.RetryBackoff {
			return fmt.Errorf("max_backoff (%v) must be >= retry_backoff (%v)", c.MaxBackoff, c.RetryBackoff)
		}
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}
	return nil
}
