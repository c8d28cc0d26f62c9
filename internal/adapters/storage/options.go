package storage

import (
	"net/http"
	"strings"

	"github.com/okian/boxskill/pkg/logger"
)

// Option applies a configuration option to the Box client.
type Option func(*Box)

// WithBaseURL sets the Box API base URL.
func WithBaseURL(url string) Option {
	return func(b *Box) {
		if url != "" {
			b.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client the bearer transport wraps.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Box) {
		if c != nil {
			b.httpClient = c
		}
	}
}

// WithRetryAttempts sets the attempts per remote call.
func WithRetryAttempts(n int) Option {
	return func(b *Box) {
		if n > 0 {
			b.attempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Box) {
		if l != nil {
			b.logger = l
		}
	}
}
