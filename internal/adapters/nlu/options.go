package nlu

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/okian/boxskill/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithVersion sets the API version date.
func WithVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithIAMURL sets the IAM token endpoint used with the API key.
func WithIAMURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.iamURL = u
		}
	}
}

// WithHTTPClient sets the base HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTokenSource replaces the IAM exchange with ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithRetryAttempts sets the attempts per remote call.
func WithRetryAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithLanguage sets the language hint sent with the text.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
