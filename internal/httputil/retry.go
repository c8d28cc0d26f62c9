// Package httputil provides the HTTP call helper shared by the Box and NLU
// adapters.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryBaseDelay is the first backoff delay between attempts. Tests override
// it to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// RetryMaxDelay caps the exponential backoff.
var RetryMaxDelay = 10 * time.Second

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether another attempt may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Do sends req and returns the response when it is 2xx; the caller closes
// its body. Other statuses yield a *StatusError with the body drained.
//
// Transport errors, 429 and 5xx are retried with exponential backoff until
// attempts are used up. attempts below 1 means a single try. onRetry, when
// set, is called before each new attempt.
func Do(ctx context.Context, client *http.Client, req *http.Request, attempts int, onRetry func(n uint, err error)) (*http.Response, error) {
	if attempts < 1 {
		attempts = 1
	}
	if client == nil {
		client = http.DefaultClient
	}
	if onRetry == nil {
		onRetry = func(uint, error) {}
	}

	var resp *http.Response
	err := retry.Do(
		func() error {
			r, err := send(ctx, client, req)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.RetryIf(retryable),
		retry.Attempts(uint(attempts)),
		retry.Delay(RetryBaseDelay),
		retry.MaxDelay(RetryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(onRetry),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func send(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	r := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, retry.Unrecoverable(err)
		}
		r.Body = body
	}

	resp, err := client.Do(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil, &StatusError{
		Method:     req.Method,
		URL:        req.URL.Redacted(),
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

func retryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
