// Package fetch is the shared HTTP layer under every vendor API client:
// request pacing, a bounded retry budget for transient failures, a circuit
// breaker so a dead vendor endpoint fails fast instead of burning the whole
// retry budget per call, and JSON decoding of responses.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Transient reports whether the failure is worth retrying: rate limiting
// and server-side errors are, client errors are not.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configures a Client. Zero values fall back to the defaults noted
// on each field.
type Options struct {
	// MaxAttempts bounds retries per request, first attempt included.
	// Default 4.
	MaxAttempts int
	// RetryWindow bounds the total time spent retrying one request.
	// Default 30s.
	RetryWindow time.Duration
	// RequestsPerSecond paces outgoing calls. Default 10.
	RequestsPerSecond float64
	// Timeout is the per-request timeout. Default 60s.
	Timeout time.Duration

	Logger zerolog.Logger
}

// Client issues paced, retried HTTP requests and decodes JSON responses.
// One Client is constructed per run and shared by every stage that talks to
// the vendor.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]

	maxAttempts int
	retryWindow time.Duration
	log         zerolog.Logger
}

// New builds a Client from options.
func New(opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 4
	}
	if opts.RetryWindow <= 0 {
		opts.RetryWindow = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name: "vendor-api",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		maxAttempts: opts.MaxAttempts,
		retryWindow: opts.RetryWindow,
		log:         opts.Logger,
	}
}

// GetJSON issues a GET and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	body, err := c.do(ctx, http.MethodGet, url, header, nil)
	if err != nil {
		return err
	}
	return decodeJSON(body, url, out)
}

// PostJSON issues a POST with a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request body for %s: %w", url, err)
	}

	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, http.MethodPost, url, header, encoded)
	if err != nil {
		return err
	}
	return decodeJSON(body, url, out)
}

// do runs one request with the retry budget: up to maxAttempts attempts, all
// of them inside the retry window, transient failures only.
func (c *Client) do(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	deadline := time.Now().Add(c.retryWindow)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}

		resp, err := c.breaker.Execute(func() ([]byte, error) {
			return c.roundTrip(ctx, method, url, header, body)
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !transient(err) || attempt == c.maxAttempts || time.Now().After(deadline) {
			break
		}

		backoff := time.Duration(attempt) * time.Second
		c.log.Warn().
			Str("method", method).
			Str("url", url).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Err(err).
			Msg("transient API failure, retrying")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s %s: %w", method, url, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("%s %s: %w", method, url, lastErr)
}

func (c *Client) roundTrip(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url, Body: string(data)}
	}

	return data, nil
}

// transient classifies an error for the retry loop. Transport-level errors
// (connection reset, timeout) are transient; an open breaker is not, since
// retrying immediately cannot help.
func transient(err error) bool {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return false
	}
	if se, ok := err.(*StatusError); ok {
		return se.Transient()
	}
	return true
}

func decodeJSON(body []byte, url string, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
