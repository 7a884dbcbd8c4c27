// Package apiclient is the uniform client of the hospital REST backend. It
// injects the bearer token on every request, throttles outgoing traffic,
// normalizes response envelopes and maps failures onto a small error taxonomy.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/ratelimit"
	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/metrics"
)

const maxBodyBytes = 8 << 20

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type ctxKey int

const (
	tokenKey ctxKey = iota
	requestIDKey
)

// WithToken overrides the client's token for calls made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// WithRequestID propagates an inbound request id to backend calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond and Burst throttle calls to the backend; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	Logger            zerolog.Logger
	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	bucket  *ratelimit.Bucket
	logger  zerolog.Logger
}

func New(cfg Config, tokens TokenSource) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("backend base URL must be http(s): %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if tokens == nil {
		tokens = StaticToken("")
	}

	c := &Client{baseURL: base, http: hc, tokens: tokens, logger: cfg.Logger}
	if cfg.RequestsPerSecond > 0 {
		burst := int64(cfg.Burst)
		if burst <= 0 {
			burst = 1
		}
		c.bucket = ratelimit.NewBucketWithRate(cfg.RequestsPerSecond, burst)
	}
	return c, nil
}

// WithTokens returns a client sharing transport and throttle but using tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends one request and returns the body of a 2xx response. Any other
// outcome is an *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, &APIError{Kind: KindTransport, Method: method, Path: path, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rid, _ := ctx.Value(requestIDKey).(string)
	if rid == "" {
		rid = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", rid)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	metrics.BackendRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		metrics.BackendRequestTotals.WithLabelValues(method, KindTransport.String()).Inc()
		c.logger.Warn().Err(err).Str("request_id", rid).Str("method", method).Str("path", path).Dur("latency", elapsed).Msg("backend unreachable")
		return nil, &APIError{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.BackendRequestTotals.WithLabelValues(method, KindTransport.String()).Inc()
		return nil, &APIError{Kind: KindTransport, Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug().
		Str("request_id", rid).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", elapsed).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newStatusError(method, path, resp.StatusCode, respBody)
		metrics.BackendRequestTotals.WithLabelValues(method, apiErr.Kind.String()).Inc()
		return nil, apiErr
	}
	metrics.BackendRequestTotals.WithLabelValues(method, "ok").Inc()
	return respBody, nil
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, http.MethodGet, "/", nil)
	if err != nil && !IsKind(err, KindTransport) {
		return nil
	}
	return err
}

func (c *Client) token(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey).(string); ok {
		return t
	}
	return c.tokens.Token()
}

func (c *Client) wait(ctx context.Context) error {
	if c.bucket == nil {
		return nil
	}
	d := c.bucket.Take(1)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetList fetches path and normalizes the collection envelope.
func GetList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	raw, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	items, err := DecodeList[T](raw)
	if err != nil {
		return nil, annotate(err, http.MethodGet, path)
	}
	return items, nil
}

// GetItem fetches path and normalizes the single-record envelope.
func GetItem[T any](ctx context.Context, c *Client, path string) (T, error) {
	raw, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	item, err := DecodeItem[T](raw)
	if err != nil {
		return item, annotate(err, http.MethodGet, path)
	}
	return item, nil
}

// Send issues a write and decodes the returned record. An empty 2xx body
// yields the zero value.
func Send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T
	raw, err := c.Do(ctx, method, path, body)
	if err != nil {
		return zero, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, nil
	}
	item, err := DecodeItem[T](raw)
	if err != nil {
		return zero, annotate(err, method, path)
	}
	return item, nil
}

func annotate(err error, method, path string) error {
	if apiErr, ok := err.(*APIError); ok {
		apiErr.Method = method
		apiErr.Path = path
		return apiErr
	}
	return fmt.Errorf("%s %s: %w", method, path, err)
}
