// internal/client/client.go
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/newthinker/polydash/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the backend connection settings
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// RateLimit is requests per second; zero disables limiting
	RateLimit float64
	Burst     int
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return core.ErrAPIStatus
}

// IsAuth reports a rejected or missing API key.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Retryable reports whether the backend may succeed on a later attempt.
func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Client talks to the bot backend
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	logger     *zap.Logger

	transport   http.RoundTripper
	middlewares []Middleware
	httpClient  *http.Client

	backoffMin time.Duration
	backoffMax time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithTransport replaces the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithMiddleware appends round-tripper middlewares after the logging layer.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, mw...)
	}
}

// WithMetrics records every round trip in rec.
func WithMetrics(rec UpstreamRecorder) Option {
	return WithMiddleware(RecordRoundTrips(rec))
}

// WithBackoff sets the retry delay bounds.
func WithBackoff(first, limit time.Duration) Option {
	return func(c *Client) {
		c.backoffMin = first
		c.backoffMax = limit
	}
}

// New creates a backend client
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("base url is required"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.Named("client"),
		transport:  DefaultTransport(),
		backoffMin: 250 * time.Millisecond,
		backoffMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	chain := append([]Middleware{LogRoundTrips(c.logger)}, c.middlewares...)
	c.httpClient = &http.Client{Transport: Wrap(c.transport, chain...)}

	return c, nil
}

// BaseURL returns the configured backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasAPIKey reports whether requests carry an API key
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// Get performs a GET against the backend and decodes the JSON body into T.
// Each call yields exactly one value or one error; retries are internal.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T

	body, err := c.get(ctx, path, query)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, core.WrapError(core.ErrDecode, fmt.Errorf("%s: %w", path, err))
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	b := &backoff.Backoff{
		Min:    c.backoffMin,
		Max:    c.backoffMax,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, core.WrapError(core.ErrTransport, err)
		}

		body, err := c.once(ctx, u)
		if err == nil {
			return body, nil
		}
		if attempt >= c.maxRetries || ctx.Err() != nil || !retryable(err) {
			return nil, err
		}

		wait := b.Duration()
		c.logger.Debug("retrying backend request",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, core.WrapError(core.ErrTransport, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) once(ctx context.Context, u string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrTransport, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Message: "API Error: " + statusText(resp)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.ErrTransport, fmt.Errorf("reading body: %w", err))
	}
	return body, nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// 4xx never retries; the same request would fail the same way.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return errors.Is(err, core.ErrTransport)
}
