package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"mercator-hq/cachescript/pkg/telemetry/tracing"
)

// Response is the outcome of a completed fetch. Any status is reported;
// callers decide what counts as success.
type Response struct {
	// StatusCode is the HTTP status of the final attempt.
	StatusCode int

	// Body is the response body, read in full.
	Body string

	// URL is the absolute URL that was requested.
	URL string

	// Attempts is the number of requests made.
	Attempts int

	// Duration covers all attempts including backoff.
	Duration time.Duration
}

// OK reports whether the response status is 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Config configures an HTTPFetcher.
type Config struct {
	// BaseURL resolves relative resource URLs. Optional.
	BaseURL string

	// Timeout bounds a single attempt.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for
	// transport errors and 5xx responses.
	MaxRetries int

	// Backoff is the delay before the first retry; it doubles per retry.
	// Default: 1 second
	Backoff time.Duration

	// MaxBodyBytes limits the size of a response body. 0 means 10 MiB.
	MaxBodyBytes int64

	// UserAgent is sent with every request.
	UserAgent string

	// MaxIdleConnsPerHost sizes the connection pool.
	// Default: 10
	MaxIdleConnsPerHost int
}

// ErrBodyTooLarge is returned when a response exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("fetch: response body too large")

// HTTPFetcher fetches resource content over HTTP with connection pooling,
// per-attempt timeouts and retry with exponential backoff.
type HTTPFetcher struct {
	config Config
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// New creates an HTTPFetcher.
func New(cfg Config) (*HTTPFetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries cannot be negative")
	}

	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
		}
		base = u
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConnsPerHost * 4,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPFetcher{
		config: cfg,
		base:   base,
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger: slog.Default().With("component", "fetch"),
	}, nil
}

// Resolve turns a manifest URL into an absolute URL.
func (f *HTTPFetcher) Resolve(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if f.base == nil {
		return "", fmt.Errorf("relative url %q requires a base url", rawURL)
	}
	return f.base.ResolveReference(u).String(), nil
}

// Get fetches rawURL. Transport errors and 5xx responses are retried; any
// other status is returned as-is. An error is returned only when no
// response could be obtained.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	target, err := f.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		lastErr  error
		lastResp *Response
	)

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * f.config.Backoff
			f.logger.Debug("retrying fetch",
				"url", target,
				"attempt", attempt,
				"max_retries", f.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := f.do(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrBodyTooLarge) {
				return nil, err
			}
			lastErr = err
			f.logger.Warn("fetch failed, will retry", "url", target, "attempt", attempt+1, "error", err)
			continue
		}

		resp.Attempts = attempt + 1
		resp.Duration = time.Since(start)
		if resp.StatusCode < 500 {
			return resp, nil
		}

		lastResp = resp
		lastErr = nil
		f.logger.Warn("fetch returned server error, will retry",
			"url", target,
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	if lastResp != nil {
		lastResp.Duration = time.Since(start)
		return lastResp, nil
	}
	return nil, fmt.Errorf("fetch %s: %w", target, lastErr)
}

func (f *HTTPFetcher) do(ctx context.Context, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, target, f.config.MaxBodyBytes)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		URL:        target,
	}, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
