// Package invidious is a client for the Invidious video metadata API.
// Invidious instances mirror YouTube catalog data behind a stable JSON
// API, which makes them a good lookup target for reconciling downloaded
// files against their source videos.
package invidious

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reelkeeperapp/reelkeeper-server/internal/ratelimit"
)

const (
	// Rate limit: public instances throttle aggressively, stay polite.
	defaultRPS   = 2.0
	defaultBurst = 3

	// HTTP client settings
	defaultTimeout = 30 * time.Second

	maxResults = 20
)

// Client is a rate-limited Invidious API client bound to one instance.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a client for the given instance base URL,
// e.g. "https://invidious.example.org".
func New(baseURL string, timeout time.Duration, rps float64, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q missing scheme or host", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if rps <= 0 {
		rps = defaultRPS
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		baseURL: u,
		limiter: ratelimit.New(rps, defaultBurst),
		logger:  logger,
	}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// doRequest executes an HTTP GET against the instance with rate limiting.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, c.baseURL.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := *c.baseURL
	u.Path = path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ReelKeeper/1.0")

	c.logger.Debug("invidious request",
		"host", c.baseURL.Host,
		"path", path,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
