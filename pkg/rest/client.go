// Package rest is the minimal request/response collaborator of the
// gateway engine. Its single duty is resolving the gateway URL (plus
// the sharding advice that comes with it); it is not a general API
// client.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the versioned API root.
const DefaultBaseURL = "https://discord.com/api/v10"

const userAgent = "gatewire (https://github.com/gatewire-dev/gatewire)"

// APIError reports a non-2xx API response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest: api returned %d: %s", e.Status, e.Body)
}

// BotGateway is the /gateway/bot response: where to connect, how many
// shards the API recommends, and the identify budget.
type BotGateway struct {
	URL               string            `json:"url"`
	Shards            int               `json:"shards"`
	SessionStartLimit SessionStartLimit `json:"session_start_limit"`
}

// SessionStartLimit is the identify budget attached to /gateway/bot.
type SessionStartLimit struct {
	Total          int `json:"total"`
	Remaining      int `json:"remaining"`
	ResetAfter     int `json:"reset_after"`
	MaxConcurrency int `json:"max_concurrency"`
}

// Client resolves gateway URLs. The zero value is not usable; construct
// with NewClient.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (loopback servers in tests).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a resolver authenticating with the given token.
// A bare token gets the "Bot " scheme prefixed; a pre-prefixed token is
// passed through untouched.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      normalizeToken(token),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "rest")
	return c
}

// GatewayURL fetches the public gateway URL. No authentication needed.
func (c *Client) GatewayURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "/gateway", false, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("rest: /gateway returned no url")
	}
	c.logger.Debug("resolved gateway url", "url", out.URL)
	return out.URL, nil
}

// BotGateway fetches the authenticated gateway descriptor with shard
// advice and the session-start budget.
func (c *Client) BotGateway(ctx context.Context) (*BotGateway, error) {
	var out BotGateway
	if err := c.get(ctx, "/gateway/bot", true, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, fmt.Errorf("rest: /gateway/bot returned no url")
	}
	c.logger.Debug("resolved bot gateway",
		"url", out.URL,
		"shards", out.Shards,
		"identifies_remaining", out.SessionStartLimit.Remaining)
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, auth bool, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("rest: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if auth && c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("rest: read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("rest: decode %s response: %w", path, err)
	}
	return nil
}

// Redact shortens a token for log output. Tokens never appear whole in
// logs.
func Redact(token string) string {
	token = strings.TrimPrefix(token, "Bot ")
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}

func normalizeToken(token string) string {
	if token == "" || strings.HasPrefix(token, "Bot ") || strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bot " + token
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
