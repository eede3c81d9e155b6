package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallstep/agentctl/pkg/log"
	"github.com/smallstep/agentctl/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	// DefaultHost is the public Smallstep API gateway
	DefaultHost = "gateway.smallstep.com"

	defaultTimeout = 30 * time.Second
	maxBodySize    = 10 << 20
)

// API is the set of authority calls the resource implementations use
type API interface {
	Get(ctx context.Context, path string) (map[string]any, error)
	Post(ctx context.Context, path string, body map[string]any) (map[string]any, error)
	Put(ctx context.Context, path string, body map[string]any) (map[string]any, error)
	Delete(ctx context.Context, path string) error
	Authorities(ctx context.Context) ([]Authority, error)
}

// Config configures the HTTP client
type Config struct {
	Host    string
	Token   string
	Timeout time.Duration
	// RateLimit is the maximum number of requests per second; zero disables
	// client-side limiting
	RateLimit float64
	UserAgent string
	// BaseURL overrides https://<Host>/api
	BaseURL string
}

// Client talks to the Smallstep API over HTTPS
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new authority client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("an API token is required")
	}
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://" + host + "/api"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "agentctl"
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      cfg.Token,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Get fetches a single object
func (c *Client) Get(ctx context.Context, path string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Post creates an object and returns the authority's representation of it
func (c *Client) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Put replaces an object and returns the authority's representation of it
func (c *Client) Put(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an object
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Authorities lists the authorities of the team the token belongs to
func (c *Client) Authorities(ctx context.Context) ([]Authority, error) {
	var out []Authority
	if err := c.do(ctx, http.MethodGet, "/authorities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := log.WithComponent("authority")
	logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Msg("Sending request")

	timer := metrics.NewTimer()
	resp, err := c.httpClient.Do(req)
	timer.ObserveDurationVec(metrics.AuthorityRequestDuration, method)
	if err != nil {
		metrics.AuthorityRequestsTotal.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("failed to %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.AuthorityRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", timer.Duration()).
		Msg("Received response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(method, path, resp, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}

func newError(method, path string, resp *http.Response, data []byte) *Error {
	aerr := &Error{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		aerr.Body = obj
		if msg, ok := obj["message"].(string); ok {
			aerr.Message = msg
		}
	}
	if aerr.Message == "" {
		aerr.Message = http.StatusText(resp.StatusCode)
	}
	return aerr
}

// Path joins escaped segments into an API path
func Path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
