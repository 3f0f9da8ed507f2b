// Package fetchapi is the HTTP client for the remote dog catalog API.
// Every request carries the session cookie from the client's jar and a JSON content type;
// every failure surfaces as *domain.APIError.
package fetchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/kailas-cloud/pawmatch/internal/domain"
	"github.com/kailas-cloud/pawmatch/internal/metrics"
)

// Catalog API endpoints.
const (
	EndpointLogin     = "/auth/login"
	EndpointLogout    = "/auth/logout"
	EndpointBreeds    = "/dogs/breeds"
	EndpointSearch    = "/dogs/search"
	EndpointDogs      = "/dogs"
	EndpointMatch     = "/dogs/match"
	EndpointLocations = "/locations"
)

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read for message extraction.
const maxErrorBody = 64 << 10

// Config holds the catalog client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
	// Transport overrides the HTTP transport (tests, proxies). Nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the catalog API on behalf of one session.
// The cookie jar is private to the client, so two sessions never share credentials.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a catalog client with its own cookie jar.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("fetchapi: base url is required")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("fetchapi: create cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
		logger: logger,
	}, nil
}

// Do issues a request against endpoint (a path, optionally with a query string).
// body, when non-nil, is JSON-encoded. Non-2xx responses and network failures
// are returned as *domain.APIError; on success the caller owns the response body.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("fetchapi: encode %s body: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, domain.NewAPIError(
			fmt.Sprintf("Network error while accessing %s: %v", endpoint, err), 0, endpoint,
		)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	label := endpointLabel(endpoint)
	start := time.Now()

	resp, err := c.http.Do(req)

	duration := time.Since(start)
	metrics.UpstreamRequestDuration.WithLabelValues(label).Observe(duration.Seconds())

	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		metrics.UpstreamErrorsTotal.WithLabelValues(label, "transport").Inc()
		c.logger.Warn("Catalog API unreachable",
			zap.String("endpoint", endpoint),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, domain.NewAPIError(
			fmt.Sprintf("Network error while accessing %s: %v", endpoint, err), 0, endpoint,
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := ParseError(resp.StatusCode, statusText(resp), data, endpoint)

		errType := "api"
		if domain.IsAuthExpired(apiErr) {
			errType = "auth_expired"
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		metrics.UpstreamErrorsTotal.WithLabelValues(label, errType).Inc()
		c.logger.Warn("Catalog API error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", duration),
			zap.Error(apiErr),
		)
		return nil, apiErr
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(label, "success").Inc()
	c.logger.Debug("Catalog API call completed",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

// doJSON runs Do and decodes a 2xx body into out (skipped when out is nil).
func (c *Client) doJSON(ctx context.Context, method, endpoint string, in, out any) error {
	resp, err := c.Do(ctx, method, endpoint, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(endpointLabel(endpoint), "decode").Inc()
		return domain.NewAPIError(
			fmt.Sprintf("Invalid response from %s: %v", endpoint, err), resp.StatusCode, endpoint,
		)
	}
	return nil
}

// ParseError converts a non-2xx response into a typed error.
// A JSON body with a non-empty "message" wins; otherwise the status text is used.
func ParseError(status int, statusText string, body []byte, endpoint string) error {
	msg := "API Error: " + statusText
	if detail := extractMessage(body); detail != "" {
		msg = detail
	}
	return domain.NewAPIError(msg, status, endpoint)
}

// extractMessage reads the "message" field from a JSON error body.
func extractMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Message
	}
	return ""
}

func statusText(resp *http.Response) string {
	if t := http.StatusText(resp.StatusCode); t != "" {
		return t
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}

// endpointLabel strips the query string so metric labels stay bounded.
func endpointLabel(endpoint string) string {
	path, _, _ := strings.Cut(endpoint, "?")
	return path
}
