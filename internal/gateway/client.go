// Package gateway is the typed client for the Communication LTD
// backend. Every operation resolves to either the backend's response
// decoded verbatim or a single normalized *Error; callers never see
// transport details.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/communication-ltd/portal/pkg/logger"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxBodySize = 1 << 20 // 1MiB
)

type tokenKey struct{}

// WithToken returns a context that carries the session's bearer token.
// Authenticated operations attach it as an Authorization header.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext extracts the bearer token, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend's base URL, e.g. http://localhost:10000.
	BaseURL string
	// HTTPClient is used to execute requests. When nil, a default
	// client with a conservative timeout is used.
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil or has no timeout.
	Timeout time.Duration
	// MaxBodyBytes caps response bodies to prevent memory exhaustion.
	MaxBodyBytes int64
	// Logger records failed calls. Optional.
	Logger *logger.Logger
}

// Client issues requests against the backend REST API. It is stateless
// between calls and safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxBodyBytes int64
	log          *logger.Logger
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gateway: BaseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("gateway: BaseURL must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("gateway: BaseURL scheme must be http or https")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	} else if client.Timeout == 0 && cfg.Timeout > 0 {
		// The caller's client stays untouched; apply the timeout to
		// a private copy.
		withTimeout := *client
		withTimeout.Timeout = cfg.Timeout
		client = &withTimeout
	}

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodySize
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   client,
		maxBodyBytes: maxBodyBytes,
		log:          log.Component("gateway"),
	}, nil
}

// do executes one JSON round trip. body is marshaled when non-nil; the
// response is decoded into out when the call succeeds and out is
// non-nil. Failures always come back as *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Code: CodeValidation, Message: fmt.Sprintf("encode request body: %v", err)}
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &Error{Code: CodeValidation, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("backend unreachable")
		return connectivityError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("reading backend response failed")
		return connectivityError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ge := newHTTPError(resp.StatusCode, raw)
		c.log.WithFields(map[string]interface{}{
			"path":   path,
			"status": resp.StatusCode,
			"code":   ge.Code,
		}).Debug("backend call failed")
		return ge
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{
			Code:       CodeServer,
			StatusCode: resp.StatusCode,
			Message:    "the backend returned an unreadable response",
			cause:      err,
		}
	}
	return nil
}
