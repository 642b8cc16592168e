package vrchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vrsleep/vrsleep/internal/domain"
)

const (
	// DefaultBaseURL is the vendor's fixed base path with version prefix.
	DefaultBaseURL = "https://api.vrchat.cloud/api/1"

	// DefaultUserAgent identifies the agent on every request. The vendor
	// rejects requests without a browser-like User-Agent.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	defaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 1 << 20
)

// Config carries the endpoint parameters shared by the session manager
// and the API client.
type Config struct {
	BaseURL   string
	UserAgent string
	// APIKey, when set, is appended as an apiKey query parameter to
	// every call.
	APIKey  string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultRequestTimeout
	}
	return c
}

// APIError is a non-2xx vendor response with the message extracted from
// its JSON error body when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vrchat api: %s (status %d)", e.Message, e.Status)
}

type transport struct {
	cfg  Config
	http *http.Client
}

func newTransport(cfg Config, httpClient *http.Client) *transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &transport{cfg: cfg.withDefaults(), http: httpClient}
}

func (t *transport) buildURL(path string) (string, error) {
	endpoint, err := url.Parse(t.cfg.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	if t.cfg.APIKey != "" {
		query := endpoint.Query()
		query.Set("apiKey", t.cfg.APIKey)
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}

// doJSON issues one request against the vendor API with a bounded
// timeout and returns the response (body already consumed) plus its
// decoded-raw JSON payload. Non-2xx responses come back as *APIError.
func (t *transport) doJSON(ctx context.Context, method string, path string, headers map[string]string, body any) (*http.Response, json.RawMessage, error) {
	endpoint, err := t.buildURL(path)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	requestCtx, cancel := t.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", t.cfg.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		if IsConnectivityError(err) {
			return nil, nil, fmt.Errorf("request %s %s: %w: %s", method, path, domain.ErrConnectivity, err)
		}
		return nil, nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp, nil, &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil, nil
	}
	return resp, json.RawMessage(raw), nil
}

func (t *transport) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.cfg.Timeout)
}

// errorMessage digs the human-readable message out of the vendor's
// error body, which is either {"error":{"message":...}} or
// {"message":...}, and synthesizes one from the status otherwise.
func errorMessage(status int, raw []byte) string {
	var payload struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != nil && payload.Error.Message != "" {
			return payload.Error.Message
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

// IsConnectivityError reports whether the error is transient transport
// trouble (timeout, refused connection) rather than a vendor rejection.
// doJSON tags such failures with domain.ErrConnectivity so callers can
// log them quietly and retry.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		errors.Is(err, context.Canceled)
}
