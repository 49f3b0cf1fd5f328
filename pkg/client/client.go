// Package client provides the Notion API transport: a single request/response
// exchange with outcome classification, and a bounded retry executor on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for transport operations.
var (
	notionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_requests_total",
		Help: "Total Notion API requests by endpoint and outcome class",
	}, []string{"endpoint", "class"})

	notionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notion_request_duration_seconds",
		Help:    "Notion API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})
)

const (
	// DefaultBaseURL is the Notion REST API root.
	DefaultBaseURL = "https://api.notion.com/v1"

	// DefaultNotionVersion is the protocol version sent with every JSON request.
	DefaultNotionVersion = "2022-06-28"

	// defaultRetryAfter is used when a 429 carries no usable Retry-After header.
	defaultRetryAfter = 1 * time.Second
)

// ErrorClass represents a classification of a single exchange outcome.
type ErrorClass string

const (
	// ErrorClassNone marks a successful exchange.
	ErrorClassNone ErrorClass = ""

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNotFound represents the "object_not_found" domain error.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassForbidden represents the "restricted_resource" domain error.
	ErrorClassForbidden ErrorClass = "forbidden"

	// ErrorClassMalformed represents a 2xx body that is not the expected JSON object.
	ErrorClassMalformed ErrorClass = "malformed"

	// ErrorClassTimeout represents request timeouts.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassNetwork represents connection and read failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassServer represents any other non-success status.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassInvalidRequest represents a request that could not be built.
	ErrorClassInvalidRequest ErrorClass = "invalid_request"
)

// Config holds the client configuration.
type Config struct {
	// Token is the bearer credential for the run. Required.
	Token string

	// BaseURL is the API root (default DefaultBaseURL).
	BaseURL string

	// NotionVersion is sent as the Notion-Version header.
	NotionVersion string

	// UserAgent header, optional.
	UserAgent string

	// HTTPTimeout bounds one exchange.
	HTTPTimeout time.Duration

	// Retry policy for the executor.
	Retry RetryConfig
}

// DefaultConfig returns a default configuration for the given token.
func DefaultConfig(token string) Config {
	return Config{
		Token:         token,
		BaseURL:       DefaultBaseURL,
		NotionVersion: DefaultNotionVersion,
		UserAgent:     "notion-graph/0.1.0",
		HTTPTimeout:   32 * time.Second,
		Retry:         DefaultRetryConfig(),
	}
}

// Request describes one exchange.
type Request struct {
	// Endpoint is a low-cardinality label used for metrics and logs (e.g. "pages").
	Endpoint string

	// Method defaults to GET.
	Method string

	// URL is either an absolute URL or a path relative to the configured BaseURL.
	URL string

	// Query parameters appended to URL.
	Query url.Values

	// Body is JSON-encoded when non-nil.
	Body any

	// Raw marks a byte download: no API headers, no payload validation.
	Raw bool
}

// Outcome is the classified result of one exchange.
type Outcome struct {
	Class      ErrorClass
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
	Err        error
}

// Transport performs one exchange and classifies it.
type Transport interface {
	Do(ctx context.Context, req Request) Outcome
}

// Client is the Notion HTTP transport.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new transport client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.NotionVersion == "" {
		cfg.NotionVersion = DefaultNotionVersion
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 32 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		config:     cfg,
		logger:     log.With().Str("component", "notion-transport").Logger(),
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Do performs exactly one exchange. It never retries.
func (c *Client) Do(ctx context.Context, req Request) Outcome {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = "unknown"
	}

	startTime := time.Now()
	defer func() {
		notionRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	out := c.do(ctx, req)
	notionRequestsTotal.WithLabelValues(endpoint, classLabel(out.Class)).Inc()

	if out.Class != ErrorClassNone {
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", out.StatusCode).
			Str("error_class", string(out.Class)).
			Err(out.Err).
			Msg("Exchange classified as failure")
	}
	return out
}

func (c *Client) do(ctx context.Context, req Request) Outcome {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return Outcome{
			Class: ErrorClassInvalidRequest,
			Err:   fmt.Errorf("%w: %v", ErrInvalidRequest, err),
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		class := classifyTransportError(err)
		return Outcome{
			Class: class,
			Err:   &APIError{ErrorClass: class, Message: "request failed", URL: httpReq.URL.String(), Err: err},
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		class := classifyTransportError(err)
		return Outcome{
			Class:      class,
			StatusCode: resp.StatusCode,
			Err:        &APIError{StatusCode: resp.StatusCode, ErrorClass: class, Message: "read body", URL: httpReq.URL.String(), Err: err},
		}
	}

	return classifyResponse(resp, body, req.Raw)
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := req.URL
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	if !req.Raw {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
		httpReq.Header.Set("Notion-Version", c.config.NotionVersion)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
	}
	return httpReq, nil
}

// errorEnvelope is the API's JSON error body.
type errorEnvelope struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classifyResponse categorizes a completed exchange.
func classifyResponse(resp *http.Response, body []byte, raw bool) Outcome {
	out := Outcome{StatusCode: resp.StatusCode}
	var target string
	if resp.Request != nil {
		target = resp.Request.URL.String()
	}

	var envelope errorEnvelope
	if !raw && resp.StatusCode >= 400 {
		_ = json.Unmarshal(body, &envelope)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		out.Class = ErrorClassRateLimit
		out.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case !raw && envelope.Code == "object_not_found":
		out.Class = ErrorClassNotFound
	case !raw && envelope.Code == "restricted_resource":
		out.Class = ErrorClassForbidden
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		out.Class = ErrorClassServer
	case !raw && !isJSONObject(body):
		out.Class = ErrorClassMalformed
	default:
		out.Body = body
		return out
	}

	message := envelope.Message
	if message == "" {
		message = resp.Status
	}
	out.Err = &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: out.Class,
		Code:       envelope.Code,
		Message:    message,
		URL:        target,
	}
	return out
}

// classifyTransportError separates timeouts from other network failures.
func classifyTransportError(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassNetwork
}

func isJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultRetryAfter
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds >= 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return defaultRetryAfter
}

func classLabel(class ErrorClass) string {
	if class == ErrorClassNone {
		return "success"
	}
	return string(class)
}
