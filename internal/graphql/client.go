package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/net/http2"

	"github.com/jpalmerr/peerboard/poller"
)

const maxResponseBodySize = 1 << 20 // 1MB

// DefaultTimeout bounds a single query when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// connection pooling limits; every poller shares one endpoint
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// RequestIDHeader carries a per-request id so proxy logs can be correlated.
const RequestIDHeader = "X-Request-ID"

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []responseError            `json:"errors"`
}

type responseError struct {
	Message string `json:"message"`
}

// Option configures a [Client].
type Option func(*Client) error

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) error {
		for k, v := range headers {
			c.headers[k] = v
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithHTTPClient replaces the pooled HTTP client, e.g. with an httptest client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithLogger sets the logger for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// Client executes named queries over HTTP.
//
// Timeouts are applied per request via the context rather than on the
// http.Client. Response bodies are limited to 1MB.
type Client struct {
	endpoint   string
	headers    map[string]string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ poller.Executor = (*Client)(nil)

// NewClient creates a [Client] for the GraphQL endpoint.
//
// The default transport pools connections and negotiates HTTP/2 with TLS
// endpoints.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid endpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("endpoint must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("endpoint must include a host")
	}

	c := &Client{
		endpoint: endpoint,
		headers:  make(map[string]string),
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.httpClient == nil {
		hc, err := newHTTPClient()
		if err != nil {
			return nil, err
		}
		c.httpClient = hc
	}
	return c, nil
}

func newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		MaxConnsPerHost:     defaultMaxConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, errors.Wrap(err, "failed to configure http2")
	}
	// no client timeout: per-request timeouts come from the context
	return &http.Client{Transport: transport}, nil
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Execute runs the named query and returns the raw payload of its result
// field.
func (c *Client) Execute(ctx context.Context, q poller.Query) (json.RawMessage, error) {
	name := q.Name()
	doc, ok := Document(name)
	if !ok {
		return nil, &poller.ServiceError{Query: name, Messages: []string{"unknown query " + name}}
	}

	body, err := json.Marshal(request{Query: doc, Variables: q.Params()})
	if err != nil {
		return nil, &poller.ServiceError{
			Query:    name,
			Messages: []string{errors.Wrap(err, "failed to encode variables").Error()},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &poller.TransportError{Query: name, Err: errors.Wrap(err, "failed to create request")}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &poller.TransportError{Query: name, Err: errors.Wrap(err, "request failed")}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &poller.TransportError{
			Query:      name,
			StatusCode: resp.StatusCode,
			Err:        errors.Wrap(err, "failed to read response body"),
		}
	}

	c.logger.Debug("graphql query",
		"query", name,
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return decodeResponse(name, resp.StatusCode, raw)
}

// decodeResponse maps an HTTP response to the query's payload.
// GraphQL errors take precedence over the HTTP status, since servers report
// validation failures with 200 or 400 alike.
func decodeResponse(name string, statusCode int, raw []byte) (json.RawMessage, error) {
	var out response
	decodeErr := json.Unmarshal(raw, &out)

	if decodeErr == nil && len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		if len(msgs) == 0 {
			msgs = append(msgs, "query "+name+" failed")
		}
		return nil, &poller.ServiceError{Query: name, Messages: msgs}
	}

	if statusCode < 200 || statusCode >= 300 {
		return nil, &poller.TransportError{
			Query:      name,
			StatusCode: statusCode,
			Err:        errors.New(http.StatusText(statusCode)),
		}
	}

	if decodeErr != nil {
		return nil, &poller.ServiceError{
			Query:    name,
			Messages: []string{errors.Wrap(decodeErr, "invalid response").Error()},
		}
	}

	field, ok := out.Data[name]
	if !ok {
		return nil, &poller.ServiceError{
			Query:    name,
			Messages: []string{errors.Errorf("response missing field %q", name).Error()},
		}
	}
	return field, nil
}

// Close closes idle connections in the pool. The client remains usable.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
