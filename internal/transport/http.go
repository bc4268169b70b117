package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout bounds a single round trip.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody limits how much of a failed response is kept for the error.
	maxErrorBody = 4096
)

// TransportError is returned for HTTP failures: the request could not be
// sent, the server answered with a non-2xx status, or the body was not JSON.
type TransportError struct {
	// Method is the HTTP method (GET or POST)
	Method string

	// URL is the request URL
	URL string

	// StatusCode is the HTTP status, 0 when no response was received
	StatusCode int

	// Body holds the start of the response body for non-2xx responses
	Body string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
}

// Unwrap implements the errors.Unwrap interface
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTP is a jmap.Transport over net/http.
type HTTP struct {
	client    *http.Client
	userAgent string
}

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithHTTPClient uses client for requests. Its Transport is wrapped for
// tracing.
func WithHTTPClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			c := *client
			h.client = &c
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(h *HTTP) {
		h.client.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header sent when the caller does not
// provide one.
func WithUserAgent(userAgent string) Option {
	return func(h *HTTP) {
		h.userAgent = userAgent
	}
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(h)
	}

	base := h.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	h.client.Transport = otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	)
	return h
}

// Get performs a GET and returns the JSON body.
func (h *HTTP) Get(ctx context.Context, url string, headers map[string]string) (json.RawMessage, error) {
	return h.do(ctx, http.MethodGet, url, nil, headers)
}

// Post performs a POST of body and returns the JSON body of the response.
func (h *HTTP) Post(ctx context.Context, url string, body []byte, headers map[string]string) (json.RawMessage, error) {
	return h.do(ctx, http.MethodPost, url, body, headers)
}

func (h *HTTP) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if h.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &TransportError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if !json.Valid(data) {
		return nil, &TransportError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response is not valid JSON (%d bytes)", len(data)),
		}
	}

	return json.RawMessage(data), nil
}
