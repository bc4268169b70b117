package jmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Nemolo/jmap-client/internal/credential"
	"github.com/Nemolo/jmap-client/internal/instrumentation"
	"github.com/Nemolo/jmap-client/internal/logging"
)

const (
	// AcceptHeader is sent with every request.
	AcceptHeader = "application/json;jmapVersion=rfc-8621"

	// DefaultUploadType is used when Upload is given no content type.
	DefaultUploadType = "application/octet-stream"

	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"

	accountIDPlaceholder = "{accountId}"
)

// Transport performs the HTTP exchanges for the client. Both methods return
// the parsed JSON body or fail with a transport-level error; the client
// propagates those errors unchanged.
type Transport interface {
	Get(ctx context.Context, url string, headers map[string]string) (json.RawMessage, error)
	Post(ctx context.Context, url string, body []byte, headers map[string]string) (json.RawMessage, error)
}

// Recorder receives client metrics. *instrumentation.Metrics satisfies it.
type Recorder interface {
	RecordJMAPRequest(ctx context.Context, status string, duration time.Duration)
	RecordMethodCall(ctx context.Context, method, status string)
	RecordSessionFetch(ctx context.Context, status string)
	RecordUpload(ctx context.Context, status string, size int64)
}

// Client talks to a single JMAP server.
//
// A Client starts without a session; FetchSession loads one. Calls may be
// issued concurrently. Concurrent FetchSession calls are not deduplicated and
// the last one to complete determines the stored session.
type Client struct {
	sessionURL  string
	apiURL      string
	credential  credential.Supplier
	transport   Transport
	baseHeaders map[string]string

	session atomic.Pointer[Session]

	logger  logging.Logger
	metrics Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL makes the client post method calls to apiURL instead of the
// apiUrl advertised by the session.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) {
		c.apiURL = apiURL
	}
}

// WithHeaders adds headers sent with every request. Authorization is
// ignored; it is always derived from the credential.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			k = http.CanonicalHeaderKey(k)
			if k == headerAuthorization {
				continue
			}
			c.baseHeaders[k] = v
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder Recorder) Option {
	return func(c *Client) {
		c.metrics = recorder
	}
}

// New creates a Client for the session endpoint at sessionURL.
func New(sessionURL string, cred credential.Supplier, transport Transport, opts ...Option) (*Client, error) {
	if sessionURL == "" {
		return nil, errors.New("session URL is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}

	c := &Client{
		sessionURL:  sessionURL,
		credential:  cred,
		transport:   transport,
		baseHeaders: map[string]string{headerAccept: AcceptHeader},
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SessionURL returns the session endpoint the client was created with.
func (c *Client) SessionURL() string {
	return c.sessionURL
}

// headers merges base headers, extra and a fresh Authorization header, in
// that order of precedence. Keys are canonicalized so a later layer replaces
// an earlier one regardless of case. Authorization in extra is dropped.
func (c *Client) headers(token string, extra map[string]string) map[string]string {
	h := make(map[string]string, len(c.baseHeaders)+len(extra)+1)
	maps.Copy(h, c.baseHeaders)
	for k, v := range extra {
		k = http.CanonicalHeaderKey(k)
		if k == headerAuthorization {
			continue
		}
		h[k] = v
	}
	h[headerAuthorization] = "Bearer " + token
	return h
}

// endpoint returns the API URL: the explicit override, else the session's.
func (c *Client) endpoint() (string, error) {
	if c.apiURL != "" {
		return c.apiURL, nil
	}
	s := c.session.Load()
	if s == nil {
		return "", ErrNoSession
	}
	return s.APIURL, nil
}

// RawRequest sends calls as one API request and returns the response as
// the server sent it. Method-level errors are not interpreted here.
func (c *Client) RawRequest(ctx context.Context, calls []Invocation) (*Response, error) {
	names := make([]string, len(calls))
	byCallID := make(map[string]string, len(calls))
	for i, call := range calls {
		names[i] = call.Name
		byCallID[call.CallID] = call.Name
	}

	ctx, span := instrumentation.StartJMAPSpan(ctx, instrumentation.OperationRequest,
		instrumentation.NewSpanAttributeBuilder().WithMethods(names...).Build()...)
	defer span.End()

	start := time.Now()
	resp, endpoint, err := c.dispatch(ctx, calls)
	duration := time.Since(start)

	if err != nil {
		instrumentation.SetSpanError(span, err)
		if c.metrics != nil {
			c.metrics.RecordJMAPRequest(ctx, instrumentation.StatusError, duration)
		}
		c.logger.Debug("jmap request failed",
			logging.Methods(names...), logging.Endpoint(endpoint), logging.Status(logging.StatusError), logging.Err(err))
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	if c.metrics != nil {
		c.metrics.RecordJMAPRequest(ctx, instrumentation.StatusSuccess, duration)
		for _, inv := range resp.MethodResponses {
			if inv.IsError() {
				c.metrics.RecordMethodCall(ctx, byCallID[inv.CallID], instrumentation.StatusError)
				continue
			}
			c.metrics.RecordMethodCall(ctx, inv.Name, instrumentation.StatusSuccess)
		}
	}
	c.logger.Debug("jmap request",
		logging.Methods(names...), logging.Endpoint(endpoint), logging.Status(logging.StatusSuccess),
		"responses", len(resp.MethodResponses), "session_state", resp.SessionState, "duration", duration)

	return resp, nil
}

func (c *Client) dispatch(ctx context.Context, calls []Invocation) (*Response, string, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, "", err
	}

	token, err := c.credential.Resolve(ctx)
	if err != nil {
		return nil, endpoint, err
	}

	if calls == nil {
		calls = []Invocation{}
	}
	body, err := json.Marshal(Request{Using: c.Capabilities(), MethodCalls: calls})
	if err != nil {
		return nil, endpoint, &ClientError{Op: "encode request", Err: err}
	}

	raw, err := c.transport.Post(ctx, endpoint, body, c.headers(token, map[string]string{
		headerContentType: "application/json",
	}))
	if err != nil {
		return nil, endpoint, err
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, endpoint, &ClientError{Op: "decode response", Err: err}
	}
	return &resp, endpoint, nil
}

// Upload posts data to the session's upload endpoint for the first account
// and returns the blob descriptor. An empty contentType is sent as
// application/octet-stream.
func (c *Client) Upload(ctx context.Context, data []byte, contentType string) (*UploadResponse, error) {
	ctx, span := instrumentation.StartJMAPSpan(ctx, instrumentation.OperationUpload,
		instrumentation.NewSpanAttributeBuilder().WithBlobSize(len(data)).Build()...)
	defer span.End()

	resp, err := c.upload(ctx, data, contentType)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		if c.metrics != nil {
			c.metrics.RecordUpload(ctx, instrumentation.StatusError, int64(len(data)))
		}
		c.logger.Debug("jmap upload failed", "size", len(data), logging.Err(err))
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	if c.metrics != nil {
		c.metrics.RecordUpload(ctx, instrumentation.StatusSuccess, int64(len(data)))
	}
	c.logger.Debug("jmap upload", logging.Account(resp.AccountID), "blob_id", resp.BlobID, "size", resp.Size)
	return resp, nil
}

func (c *Client) upload(ctx context.Context, data []byte, contentType string) (*UploadResponse, error) {
	s, err := c.Session()
	if err != nil {
		return nil, err
	}
	accountID, err := firstAccountID(s)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = DefaultUploadType
	}

	uploadURL := strings.ReplaceAll(s.UploadURL, accountIDPlaceholder, escapeAccountID(accountID))

	token, err := c.credential.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.transport.Post(ctx, uploadURL, data, c.headers(token, map[string]string{
		headerContentType: contentType,
	}))
	if err != nil {
		return nil, err
	}

	var resp UploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ClientError{Op: "decode upload", Err: fmt.Errorf("upload to %s: %w", uploadURL, err)}
	}
	return &resp, nil
}

// escapeAccountID percent-encodes id as a single URL component: everything
// but unreserved characters is escaped, so it is safe in a path segment and
// in a query value alike.
func escapeAccountID(id string) string {
	return strings.ReplaceAll(url.QueryEscape(id), "+", "%20")
}
