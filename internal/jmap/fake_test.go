package jmap

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Nemolo/jmap-client/internal/credential"
)

const (
	testSessionURL = "https://jmap.example.com/.well-known/jmap"
	testAPIURL     = "https://jmap.example.com/api/"
	testUploadURL  = "https://jmap.example.com/upload/{accountId}/"
	testToken      = "tok"
)

const testSessionJSON = `{
	"capabilities": {
		"urn:ietf:params:jmap:core": {"maxCallsInRequest": 16},
		"urn:ietf:params:jmap:mail": {},
		"urn:ietf:params:jmap:submission": {}
	},
	"accounts": {
		"u1": {"name": "jane@example.com", "isPersonal": true, "isReadOnly": false},
		"u2": {"name": "shared@example.com", "isPersonal": false, "isReadOnly": true}
	},
	"primaryAccounts": {"urn:ietf:params:jmap:mail": "u1"},
	"username": "jane@example.com",
	"apiUrl": "https://jmap.example.com/api/",
	"uploadUrl": "https://jmap.example.com/upload/{accountId}/",
	"downloadUrl": "https://jmap.example.com/download/{accountId}/{blobId}/{name}",
	"state": "s1"
}`

type recordedRequest struct {
	Verb    string
	URL     string
	Body    []byte
	Headers map[string]string
}

// fakeTransport records every exchange and answers with scripted handlers.
type fakeTransport struct {
	mu       sync.Mutex
	requests []recordedRequest

	get  func(ctx context.Context, url string) (json.RawMessage, error)
	post func(ctx context.Context, url string, body []byte) (json.RawMessage, error)
}

func (f *fakeTransport) record(verb, url string, body []byte, headers map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{
		Verb:    verb,
		URL:     url,
		Body:    append([]byte(nil), body...),
		Headers: maps.Clone(headers),
	})
}

func (f *fakeTransport) Get(ctx context.Context, url string, headers map[string]string) (json.RawMessage, error) {
	f.record("GET", url, nil, headers)
	if f.get == nil {
		return json.RawMessage(testSessionJSON), nil
	}
	return f.get(ctx, url)
}

func (f *fakeTransport) Post(ctx context.Context, url string, body []byte, headers map[string]string) (json.RawMessage, error) {
	f.record("POST", url, body, headers)
	if f.post == nil {
		return json.RawMessage(`{"methodResponses": [], "sessionState": "s1"}`), nil
	}
	return f.post(ctx, url, body)
}

func (f *fakeTransport) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeTransport) Last() recordedRequest {
	reqs := f.Requests()
	if len(reqs) == 0 {
		return recordedRequest{}
	}
	return reqs[len(reqs)-1]
}

// respondWith returns a post handler answering every request with body.
func respondWith(body string) func(context.Context, string, []byte) (json.RawMessage, error) {
	return func(context.Context, string, []byte) (json.RawMessage, error) {
		return json.RawMessage(body), nil
	}
}

func newTestClient(t *testing.T, ft *fakeTransport, opts ...Option) *Client {
	t.Helper()
	c, err := New(testSessionURL, credential.Literal(testToken), ft, opts...)
	require.NoError(t, err)
	return c
}

// newSessionClient returns a client that has already fetched testSessionJSON.
func newSessionClient(t *testing.T, ft *fakeTransport, opts ...Option) *Client {
	t.Helper()
	c := newTestClient(t, ft, opts...)
	_, err := c.FetchSession(context.Background(), nil)
	require.NoError(t, err)
	return c
}

// sentRequest decodes the body of a recorded API request.
func sentRequest(t *testing.T, r recordedRequest) Request {
	t.Helper()
	var req Request
	require.NoError(t, json.Unmarshal(r.Body, &req))
	return req
}

type recordedMetric struct {
	Kind   string
	Name   string
	Status string
	Size   int64
}

type fakeRecorder struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (r *fakeRecorder) add(m recordedMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

func (r *fakeRecorder) RecordJMAPRequest(_ context.Context, status string, _ time.Duration) {
	r.add(recordedMetric{Kind: "request", Status: status})
}

func (r *fakeRecorder) RecordMethodCall(_ context.Context, method, status string) {
	r.add(recordedMetric{Kind: "method", Name: method, Status: status})
}

func (r *fakeRecorder) RecordSessionFetch(_ context.Context, status string) {
	r.add(recordedMetric{Kind: "session", Status: status})
}

func (r *fakeRecorder) RecordUpload(_ context.Context, status string, size int64) {
	r.add(recordedMetric{Kind: "upload", Status: status, Size: size})
}
