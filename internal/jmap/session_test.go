package jmap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nemolo/jmap-client/internal/credential"
	"github.com/Nemolo/jmap-client/internal/transport"
)

func TestClient_NoSession(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(t, ft)
	ctx := context.Background()

	assert.False(t, c.HasSession())

	_, err := c.Session()
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.AccountIDs()
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.FirstAccountID()
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.RawRequest(ctx, nil)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.Upload(ctx, []byte("x"), "text/plain")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.MailboxGet(ctx, GetArgs{})
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Empty(t, ft.Requests(), "no request may be sent without a session")
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", credential.Literal(testToken), &fakeTransport{})
	assert.Error(t, err)

	_, err = New(testSessionURL, credential.Literal(testToken), nil)
	assert.Error(t, err)
}

func TestFetchSession(t *testing.T) {
	ft := &fakeTransport{}
	rec := &fakeRecorder{}
	c := newTestClient(t, ft, WithMetrics(rec))

	s, err := c.FetchSession(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, c.HasSession())
	assert.Equal(t, testAPIURL, s.APIURL)
	assert.Equal(t, testUploadURL, s.UploadURL)
	assert.Equal(t, "jane@example.com", s.Username)

	ids, err := c.AccountIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)

	first, err := c.FirstAccountID()
	require.NoError(t, err)
	assert.Equal(t, "u1", first)

	acct, ok := s.Accounts.Get("u2")
	require.True(t, ok)
	assert.True(t, acct.IsReadOnly)

	req := ft.Last()
	assert.Equal(t, "GET", req.Verb)
	assert.Equal(t, testSessionURL, req.URL)

	assert.Equal(t, []recordedMetric{{Kind: "session", Status: "success"}}, rec.metrics)
}

func TestFetchSession_Headers(t *testing.T) {
	tests := []struct {
		name     string
		base     map[string]string
		extra    map[string]string
		expected map[string]string
	}{
		{
			name: "defaults",
			expected: map[string]string{
				"Accept":        AcceptHeader,
				"Authorization": "Bearer " + testToken,
			},
		},
		{
			name:  "overrides win over base headers",
			base:  map[string]string{"X-Trace": "base", "User-Agent": "jmap-client"},
			extra: map[string]string{"X-Trace": "call", "Accept": "application/json"},
			expected: map[string]string{
				"Accept":        "application/json",
				"Authorization": "Bearer " + testToken,
				"X-Trace":       "call",
				"User-Agent":    "jmap-client",
			},
		},
		{
			name:  "lower-case override replaces the base header",
			extra: map[string]string{"accept": "application/json", "x-trace": "call"},
			expected: map[string]string{
				"Accept":        "application/json",
				"Authorization": "Bearer " + testToken,
				"X-Trace":       "call",
			},
		},
		{
			name:  "lower-case base header replaces the default",
			base:  map[string]string{"accept": "application/json"},
			extra: map[string]string{"X-TRACE": "call"},
			expected: map[string]string{
				"Accept":        "application/json",
				"Authorization": "Bearer " + testToken,
				"X-Trace":       "call",
			},
		},
		{
			name:  "authorization is always the resolved token",
			base:  map[string]string{"Authorization": "Bearer base"},
			extra: map[string]string{"authorization": "Bearer stale"},
			expected: map[string]string{
				"Accept":        AcceptHeader,
				"Authorization": "Bearer " + testToken,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			c := newTestClient(t, ft, WithHeaders(tt.base))

			_, err := c.FetchSession(context.Background(), tt.extra)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ft.Last().Headers)
		})
	}
}

func TestFetchSession_OverrideOverHTTP(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Header.Get("Accept")]++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testSessionJSON))
	}))
	defer srv.Close()

	c, err := New(srv.URL, credential.Literal(testToken), transport.NewHTTP(transport.WithHTTPClient(srv.Client())))
	require.NoError(t, err)

	for range 50 {
		_, err := c.FetchSession(context.Background(), map[string]string{"accept": "application/json"})
		require.NoError(t, err)
	}
	assert.Equal(t, map[string]int{"application/json": 50}, seen)
}

func TestFetchSession_PreservesAccountOrder(t *testing.T) {
	ft := &fakeTransport{
		get: func(context.Context, string) (json.RawMessage, error) {
			return json.RawMessage(`{"accounts": {"zz": {"name": "z"}, "aa": {"name": "a"}, "mm": {"name": "m"}}, "capabilities": {}, "apiUrl": "x", "uploadUrl": "y"}`), nil
		},
	}
	c := newTestClient(t, ft)

	_, err := c.FetchSession(context.Background(), nil)
	require.NoError(t, err)

	ids, err := c.AccountIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"zz", "aa", "mm"}, ids)

	first, err := c.FirstAccountID()
	require.NoError(t, err)
	assert.Equal(t, "zz", first)
}

func TestFetchSession_NoAccounts(t *testing.T) {
	for _, body := range []string{
		`{"accounts": {}, "capabilities": {}, "apiUrl": "x", "uploadUrl": "y"}`,
		`{"capabilities": {}, "apiUrl": "x", "uploadUrl": "y"}`,
	} {
		ft := &fakeTransport{
			get: func(context.Context, string) (json.RawMessage, error) {
				return json.RawMessage(body), nil
			},
		}
		c := newTestClient(t, ft)

		_, err := c.FetchSession(context.Background(), nil)
		require.NoError(t, err)

		ids, err := c.AccountIDs()
		require.NoError(t, err)
		assert.Empty(t, ids)

		_, err = c.FirstAccountID()
		assert.ErrorIs(t, err, ErrNoAccount)

		_, err = c.Upload(context.Background(), []byte("x"), "")
		assert.ErrorIs(t, err, ErrNoAccount)
	}
}

func TestFetchSession_FailureKeepsPreviousSession(t *testing.T) {
	boom := errors.New("connection refused")
	ft := &fakeTransport{}
	rec := &fakeRecorder{}
	c := newSessionClient(t, ft, WithMetrics(rec))

	ft.get = func(context.Context, string) (json.RawMessage, error) {
		return nil, boom
	}

	_, err := c.FetchSession(context.Background(), nil)
	assert.Same(t, boom, err, "transport errors are returned unchanged")

	s, err := c.Session()
	require.NoError(t, err)
	assert.Equal(t, "s1", s.State)

	ft.get = func(context.Context, string) (json.RawMessage, error) {
		return json.RawMessage(`not json`), nil
	}
	_, err = c.FetchSession(context.Background(), nil)
	var clientErr *ClientError
	assert.ErrorAs(t, err, &clientErr)

	s, err = c.Session()
	require.NoError(t, err)
	assert.Equal(t, "s1", s.State)

	assert.Equal(t, "error", rec.metrics[len(rec.metrics)-1].Status)
}

func TestFetchSession_CredentialFailure(t *testing.T) {
	ft := &fakeTransport{}
	c, err := New(testSessionURL, credential.Provider(func(context.Context) (any, error) { return 42, nil }), ft)
	require.NoError(t, err)

	_, err = c.FetchSession(context.Background(), nil)
	assert.ErrorIs(t, err, credential.ErrInvalidCredential)
	assert.Empty(t, ft.Requests())
	assert.False(t, c.HasSession())
}

func TestFetchSession_ReplacesWholesale(t *testing.T) {
	bodies := []string{
		testSessionJSON,
		`{"accounts": {"u9": {"name": "other"}}, "capabilities": {"urn:ietf:params:jmap:core": {}}, "apiUrl": "https://other.example.com/api", "uploadUrl": "u", "state": "s2"}`,
	}
	calls := 0
	ft := &fakeTransport{
		get: func(context.Context, string) (json.RawMessage, error) {
			body := bodies[calls]
			calls++
			return json.RawMessage(body), nil
		},
	}
	c := newTestClient(t, ft)

	_, err := c.FetchSession(context.Background(), nil)
	require.NoError(t, err)
	_, err = c.FetchSession(context.Background(), nil)
	require.NoError(t, err)

	ids, err := c.AccountIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"u9"}, ids, "accounts are replaced, never merged")
	assert.Equal(t, []string{CapabilityCore}, c.Capabilities())
}

func TestFetchSession_ConcurrentLastWriteWins(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	calls := 0
	ft := &fakeTransport{
		get: func(context.Context, string) (json.RawMessage, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()

			if n == 1 {
				close(entered)
				<-release
				return json.RawMessage(`{"accounts": {"slow": {}}, "capabilities": {}, "apiUrl": "a", "uploadUrl": "u", "state": "slow"}`), nil
			}
			return json.RawMessage(`{"accounts": {"fast": {}}, "capabilities": {}, "apiUrl": "a", "uploadUrl": "u", "state": "fast"}`), nil
		},
	}
	c := newTestClient(t, ft)

	done := make(chan error, 1)
	go func() {
		_, err := c.FetchSession(context.Background(), nil)
		done <- err
	}()

	<-entered
	_, err := c.FetchSession(context.Background(), nil)
	require.NoError(t, err)

	s, err := c.Session()
	require.NoError(t, err)
	assert.Equal(t, "fast", s.State)

	close(release)
	require.NoError(t, <-done)

	s, err = c.Session()
	require.NoError(t, err)
	assert.Equal(t, "slow", s.State, "the fetch that completes last wins")
}

func TestCapabilities(t *testing.T) {
	t.Run("default without session", func(t *testing.T) {
		c := newTestClient(t, &fakeTransport{})
		assert.Equal(t, []string{CapabilityCore, CapabilityMail}, c.Capabilities())
	})

	t.Run("default when session advertises none", func(t *testing.T) {
		c := newSessionClient(t, &fakeTransport{
			get: func(context.Context, string) (json.RawMessage, error) {
				return json.RawMessage(`{"accounts": {"u1": {}}, "capabilities": {}, "apiUrl": "a", "uploadUrl": "u"}`), nil
			},
		})
		assert.Equal(t, []string{CapabilityCore, CapabilityMail}, c.Capabilities())
	})

	t.Run("advertised capabilities in order", func(t *testing.T) {
		c := newSessionClient(t, &fakeTransport{})
		assert.Equal(t, []string{CapabilityCore, CapabilityMail, CapabilitySubmission}, c.Capabilities())
	})

	t.Run("returned slice is a copy of the defaults", func(t *testing.T) {
		c := newTestClient(t, &fakeTransport{})
		caps := c.Capabilities()
		caps[0] = "mutated"
		assert.Equal(t, CapabilityCore, DefaultCapabilities[0])
	})
}
