package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTP_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json;jmapVersion=rfc-8621", r.Header.Get("Accept"))
		assert.Equal(t, "jmap-client/test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"apiUrl": "/api"}`)
	}))
	defer srv.Close()

	h := NewHTTP(WithUserAgent("jmap-client/test"))
	got, err := h.Get(context.Background(), srv.URL, map[string]string{
		"Authorization": "Bearer tok",
		"Accept":        "application/json;jmapVersion=rfc-8621",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"apiUrl": "/api"}`, string(got))
}

func TestHTTP_Post(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		assert.Equal(t, "custom", r.Header.Get("User-Agent"), "caller headers win over the default user agent")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, "hello", string(body))
		_, _ = io.WriteString(w, `{"blobId": "B1"}`)
	}))
	defer srv.Close()

	h := NewHTTP(WithUserAgent("jmap-client/test"))
	got, err := h.Post(context.Background(), srv.URL, []byte("hello"), map[string]string{
		"Content-Type": "text/plain",
		"User-Agent":   "custom",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"blobId": "B1"}`, string(got))
}

func TestHTTP_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantBody   string
		wantErr    bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"type":"urn:ietf:params:jmap:error:unauthorized"}`, wantStatus: 401, wantBody: `{"type":"urn:ietf:params:jmap:error:unauthorized"}`},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantStatus: 500, wantBody: "boom"},
		{name: "invalid json", status: http.StatusOK, body: "<html>", wantStatus: 200, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewHTTP().Post(context.Background(), srv.URL, []byte(`{}`), nil)
			require.Error(t, err)

			var te *TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, http.MethodPost, te.Method)
			assert.Equal(t, srv.URL, te.URL)
			assert.Equal(t, tt.wantStatus, te.StatusCode)
			assert.Equal(t, tt.wantBody, te.Body)
			assert.Equal(t, tt.wantErr, te.Err != nil)
			assert.Contains(t, te.Error(), srv.URL)
		})
	}
}

func TestHTTP_TruncatesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, strings.Repeat("x", maxErrorBody*2))
	}))
	defer srv.Close()

	_, err := NewHTTP().Get(context.Background(), srv.URL, nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Len(t, te.Body, maxErrorBody)
}

func TestHTTP_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTP().Get(context.Background(), url, nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.NotNil(t, te.Err)
}

func TestHTTP_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTP(WithTimeout(20*time.Millisecond)).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestHTTP_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTP().Get(ctx, srv.URL, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWithHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: 5 * time.Second}
	h := NewHTTP(WithHTTPClient(custom))

	assert.Equal(t, 5*time.Second, h.client.Timeout)
	assert.Nil(t, custom.Transport, "the caller's client is not modified")
	assert.NotNil(t, h.client.Transport)
}
