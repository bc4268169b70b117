// Package jmaptest provides an in-process JMAP server for tests of the
// packages built on top of the client.
package jmaptest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Nemolo/jmap-client/internal/credential"
	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/transport"
)

const (
	// Token is the bearer token the server accepts.
	Token = "test-token"

	// Username is reported in the session document.
	Username = "jane@example.com"

	// PrimaryAccount and SharedAccount are the advertised accounts, in order.
	PrimaryAccount = "u1"
	SharedAccount  = "u2"

	// SessionState is reported in the session and in every API response.
	SessionState = "s1"
)

// MethodHandler answers one method call. Returning a *jmap.MethodError sends
// an error response of that type; any other error becomes serverFail.
type MethodHandler func(args map[string]any) (any, error)

// Upload is a blob received by the upload endpoint.
type Upload struct {
	AccountID   string
	ContentType string
	Data        []byte
}

// Server is a JMAP server backed by httptest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]MethodHandler
	requests []jmap.Request
	uploads  []Upload
}

// NewServer starts a server that is closed when the test ends. It answers
// Mailbox/get with a single Inbox unless another handler is registered.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{handlers: map[string]MethodHandler{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/jmap", s.authorized(s.serveSession))
	mux.HandleFunc("POST /api/", s.authorized(s.serveAPI))
	mux.HandleFunc("POST /upload/{accountId}/", s.authorized(s.serveUpload))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	s.Handle(jmap.MethodMailboxGet, func(args map[string]any) (any, error) {
		inbox := "inbox"
		return jmap.GetResponse[jmap.Mailbox]{
			AccountID: accountOf(args),
			State:     "m1",
			List:      []jmap.Mailbox{{ID: "mb1", Name: "Inbox", Role: &inbox, TotalEmails: 2, UnreadEmails: 1}},
			NotFound:  []string{},
		}, nil
	})

	return s
}

// SessionURL returns the session endpoint.
func (s *Server) SessionURL() string {
	return s.URL + "/.well-known/jmap"
}

// Handle registers h for method, replacing any earlier handler.
func (s *Server) Handle(method string, h MethodHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Requests returns the API requests received so far.
func (s *Server) Requests() []jmap.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]jmap.Request(nil), s.requests...)
}

// Uploads returns the blobs received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// NewClient returns a client for s using the real HTTP transport.
func (s *Server) NewClient(t testing.TB, opts ...jmap.Option) *jmap.Client {
	t.Helper()
	c, err := jmap.New(s.SessionURL(), credential.Literal(Token),
		transport.NewHTTP(transport.WithHTTPClient(s.Client())), opts...)
	if err != nil {
		t.Fatalf("jmaptest: create client: %v", err)
	}
	return c
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"type": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) serveSession(w http.ResponseWriter, _ *http.Request) {
	// Written by hand so the account and capability order is fixed.
	doc := fmt.Sprintf(`{
		"capabilities": {
			%q: {"maxCallsInRequest": 16, "maxSizeUpload": 50000000},
			%q: {},
			%q: {}
		},
		"accounts": {
			%q: {"name": %q, "isPersonal": true, "isReadOnly": false},
			%q: {"name": "shared@example.com", "isPersonal": false, "isReadOnly": true}
		},
		"primaryAccounts": {%q: %q},
		"username": %q,
		"apiUrl": %q,
		"uploadUrl": %q,
		"downloadUrl": %q,
		"state": %q
	}`,
		jmap.CapabilityCore, jmap.CapabilityMail, jmap.CapabilitySubmission,
		PrimaryAccount, Username, SharedAccount,
		jmap.CapabilityMail, PrimaryAccount,
		Username,
		s.URL+"/api/",
		s.URL+"/upload/{accountId}/",
		s.URL+"/download/{accountId}/{blobId}/{name}",
		SessionState,
	)
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, doc)
}

func (s *Server) serveAPI(w http.ResponseWriter, r *http.Request) {
	var req jmap.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"type":   "urn:ietf:params:jmap:error:notJSON",
			"detail": err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	resp := jmap.Response{
		MethodResponses: make([]jmap.Invocation, 0, len(req.MethodCalls)),
		SessionState:    SessionState,
	}
	for _, call := range req.MethodCalls {
		resp.MethodResponses = append(resp.MethodResponses, s.dispatch(call))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) dispatch(call jmap.Invocation) jmap.Invocation {
	s.mu.Lock()
	h, ok := s.handlers[call.Name]
	s.mu.Unlock()

	if !ok {
		return errorInvocation(call.CallID, jmap.ErrorTypeUnknownMethod, "")
	}

	var args map[string]any
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return errorInvocation(call.CallID, jmap.ErrorTypeInvalidArguments, err.Error())
	}

	result, err := h(args)
	if err != nil {
		var me *jmap.MethodError
		if errors.As(err, &me) {
			return errorInvocation(call.CallID, me.Type, me.Description)
		}
		return errorInvocation(call.CallID, jmap.ErrorTypeServerFail, err.Error())
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return errorInvocation(call.CallID, jmap.ErrorTypeServerFail, err.Error())
	}
	return jmap.Invocation{Name: call.Name, Arguments: raw, CallID: call.CallID}
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"type": "invalidBody"})
		return
	}

	up := Upload{
		AccountID:   r.PathValue("accountId"),
		ContentType: r.Header.Get("Content-Type"),
		Data:        data,
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, up)
	n := len(s.uploads)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, jmap.UploadResponse{
		AccountID: up.AccountID,
		BlobID:    fmt.Sprintf("blob-%d", n),
		Type:      up.ContentType,
		Size:      int64(len(data)),
	})
}

// NewMethodError returns an error that makes a handler answer with an error
// response of the given type.
func NewMethodError(errorType, description string) error {
	return &jmap.MethodError{Type: errorType, Description: description}
}

func errorInvocation(callID, errorType, description string) jmap.Invocation {
	payload := map[string]string{"type": errorType}
	if description != "" {
		payload["description"] = description
	}
	raw, _ := json.Marshal(payload)
	return jmap.Invocation{Name: jmap.ErrorMethodName, Arguments: raw, CallID: callID}
}

func accountOf(args map[string]any) string {
	id, _ := args["accountId"].(string)
	return strings.TrimSpace(id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
