package jmap

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Capability URIs used by this client.
const (
	CapabilityCore       = "urn:ietf:params:jmap:core"
	CapabilityMail       = "urn:ietf:params:jmap:mail"
	CapabilitySubmission = "urn:ietf:params:jmap:submission"
)

// DefaultCapabilities is sent in "using" when no session is loaded or the
// loaded session advertises no capabilities.
var DefaultCapabilities = []string{CapabilityCore, CapabilityMail}

// ErrorMethodName is the method name a server uses for an error response.
const ErrorMethodName = "error"

// Session is the server's session document. Capabilities and Accounts keep
// the order in which the server listed them.
type Session struct {
	Capabilities    *orderedmap.OrderedMap[string, json.RawMessage] `json:"capabilities"`
	Accounts        *orderedmap.OrderedMap[string, Account]         `json:"accounts"`
	PrimaryAccounts map[string]string                               `json:"primaryAccounts,omitempty"`
	Username        string                                          `json:"username,omitempty"`
	APIURL          string                                          `json:"apiUrl"`
	DownloadURL     string                                          `json:"downloadUrl,omitempty"`
	UploadURL       string                                          `json:"uploadUrl"`
	EventSourceURL  string                                          `json:"eventSourceUrl,omitempty"`
	State           string                                          `json:"state,omitempty"`
}

// AccountIDs returns the account ids in document order.
func (s *Session) AccountIDs() []string {
	if s == nil || s.Accounts == nil {
		return []string{}
	}
	ids := make([]string, 0, s.Accounts.Len())
	for pair := s.Accounts.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// CapabilityURIs returns the advertised capability URIs in document order.
func (s *Session) CapabilityURIs() []string {
	if s == nil || s.Capabilities == nil {
		return []string{}
	}
	uris := make([]string, 0, s.Capabilities.Len())
	for pair := s.Capabilities.Oldest(); pair != nil; pair = pair.Next() {
		uris = append(uris, pair.Key)
	}
	return uris
}

// Account is the metadata the session advertises for one account.
type Account struct {
	Name                string                     `json:"name"`
	IsPersonal          bool                       `json:"isPersonal"`
	IsReadOnly          bool                       `json:"isReadOnly"`
	AccountCapabilities map[string]json.RawMessage `json:"accountCapabilities,omitempty"`
}

// Invocation is one method call or method response: the triple
// [name, arguments, callId] on the wire.
type Invocation struct {
	Name      string
	Arguments json.RawMessage
	CallID    string
}

// MarshalJSON implements json.Marshaler
func (i Invocation) MarshalJSON() ([]byte, error) {
	args := i.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return json.Marshal([]any{i.Name, args, i.CallID})
}

// UnmarshalJSON implements json.Unmarshaler
func (i *Invocation) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invocation must be an array: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("invocation must have 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &i.Name); err != nil {
		return fmt.Errorf("invocation name must be a string: %w", err)
	}
	if err := json.Unmarshal(parts[2], &i.CallID); err != nil {
		return fmt.Errorf("invocation call id must be a string: %w", err)
	}
	i.Arguments = parts[1]
	return nil
}

// IsError reports whether the invocation is an error response.
func (i Invocation) IsError() bool {
	return i.Name == ErrorMethodName
}

// Request is the body of an API request.
type Request struct {
	Using       []string          `json:"using"`
	MethodCalls []Invocation      `json:"methodCalls"`
	CreatedIDs  map[string]string `json:"createdIds,omitempty"`
}

// Response is the body of an API response. Method responses are returned
// in the order the server sent them.
type Response struct {
	MethodResponses []Invocation      `json:"methodResponses"`
	SessionState    string            `json:"sessionState"`
	CreatedIDs      map[string]string `json:"createdIds,omitempty"`
}

// Lookup returns every response carrying callID, in order. A single call
// can produce more than one response (implicit calls such as
// onSuccessUpdateEmail).
func (r *Response) Lookup(callID string) []Invocation {
	var out []Invocation
	for _, inv := range r.MethodResponses {
		if inv.CallID == callID {
			out = append(out, inv)
		}
	}
	return out
}

// UploadResponse describes a blob accepted by the upload endpoint.
type UploadResponse struct {
	AccountID string `json:"accountId"`
	BlobID    string `json:"blobId"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
}

// ResultReference points at a value in the result of an earlier call in the
// same request, e.g. the ids returned by Email/query.
type ResultReference struct {
	ResultOf string `json:"resultOf"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}
