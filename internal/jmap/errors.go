package jmap

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned by operations that need a session before
	// FetchSession has succeeded.
	ErrNoSession = errors.New("no session: call FetchSession first")

	// ErrNoAccount is returned when a default account id is needed and the
	// session advertises no accounts.
	ErrNoAccount = errors.New("session advertises no accounts")

	// ErrEmptyResponse is returned when a single call gets no method
	// responses back.
	ErrEmptyResponse = errors.New("server returned no method responses")
)

// Method-level error types from RFC 8620 section 3.6.2 and RFC 8621.
const (
	ErrorTypeServerUnavailable   = "serverUnavailable"
	ErrorTypeServerFail          = "serverFail"
	ErrorTypeServerPartialFail   = "serverPartialFail"
	ErrorTypeUnknownMethod       = "unknownMethod"
	ErrorTypeInvalidArguments    = "invalidArguments"
	ErrorTypeInvalidResultRef    = "invalidResultReference"
	ErrorTypeForbidden           = "forbidden"
	ErrorTypeAccountNotFound     = "accountNotFound"
	ErrorTypeAccountNotSupported = "accountNotSupportedByMethod"
	ErrorTypeAccountReadOnly     = "accountReadOnly"
	ErrorTypeCannotCalculate     = "cannotCalculateChanges"
	ErrorTypeTooManyChanges      = "tooManyChanges"
	ErrorTypeStateMismatch       = "stateMismatch"
	ErrorTypeRequestTooLarge     = "requestTooLarge"
	ErrorTypeAnchorNotFound      = "anchorNotFound"
	ErrorTypeUnsupportedSort     = "unsupportedSort"
	ErrorTypeUnsupportedFilter   = "unsupportedFilter"
)

// MethodError is the payload of an "error" method response. It is surfaced
// as returned by the server: Raw holds the untouched payload so callers can
// read fields this type does not model.
type MethodError struct {
	// Method is the method name of the call that failed
	Method string `json:"-"`

	// Type is the server's error type, e.g. "accountNotFound"
	Type string `json:"type"`

	// Description is an optional human-readable explanation
	Description string `json:"description,omitempty"`

	// Properties lists offending argument names for invalidArguments
	Properties []string `json:"properties,omitempty"`

	// Raw is the error payload exactly as the server sent it
	Raw json.RawMessage `json:"-"`
}

func newMethodError(method string, payload json.RawMessage) *MethodError {
	e := &MethodError{Method: method, Raw: payload}
	// A payload that does not decode still yields a MethodError with Raw set.
	_ = json.Unmarshal(payload, e)
	return e
}

// Error implements the error interface
func (e *MethodError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("jmap %s: %s: %s", e.Method, e.Type, e.Description)
	}
	return fmt.Sprintf("jmap %s: %s", e.Method, e.Type)
}

// IsMethodError reports whether err is a *MethodError of the given type.
// An empty errorType matches any method error.
func IsMethodError(err error, errorType string) bool {
	var me *MethodError
	if !errors.As(err, &me) {
		return false
	}
	return errorType == "" || me.Type == errorType
}

// ClientError wraps a failure with the client operation it happened in.
type ClientError struct {
	// Op is the operation that failed (e.g., "fetchSession", "request", "upload")
	Op string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *ClientError) Error() string {
	return fmt.Sprintf("jmap %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ClientError) Unwrap() error {
	return e.Err
}
