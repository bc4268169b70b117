package jmap

import (
	"context"
	"encoding/json"
	"maps"
)

// SingleCallID is the call id used for single-call requests.
const SingleCallID = "0"

// AccountScoped is implemented by method arguments that carry an accountId.
// WithAccount returns a copy; the receiver is left as it was.
type AccountScoped[T any] interface {
	Account() string
	WithAccount(id string) T
}

// Arguments are untyped method arguments. A missing, null or empty
// "accountId" counts as absent.
type Arguments map[string]any

// Account returns the accountId entry, or "" when absent.
func (a Arguments) Account() string {
	id, _ := a["accountId"].(string)
	return id
}

// WithAccount returns a shallow copy of a with accountId set to id.
func (a Arguments) WithAccount(id string) Arguments {
	out := maps.Clone(a)
	if out == nil {
		out = Arguments{}
	}
	out["accountId"] = id
	return out
}

// ReplaceAccountID returns args unchanged when it names an account, and
// otherwise a copy naming the session's first account.
func ReplaceAccountID[A AccountScoped[A]](c *Client, args A) (A, error) {
	if args.Account() != "" {
		return args, nil
	}
	id, err := c.FirstAccountID()
	if err != nil {
		var zero A
		return zero, err
	}
	return args.WithAccount(id), nil
}

// NewInvocation encodes args into an Invocation.
func NewInvocation(method string, args any, callID string) (Invocation, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return Invocation{}, &ClientError{Op: "encode " + method, Err: err}
	}
	return Invocation{Name: method, Arguments: raw, CallID: callID}, nil
}

// Call sends a single method call and decodes its result into R. The
// account id is defaulted first. When the server answers with an error
// response, Call returns it as a *MethodError.
func Call[R any, A AccountScoped[A]](ctx context.Context, c *Client, method string, args A) (R, error) {
	var zero R

	args, err := ReplaceAccountID(c, args)
	if err != nil {
		return zero, err
	}

	inv, err := NewInvocation(method, args, SingleCallID)
	if err != nil {
		return zero, err
	}

	resp, err := c.RawRequest(ctx, []Invocation{inv})
	if err != nil {
		return zero, err
	}

	return FirstResult[R](resp, method)
}

// FirstResult takes the first method response out of resp and decodes it
// into R. An error response becomes a *MethodError attributed to method.
func FirstResult[R any](resp *Response, method string) (R, error) {
	var out R

	if resp == nil || len(resp.MethodResponses) == 0 {
		return out, ErrEmptyResponse
	}

	first := resp.MethodResponses[0]
	if first.IsError() {
		return out, newMethodError(method, first.Arguments)
	}

	if err := json.Unmarshal(first.Arguments, &out); err != nil {
		return out, &ClientError{Op: "decode " + method, Err: err}
	}
	return out, nil
}
