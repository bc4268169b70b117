package credential

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidCredential is returned when a supplier yields something other
// than a string.
var ErrInvalidCredential = errors.New("credential supplier did not yield a string")

// Kind identifies the shape of a Supplier.
type Kind int

const (
	KindUnset Kind = iota
	KindLiteral
	KindDeferred
	KindProvider
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindDeferred:
		return "deferred"
	case KindProvider:
		return "provider"
	default:
		return "unset"
	}
}

// ProviderFunc produces a credential on demand. It may return a string, a
// *Future resolving to a string, or an error.
type ProviderFunc func(ctx context.Context) (any, error)

// Supplier is a tagged union over the three credential shapes. The zero
// value is unset and fails to resolve.
type Supplier struct {
	kind     Kind
	literal  string
	future   *Future
	provider ProviderFunc
}

// Literal returns a Supplier for a token known up front.
func Literal(token string) Supplier {
	return Supplier{kind: KindLiteral, literal: token}
}

// Deferred returns a Supplier that waits for f.
func Deferred(f *Future) Supplier {
	return Supplier{kind: KindDeferred, future: f}
}

// Provider returns a Supplier that calls fn on every resolution.
func Provider(fn ProviderFunc) Supplier {
	return Supplier{kind: KindProvider, provider: fn}
}

// Kind returns the shape of the supplier.
func (s Supplier) Kind() Kind {
	return s.kind
}

// Resolve produces the credential string. Errors from a Future or a
// ProviderFunc are returned wrapped in a *ResolutionError; a non-string
// outcome fails with ErrInvalidCredential.
func (s Supplier) Resolve(ctx context.Context) (string, error) {
	switch s.kind {
	case KindLiteral:
		return s.literal, nil

	case KindDeferred:
		if s.future == nil {
			return "", &ResolutionError{Kind: s.kind, Err: ErrInvalidCredential}
		}
		v, err := s.future.Wait(ctx)
		if err != nil {
			return "", &ResolutionError{Kind: s.kind, Err: err}
		}
		return s.asString(v)

	case KindProvider:
		if s.provider == nil {
			return "", &ResolutionError{Kind: s.kind, Err: ErrInvalidCredential}
		}
		v, err := s.provider(ctx)
		if err != nil {
			return "", &ResolutionError{Kind: s.kind, Err: err}
		}
		if f, ok := v.(*Future); ok {
			if f == nil {
				return "", &ResolutionError{Kind: s.kind, Got: "nil future", Err: ErrInvalidCredential}
			}
			v, err = f.Wait(ctx)
			if err != nil {
				return "", &ResolutionError{Kind: s.kind, Err: err}
			}
		}
		return s.asString(v)

	default:
		return "", &ResolutionError{Kind: s.kind, Err: ErrInvalidCredential}
	}
}

func (s Supplier) asString(v any) (string, error) {
	token, ok := v.(string)
	if !ok {
		return "", &ResolutionError{Kind: s.kind, Got: fmt.Sprintf("%T", v), Err: ErrInvalidCredential}
	}
	return token, nil
}

// ResolutionError describes a failed credential resolution.
type ResolutionError struct {
	// Kind is the shape of the supplier that failed
	Kind Kind

	// Got is the Go type of the non-string value, if that was the failure
	Got string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *ResolutionError) Error() string {
	if e.Got != "" {
		return fmt.Sprintf("resolve %s credential: %v (got %s)", e.Kind, e.Err, e.Got)
	}
	return fmt.Sprintf("resolve %s credential: %v", e.Kind, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ResolutionError) Unwrap() error {
	return e.Err
}
