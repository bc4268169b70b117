// Package credential turns the different ways a caller can supply a bearer
// token into a single resolve operation.
//
// A Supplier is one of three shapes:
//   - Literal: a token string known up front
//   - Deferred: a Future that will eventually hold the token
//   - Provider: a function returning either a token string or a Future
//
// Resolution is never cached. The JMAP client resolves its supplier once per
// network operation, so a Provider is invoked again for every request and can
// hand out refreshed tokens.
//
// Example usage:
//
//	sup := credential.FromTokenSource(oauthConfig.TokenSource(ctx))
//	token, err := sup.Resolve(ctx)
//	if errors.Is(err, credential.ErrInvalidCredential) {
//	    // the supplier produced something that is not a string
//	}
package credential
