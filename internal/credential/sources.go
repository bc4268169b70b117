package credential

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// FromTokenSource adapts an OAuth2 token source. The source is asked for a
// token on every resolution; oauth2.ReuseTokenSource can be used by the
// caller if refreshes should be shared.
func FromTokenSource(ts oauth2.TokenSource) Supplier {
	return Provider(func(ctx context.Context) (any, error) {
		if ts == nil {
			return nil, fmt.Errorf("no token source configured")
		}
		tok, err := ts.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to get token from source: %w", err)
		}
		return tok.AccessToken, nil
	})
}

// FromFile returns a Supplier that reads the token from path on every
// resolution. Only the first whitespace-separated field is used, so files
// holding "access refresh" pairs work too.
func FromFile(path string) Supplier {
	return Provider(func(ctx context.Context) (any, error) {
		slurp, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read token file: %w", err)
		}
		f := strings.Fields(strings.TrimSpace(string(slurp)))
		if len(f) == 0 {
			return nil, fmt.Errorf("token file %s is empty", path)
		}
		return f[0], nil
	})
}

// FromEnv returns a Supplier that reads the token from the environment
// variable key on every resolution.
func FromEnv(key string) Supplier {
	return Provider(func(ctx context.Context) (any, error) {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil, fmt.Errorf("environment variable %s is not set", key)
		}
		return v, nil
	})
}
