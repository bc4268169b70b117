package jmap

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Nemolo/jmap-client/internal/instrumentation"
	"github.com/Nemolo/jmap-client/internal/logging"
)

// FetchSession loads the session document and stores it as the current
// session, replacing any previous one. extraHeaders override the base
// headers, except Authorization. On failure the stored session is left as
// it was.
func (c *Client) FetchSession(ctx context.Context, extraHeaders map[string]string) (*Session, error) {
	ctx, span := instrumentation.StartJMAPSpan(ctx, instrumentation.OperationFetchSession)
	defer span.End()

	s, err := c.fetchSession(ctx, extraHeaders)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		if c.metrics != nil {
			c.metrics.RecordSessionFetch(ctx, instrumentation.StatusError)
		}
		c.logger.Debug("jmap session fetch failed", logging.Endpoint(c.sessionURL), logging.Err(err))
		return nil, err
	}

	c.session.Store(s)

	instrumentation.AddSpanEvent(span, "session.replaced",
		attribute.Int("jmap.accounts", len(s.AccountIDs())),
		attribute.Int("jmap.capabilities", len(s.CapabilityURIs())),
	)
	instrumentation.SetSpanSuccess(span)
	if c.metrics != nil {
		c.metrics.RecordSessionFetch(ctx, instrumentation.StatusSuccess)
	}
	c.logger.Debug("jmap session replaced",
		logging.Endpoint(c.sessionURL),
		logging.UserHash(s.Username),
		"accounts", len(s.AccountIDs()),
		"capabilities", len(s.CapabilityURIs()),
		"state", s.State)

	return s, nil
}

func (c *Client) fetchSession(ctx context.Context, extraHeaders map[string]string) (*Session, error) {
	token, err := c.credential.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.transport.Get(ctx, c.sessionURL, c.headers(token, extraHeaders))
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &ClientError{Op: "decode session", Err: err}
	}
	return &s, nil
}

// Session returns the current session or ErrNoSession.
func (c *Client) Session() (*Session, error) {
	s := c.session.Load()
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// HasSession reports whether a session has been loaded.
func (c *Client) HasSession() bool {
	return c.session.Load() != nil
}

// AccountIDs returns the session's account ids in the order the server
// listed them.
func (c *Client) AccountIDs() ([]string, error) {
	s, err := c.Session()
	if err != nil {
		return nil, err
	}
	return s.AccountIDs(), nil
}

// FirstAccountID returns the first account id of the session. It is the
// default for calls that do not name an account.
func (c *Client) FirstAccountID() (string, error) {
	s, err := c.Session()
	if err != nil {
		return "", err
	}
	return firstAccountID(s)
}

func firstAccountID(s *Session) (string, error) {
	if s.Accounts == nil {
		return "", ErrNoAccount
	}
	pair := s.Accounts.Oldest()
	if pair == nil {
		return "", ErrNoAccount
	}
	return pair.Key, nil
}

// Capabilities returns the capability URIs sent in "using": the session's
// advertised capabilities, or DefaultCapabilities when there is no session
// or it advertises none.
func (c *Client) Capabilities() []string {
	uris := c.session.Load().CapabilityURIs()
	if len(uris) == 0 {
		return append([]string(nil), DefaultCapabilities...)
	}
	return uris
}
