// Package jmap is a client for JMAP mail servers (RFC 8620, RFC 8621).
//
// A Client is created against a session URL and loads the session document
// with FetchSession. Every method call goes through RawRequest, which posts
// one batch to the API endpoint and returns the response as the server sent
// it. Call wraps the single-call case: it fills in the default account id,
// sends one invocation with call id "0" and decodes the first method
// response, turning an "error" response into a *MethodError.
//
// The typed wrappers (MailboxGet, EmailQuery, ...) are thin applications of
// Call with a fixed method name and argument/response pairing.
//
// Basic usage:
//
//	client, err := jmap.New(sessionURL, credential.Literal(token), transport.NewHTTP())
//	if err != nil {
//		return err
//	}
//	if _, err := client.FetchSession(ctx, nil); err != nil {
//		return err
//	}
//	mailboxes, err := client.MailboxGet(ctx, jmap.GetArgs{})
package jmap
