package jmap

import "context"

// Method names. They are case-sensitive wire values.
const (
	MethodMailboxGet             = "Mailbox/get"
	MethodMailboxChanges         = "Mailbox/changes"
	MethodMailboxSet             = "Mailbox/set"
	MethodEmailGet               = "Email/get"
	MethodEmailChanges           = "Email/changes"
	MethodEmailQuery             = "Email/query"
	MethodEmailSet               = "Email/set"
	MethodEmailImport            = "Email/import"
	MethodThreadGet              = "Thread/get"
	MethodEmailSubmissionGet     = "EmailSubmission/get"
	MethodEmailSubmissionChanges = "EmailSubmission/changes"
	MethodEmailSubmissionSet     = "EmailSubmission/set"
)

// Methods lists every method with a typed wrapper on Client.
var Methods = []string{
	MethodMailboxGet,
	MethodMailboxChanges,
	MethodMailboxSet,
	MethodEmailGet,
	MethodEmailChanges,
	MethodEmailQuery,
	MethodEmailSet,
	MethodEmailImport,
	MethodThreadGet,
	MethodEmailSubmissionGet,
	MethodEmailSubmissionChanges,
	MethodEmailSubmissionSet,
}

// MailboxGet fetches mailboxes by id, or all of them when args.IDs is nil.
func (c *Client) MailboxGet(ctx context.Context, args GetArgs) (*GetResponse[Mailbox], error) {
	return Call[*GetResponse[Mailbox]](ctx, c, MethodMailboxGet, args)
}

// MailboxChanges lists mailbox ids changed since args.SinceState.
func (c *Client) MailboxChanges(ctx context.Context, args ChangesArgs) (*ChangesResponse, error) {
	return Call[*ChangesResponse](ctx, c, MethodMailboxChanges, args)
}

// MailboxSet applies mailbox changes; per-id failures come back in the Not* maps.
func (c *Client) MailboxSet(ctx context.Context, args SetArgs[Mailbox]) (*SetResponse[Mailbox], error) {
	return Call[*SetResponse[Mailbox]](ctx, c, MethodMailboxSet, args)
}

// EmailGet fetches emails by id, optionally with body values.
func (c *Client) EmailGet(ctx context.Context, args EmailGetArgs) (*GetResponse[Email], error) {
	return Call[*GetResponse[Email]](ctx, c, MethodEmailGet, args)
}

// EmailChanges lists email ids changed since args.SinceState.
func (c *Client) EmailChanges(ctx context.Context, args ChangesArgs) (*ChangesResponse, error) {
	return Call[*ChangesResponse](ctx, c, MethodEmailChanges, args)
}

// EmailQuery returns the ids of emails matching args.Filter in args.Sort order.
func (c *Client) EmailQuery(ctx context.Context, args QueryArgs) (*QueryResponse, error) {
	return Call[*QueryResponse](ctx, c, MethodEmailQuery, args)
}

// EmailSet applies email changes, e.g. moving or flagging by patch.
func (c *Client) EmailSet(ctx context.Context, args SetArgs[Email]) (*SetResponse[Email], error) {
	return Call[*SetResponse[Email]](ctx, c, MethodEmailSet, args)
}

// EmailImport turns uploaded RFC 5322 blobs into emails.
func (c *Client) EmailImport(ctx context.Context, args EmailImportArgs) (*EmailImportResponse, error) {
	return Call[*EmailImportResponse](ctx, c, MethodEmailImport, args)
}

// ThreadGet fetches threads and the ids of the emails they hold.
func (c *Client) ThreadGet(ctx context.Context, args GetArgs) (*GetResponse[Thread], error) {
	return Call[*GetResponse[Thread]](ctx, c, MethodThreadGet, args)
}

// EmailSubmissionGet fetches email submissions by id.
func (c *Client) EmailSubmissionGet(ctx context.Context, args GetArgs) (*GetResponse[EmailSubmission], error) {
	return Call[*GetResponse[EmailSubmission]](ctx, c, MethodEmailSubmissionGet, args)
}

// EmailSubmissionChanges lists submission ids changed since args.SinceState.
func (c *Client) EmailSubmissionChanges(ctx context.Context, args ChangesArgs) (*ChangesResponse, error) {
	return Call[*ChangesResponse](ctx, c, MethodEmailSubmissionChanges, args)
}

// EmailSubmissionSet sends emails and can update the sent email on success.
func (c *Client) EmailSubmissionSet(ctx context.Context, args EmailSubmissionSetArgs) (*SetResponse[EmailSubmission], error) {
	return Call[*SetResponse[EmailSubmission]](ctx, c, MethodEmailSubmissionSet, args)
}
