package jmap

import "time"

// Mail object types from RFC 8621. Fields the client never reads are still
// modelled so results round-trip through the CLI and MCP tools.

// Mailbox is a named set of emails.
type Mailbox struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name,omitempty"`
	ParentID      *string        `json:"parentId,omitempty"`
	Role          *string        `json:"role,omitempty"`
	SortOrder     int            `json:"sortOrder,omitempty"`
	TotalEmails   int            `json:"totalEmails,omitempty"`
	UnreadEmails  int            `json:"unreadEmails,omitempty"`
	TotalThreads  int            `json:"totalThreads,omitempty"`
	UnreadThreads int            `json:"unreadThreads,omitempty"`
	MyRights      *MailboxRights `json:"myRights,omitempty"`
	IsSubscribed  bool           `json:"isSubscribed,omitempty"`
}

// MailboxRights are the user's permissions on a mailbox.
type MailboxRights struct {
	MayReadItems   bool `json:"mayReadItems"`
	MayAddItems    bool `json:"mayAddItems"`
	MayRemoveItems bool `json:"mayRemoveItems"`
	MaySetSeen     bool `json:"maySetSeen"`
	MaySetKeywords bool `json:"maySetKeywords"`
	MayCreateChild bool `json:"mayCreateChild"`
	MayRename      bool `json:"mayRename"`
	MayDelete      bool `json:"mayDelete"`
	MaySubmit      bool `json:"maySubmit"`
}

// EmailAddress is a name/address pair from an address header.
type EmailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// EmailBodyPart describes one MIME part.
type EmailBodyPart struct {
	PartID      string          `json:"partId,omitempty"`
	BlobID      string          `json:"blobId,omitempty"`
	Size        int64           `json:"size,omitempty"`
	Name        *string         `json:"name,omitempty"`
	Type        string          `json:"type,omitempty"`
	Charset     *string         `json:"charset,omitempty"`
	Disposition *string         `json:"disposition,omitempty"`
	CID         *string         `json:"cid,omitempty"`
	SubParts    []EmailBodyPart `json:"subParts,omitempty"`
}

// EmailBodyValue is the decoded text of a body part.
type EmailBodyValue struct {
	Value             string `json:"value"`
	IsEncodingProblem bool   `json:"isEncodingProblem,omitempty"`
	IsTruncated       bool   `json:"isTruncated,omitempty"`
}

// Email is a message stored on the server.
type Email struct {
	ID            string                    `json:"id,omitempty"`
	BlobID        string                    `json:"blobId,omitempty"`
	ThreadID      string                    `json:"threadId,omitempty"`
	MailboxIDs    map[string]bool           `json:"mailboxIds,omitempty"`
	Keywords      map[string]bool           `json:"keywords,omitempty"`
	Size          int64                     `json:"size,omitempty"`
	ReceivedAt    *time.Time                `json:"receivedAt,omitempty"`
	MessageID     []string                  `json:"messageId,omitempty"`
	InReplyTo     []string                  `json:"inReplyTo,omitempty"`
	References    []string                  `json:"references,omitempty"`
	Sender        []EmailAddress            `json:"sender,omitempty"`
	From          []EmailAddress            `json:"from,omitempty"`
	To            []EmailAddress            `json:"to,omitempty"`
	Cc            []EmailAddress            `json:"cc,omitempty"`
	Bcc           []EmailAddress            `json:"bcc,omitempty"`
	ReplyTo       []EmailAddress            `json:"replyTo,omitempty"`
	Subject       string                    `json:"subject,omitempty"`
	SentAt        *time.Time                `json:"sentAt,omitempty"`
	HasAttachment bool                      `json:"hasAttachment,omitempty"`
	Preview       string                    `json:"preview,omitempty"`
	BodyValues    map[string]EmailBodyValue `json:"bodyValues,omitempty"`
	TextBody      []EmailBodyPart           `json:"textBody,omitempty"`
	HTMLBody      []EmailBodyPart           `json:"htmlBody,omitempty"`
	Attachments   []EmailBodyPart           `json:"attachments,omitempty"`
}

// EmailGetArgs extend GetArgs with the body fetching options of Email/get.
type EmailGetArgs struct {
	AccountID           string   `json:"accountId"`
	IDs                 []string `json:"ids"`
	Properties          []string `json:"properties,omitempty"`
	BodyProperties      []string `json:"bodyProperties,omitempty"`
	FetchTextBodyValues bool     `json:"fetchTextBodyValues,omitempty"`
	FetchHTMLBodyValues bool     `json:"fetchHTMLBodyValues,omitempty"`
	FetchAllBodyValues  bool     `json:"fetchAllBodyValues,omitempty"`
	MaxBodyValueBytes   int      `json:"maxBodyValueBytes,omitempty"`
}

func (a EmailGetArgs) Account() string { return a.AccountID }

func (a EmailGetArgs) WithAccount(id string) EmailGetArgs {
	a.AccountID = id
	return a
}

// EmailFilterCondition is the filter object of Email/query.
type EmailFilterCondition struct {
	InMailbox          string     `json:"inMailbox,omitempty"`
	InMailboxOtherThan []string   `json:"inMailboxOtherThan,omitempty"`
	Before             *time.Time `json:"before,omitempty"`
	After              *time.Time `json:"after,omitempty"`
	HasKeyword         string     `json:"hasKeyword,omitempty"`
	NotKeyword         string     `json:"notKeyword,omitempty"`
	HasAttachment      *bool      `json:"hasAttachment,omitempty"`
	Text               string     `json:"text,omitempty"`
	From               string     `json:"from,omitempty"`
	To                 string     `json:"to,omitempty"`
	Subject            string     `json:"subject,omitempty"`
}

// EmailImport describes one message to import from an uploaded blob.
type EmailImport struct {
	BlobID     string          `json:"blobId"`
	MailboxIDs map[string]bool `json:"mailboxIds"`
	Keywords   map[string]bool `json:"keywords,omitempty"`
	ReceivedAt *time.Time      `json:"receivedAt,omitempty"`
}

// EmailImportArgs are the arguments of Email/import.
type EmailImportArgs struct {
	AccountID string                 `json:"accountId"`
	IfInState string                 `json:"ifInState,omitempty"`
	Emails    map[string]EmailImport `json:"emails"`
}

func (a EmailImportArgs) Account() string { return a.AccountID }

func (a EmailImportArgs) WithAccount(id string) EmailImportArgs {
	a.AccountID = id
	return a
}

// EmailImportResponse is the result of Email/import.
type EmailImportResponse struct {
	AccountID  string              `json:"accountId"`
	OldState   string              `json:"oldState,omitempty"`
	NewState   string              `json:"newState"`
	Created    map[string]Email    `json:"created,omitempty"`
	NotCreated map[string]SetError `json:"notCreated,omitempty"`
}

// Thread lists the emails of a conversation, oldest first.
type Thread struct {
	ID       string   `json:"id"`
	EmailIDs []string `json:"emailIds"`
}

// Address is an SMTP envelope address.
type Address struct {
	Email      string         `json:"email"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Envelope is the SMTP envelope of a submission.
type Envelope struct {
	MailFrom Address   `json:"mailFrom"`
	RcptTo   []Address `json:"rcptTo"`
}

// EmailSubmission is a message queued for delivery.
type EmailSubmission struct {
	ID         string     `json:"id,omitempty"`
	IdentityID string     `json:"identityId,omitempty"`
	EmailID    string     `json:"emailId,omitempty"`
	ThreadID   string     `json:"threadId,omitempty"`
	Envelope   *Envelope  `json:"envelope,omitempty"`
	SendAt     *time.Time `json:"sendAt,omitempty"`
	UndoStatus string     `json:"undoStatus,omitempty"`
}

// EmailSubmissionSetArgs extend SetArgs with the implicit Email/set
// performed after a successful submission.
type EmailSubmissionSetArgs struct {
	AccountID             string                     `json:"accountId"`
	IfInState             string                     `json:"ifInState,omitempty"`
	Create                map[string]EmailSubmission `json:"create,omitempty"`
	Update                map[string]PatchObject     `json:"update,omitempty"`
	Destroy               []string                   `json:"destroy,omitempty"`
	OnSuccessUpdateEmail  map[string]PatchObject     `json:"onSuccessUpdateEmail,omitempty"`
	OnSuccessDestroyEmail []string                   `json:"onSuccessDestroyEmail,omitempty"`
}

func (a EmailSubmissionSetArgs) Account() string { return a.AccountID }

func (a EmailSubmissionSetArgs) WithAccount(id string) EmailSubmissionSetArgs {
	a.AccountID = id
	return a
}
