package jmap_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/tools/batch"
	"github.com/Nemolo/jmap-client/internal/tools/common"
)

const (
	defaultQueryLimit = 20

	queryCallID = "q"
	getCallID   = "g"
)

// defaultEmailProperties are returned by jmap_email_query with fetch=true
// when no properties are given.
var defaultEmailProperties = []string{
	"id", "threadId", "mailboxIds", "keywords", "from", "to", "subject", "receivedAt", "preview", "hasAttachment",
}

// QueryResult is the output of jmap_email_query with fetch=true.
type QueryResult struct {
	Query  *jmap.QueryResponse           `json:"query"`
	Emails *jmap.GetResponse[jmap.Email] `json:"emails"`
}

// registerEmailTools registers email, thread and submission tools
func registerEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	queryTool := mcp.NewTool("jmap_email_query",
		mcp.WithDescription("Search emails, newest first. With fetch=true the matching emails are returned in the same request."),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithString("inMailbox",
			mcp.Description("Only emails in this mailbox id"),
		),
		mcp.WithString("text",
			mcp.Description("Full-text search over headers and body"),
		),
		mcp.WithString("from",
			mcp.Description("Match the From header"),
		),
		mcp.WithString("to",
			mcp.Description("Match the To header"),
		),
		mcp.WithString("subject",
			mcp.Description("Match the subject"),
		),
		mcp.WithString("hasKeyword",
			mcp.Description("Only emails with this keyword, e.g. '$flagged'"),
		),
		mcp.WithString("notKeyword",
			mcp.Description("Only emails without this keyword, e.g. '$seen' for unread mail"),
		),
		mcp.WithString("after",
			mcp.Description("Only emails received after this RFC 3339 timestamp"),
		),
		mcp.WithString("before",
			mcp.Description("Only emails received before this RFC 3339 timestamp"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20)"),
		),
		mcp.WithNumber("position",
			mcp.Description("Index of the first result (default: 0)"),
		),
		mcp.WithBoolean("collapseThreads",
			mcp.Description("Return only one email per thread (default: false)"),
		),
		mcp.WithBoolean("fetch",
			mcp.Description("Also fetch the matching emails (default: false)"),
		),
		mcp.WithArray("properties",
			mcp.Description("Email properties to fetch when fetch=true"),
			mcp.WithStringItems(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(queryTool, common.InstrumentedToolHandlerWithMethods("jmap_email_query", []string{jmap.MethodEmailQuery}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			queryArgs, err := emailQueryArgs(request)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if !request.GetBool("fetch", false) {
				resp, err := client.EmailQuery(ctx, queryArgs)
				if err != nil {
					return common.ErrorResult("query emails", err), nil
				}
				return common.JSONResult(resp), nil
			}

			result, err := queryAndFetch(ctx, client, queryArgs, request.GetStringSlice("properties", defaultEmailProperties))
			if err != nil {
				return common.ErrorResult("query emails", err), nil
			}
			return common.JSONResult(result), nil
		}))

	getTool := mcp.NewTool("jmap_email_get",
		mcp.WithDescription("Fetch emails by id, optionally with their text bodies"),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Email ids to fetch"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("properties",
			mcp.Description("Properties to return (default: the server's default set)"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("fetchTextBodyValues",
			mcp.Description("Include the decoded text body (default: false)"),
		),
		mcp.WithNumber("maxBodyValueBytes",
			mcp.Description("Truncate body values to this many bytes"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(getTool, common.InstrumentedToolHandlerWithMethods("jmap_email_get", []string{jmap.MethodEmailGet}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			ids, err := batch.ParseStringOrArray(args["ids"], "ids")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			resp, err := client.EmailGet(ctx, jmap.EmailGetArgs{
				AccountID:           common.GetAccountFromArgs(args),
				IDs:                 ids,
				Properties:          request.GetStringSlice("properties", nil),
				FetchTextBodyValues: request.GetBool("fetchTextBodyValues", false),
				MaxBodyValueBytes:   request.GetInt("maxBodyValueBytes", 0),
			})
			if err != nil {
				return common.ErrorResult("get emails", err), nil
			}

			return common.JSONResult(resp), nil
		}))

	changesTool := mcp.NewTool("jmap_email_changes",
		mcp.WithDescription("List emails created, updated or destroyed since a given state"),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithString("sinceState",
			mcp.Required(),
			mcp.Description("The state returned by an earlier jmap_email_get or jmap_email_changes"),
		),
		mcp.WithNumber("maxChanges",
			mcp.Description("Maximum number of ids to return"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(changesTool, common.InstrumentedToolHandlerWithMethods("jmap_email_changes", []string{jmap.MethodEmailChanges}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sinceState := request.GetString("sinceState", "")
			if sinceState == "" {
				return mcp.NewToolResultError("sinceState is required"), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			resp, err := client.EmailChanges(ctx, jmap.ChangesArgs{
				AccountID:  common.GetAccountFromArgs(request.GetArguments()),
				SinceState: sinceState,
				MaxChanges: optionalInt(request, "maxChanges"),
			})
			if err != nil {
				return common.ErrorResult("get email changes", err), nil
			}

			return common.JSONResult(resp), nil
		}))

	threadTool := mcp.NewTool("jmap_thread_get",
		mcp.WithDescription("Fetch threads by id. Each thread lists its email ids, oldest first."),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Thread ids to fetch"),
			mcp.WithStringItems(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(threadTool, common.InstrumentedToolHandlerWithMethods("jmap_thread_get", []string{jmap.MethodThreadGet}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			ids, err := batch.ParseStringOrArray(args["ids"], "ids")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			resp, err := client.ThreadGet(ctx, jmap.GetArgs{
				AccountID: common.GetAccountFromArgs(args),
				IDs:       ids,
			})
			if err != nil {
				return common.ErrorResult("get threads", err), nil
			}

			return common.JSONResult(resp), nil
		}))

	submissionTool := mcp.NewTool("jmap_email_submission_get",
		mcp.WithDescription("List outgoing email submissions and their delivery status"),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithArray("ids",
			mcp.Description("Submission ids to fetch (default: all)"),
			mcp.WithStringItems(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(submissionTool, common.InstrumentedToolHandlerWithMethods("jmap_email_submission_get", []string{jmap.MethodEmailSubmissionGet}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			ids, err := optionalIDs(args, "ids")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			resp, err := client.EmailSubmissionGet(ctx, jmap.GetArgs{
				AccountID: common.GetAccountFromArgs(args),
				IDs:       ids,
			})
			if err != nil {
				return common.ErrorResult("get email submissions", err), nil
			}

			return common.JSONResult(resp), nil
		}))

	// Register write tools only if not in read-only mode
	if !readOnly {
		if err := registerEmailWriteTools(s, sc); err != nil {
			return err
		}
	}

	return nil
}

func registerEmailWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	setTool := mcp.NewTool("jmap_email_set",
		mcp.WithDescription("Update the keywords or the mailbox of emails, or destroy them"),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Email ids to change"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("addKeywords",
			mcp.Description("Keywords to set, e.g. '$seen' or '$flagged'"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("removeKeywords",
			mcp.Description("Keywords to clear"),
			mcp.WithStringItems(),
		),
		mcp.WithString("moveToMailbox",
			mcp.Description("Mailbox id that becomes the only mailbox of the emails"),
		),
		mcp.WithBoolean("destroy",
			mcp.Description("Permanently delete the emails (default: false)"),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)

	s.AddTool(setTool, common.InstrumentedToolHandlerWithMethods("jmap_email_set", []string{jmap.MethodEmailSet}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			setArgs, err := emailSetArgs(request)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			resp, err := client.EmailSet(ctx, setArgs)
			if err != nil {
				return common.ErrorResult("update emails", err), nil
			}
			if msg := setFailures(resp.NotUpdated, resp.NotDestroyed); msg != "" {
				return mcp.NewToolResultError(msg), nil
			}

			return common.JSONResult(resp), nil
		}))

	importTool := mcp.NewTool("jmap_email_import",
		mcp.WithDescription("Import an RFC 5322 message previously uploaded with jmap_upload into mailboxes"),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithString("blobId",
			mcp.Required(),
			mcp.Description("Blob id returned by jmap_upload"),
		),
		mcp.WithArray("mailboxIds",
			mcp.Required(),
			mcp.Description("Mailboxes to put the email in"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("keywords",
			mcp.Description("Keywords to set on the imported email"),
			mcp.WithStringItems(),
		),
	)

	s.AddTool(importTool, common.InstrumentedToolHandlerWithMethods("jmap_email_import", []string{jmap.MethodEmailImport}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			blobID := request.GetString("blobId", "")
			if blobID == "" {
				return mcp.NewToolResultError("blobId is required"), nil
			}
			mailboxIDs, err := batch.ParseStringOrArray(args["mailboxIds"], "mailboxIds")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			email := jmap.EmailImport{
				BlobID:     blobID,
				MailboxIDs: toSet(mailboxIDs),
			}
			if keywords := request.GetStringSlice("keywords", nil); len(keywords) > 0 {
				email.Keywords = toSet(keywords)
			}

			resp, err := client.EmailImport(ctx, jmap.EmailImportArgs{
				AccountID: common.GetAccountFromArgs(args),
				Emails:    map[string]jmap.EmailImport{createKey: email},
			})
			if err != nil {
				return common.ErrorResult("import email", err), nil
			}
			if msg := setFailures(resp.NotCreated); msg != "" {
				return mcp.NewToolResultError(msg), nil
			}

			return common.JSONResult(resp), nil
		}))

	return nil
}

func emailQueryArgs(request mcp.CallToolRequest) (jmap.QueryArgs, error) {
	args := request.GetArguments()

	filter := jmap.EmailFilterCondition{
		InMailbox:  request.GetString("inMailbox", ""),
		Text:       request.GetString("text", ""),
		From:       request.GetString("from", ""),
		To:         request.GetString("to", ""),
		Subject:    request.GetString("subject", ""),
		HasKeyword: request.GetString("hasKeyword", ""),
		NotKeyword: request.GetString("notKeyword", ""),
	}

	var err error
	if filter.After, err = optionalTime(args, "after"); err != nil {
		return jmap.QueryArgs{}, err
	}
	if filter.Before, err = optionalTime(args, "before"); err != nil {
		return jmap.QueryArgs{}, err
	}

	limit := request.GetInt("limit", defaultQueryLimit)
	if limit <= 0 {
		return jmap.QueryArgs{}, fmt.Errorf("limit must be positive")
	}

	return jmap.QueryArgs{
		AccountID:       common.GetAccountFromArgs(args),
		Filter:          filter,
		Sort:            []jmap.Comparator{{Property: "receivedAt", IsAscending: false}},
		Position:        request.GetInt("position", 0),
		Limit:           &limit,
		CollapseThreads: request.GetBool("collapseThreads", false),
	}, nil
}

// queryAndFetch sends Email/query and an Email/get referring to its ids in
// one request.
func queryAndFetch(ctx context.Context, client *jmap.Client, queryArgs jmap.QueryArgs, properties []string) (*QueryResult, error) {
	queryArgs, err := jmap.ReplaceAccountID(client, queryArgs)
	if err != nil {
		return nil, err
	}

	query, err := jmap.NewInvocation(jmap.MethodEmailQuery, queryArgs, queryCallID)
	if err != nil {
		return nil, err
	}
	get, err := jmap.NewInvocation(jmap.MethodEmailGet, jmap.Arguments{
		"accountId": queryArgs.AccountID,
		"#ids": jmap.ResultReference{
			ResultOf: queryCallID,
			Name:     jmap.MethodEmailQuery,
			Path:     "/ids",
		},
		"properties": properties,
	}, getCallID)
	if err != nil {
		return nil, err
	}

	resp, err := client.RawRequest(ctx, []jmap.Invocation{query, get})
	if err != nil {
		return nil, err
	}

	result := &QueryResult{}
	if result.Query, err = resultFor[*jmap.QueryResponse](resp, queryCallID, jmap.MethodEmailQuery); err != nil {
		return nil, err
	}
	if result.Emails, err = resultFor[*jmap.GetResponse[jmap.Email]](resp, getCallID, jmap.MethodEmailGet); err != nil {
		return nil, err
	}
	return result, nil
}

// resultFor decodes the first response to callID.
func resultFor[R any](resp *jmap.Response, callID, method string) (R, error) {
	return jmap.FirstResult[R](&jmap.Response{
		MethodResponses: resp.Lookup(callID),
		SessionState:    resp.SessionState,
	}, method)
}

func emailSetArgs(request mcp.CallToolRequest) (jmap.SetArgs[jmap.Email], error) {
	args := request.GetArguments()
	setArgs := jmap.SetArgs[jmap.Email]{AccountID: common.GetAccountFromArgs(args)}

	ids, err := batch.ParseStringOrArray(args["ids"], "ids")
	if err != nil {
		return setArgs, err
	}

	if request.GetBool("destroy", false) {
		setArgs.Destroy = ids
		return setArgs, nil
	}

	patch := jmap.PatchObject{}
	for _, k := range request.GetStringSlice("addKeywords", nil) {
		patch["keywords/"+k] = true
	}
	for _, k := range request.GetStringSlice("removeKeywords", nil) {
		patch["keywords/"+k] = nil
	}
	if mailbox := request.GetString("moveToMailbox", ""); mailbox != "" {
		patch["mailboxIds"] = map[string]bool{mailbox: true}
	}
	if len(patch) == 0 {
		return setArgs, fmt.Errorf("nothing to change: give addKeywords, removeKeywords, moveToMailbox or destroy")
	}

	setArgs.Update = make(map[string]jmap.PatchObject, len(ids))
	for _, id := range ids {
		setArgs.Update[id] = patch
	}
	return setArgs, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
