package jmap_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/tools/common"
)

const (
	mailboxActionCreate  = "create"
	mailboxActionRename  = "rename"
	mailboxActionDestroy = "destroy"

	// createKey is the creation id used for single-object creates.
	createKey = "new"
)

// registerMailboxTools registers mailbox tools
func registerMailboxTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	getTool := mcp.NewTool("jmap_mailbox_get",
		mcp.WithDescription("List mailboxes (folders and labels) with their roles and counts"),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithArray("ids",
			mcp.Description("Mailbox ids to fetch (default: all mailboxes)"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("properties",
			mcp.Description("Properties to return (default: all)"),
			mcp.WithStringItems(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(getTool, common.InstrumentedToolHandlerWithMethods("jmap_mailbox_get", []string{jmap.MethodMailboxGet}, sc,
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

			resp, err := client.MailboxGet(ctx, jmap.GetArgs{
				AccountID:  common.GetAccountFromArgs(args),
				IDs:        ids,
				Properties: request.GetStringSlice("properties", nil),
			})
			if err != nil {
				return common.ErrorResult("get mailboxes", err), nil
			}

			return common.JSONResult(resp), nil
		}))

	changesTool := mcp.NewTool("jmap_mailbox_changes",
		mcp.WithDescription("List mailboxes created, updated or destroyed since a given state"),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithString("sinceState",
			mcp.Required(),
			mcp.Description("The state returned by an earlier jmap_mailbox_get or jmap_mailbox_changes"),
		),
		mcp.WithNumber("maxChanges",
			mcp.Description("Maximum number of ids to return"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(changesTool, common.InstrumentedToolHandlerWithMethods("jmap_mailbox_changes", []string{jmap.MethodMailboxChanges}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sinceState := request.GetString("sinceState", "")
			if sinceState == "" {
				return mcp.NewToolResultError("sinceState is required"), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			resp, err := client.MailboxChanges(ctx, jmap.ChangesArgs{
				AccountID:  common.GetAccountFromArgs(request.GetArguments()),
				SinceState: sinceState,
				MaxChanges: optionalInt(request, "maxChanges"),
			})
			if err != nil {
				return common.ErrorResult("get mailbox changes", err), nil
			}

			return common.JSONResult(resp), nil
		}))

	// Register write tools only if not in read-only mode
	if !readOnly {
		setTool := mcp.NewTool("jmap_mailbox_set",
			mcp.WithDescription("Create, rename or destroy a mailbox"),
			mcp.WithString("accountId",
				mcp.Description(accountIDDescription),
			),
			mcp.WithString("action",
				mcp.Required(),
				mcp.Enum(mailboxActionCreate, mailboxActionRename, mailboxActionDestroy),
				mcp.Description("What to do with the mailbox"),
			),
			mcp.WithString("mailboxId",
				mcp.Description("Mailbox to rename or destroy"),
			),
			mcp.WithString("name",
				mcp.Description("Name of the new mailbox, or the new name when renaming"),
			),
			mcp.WithString("parentId",
				mcp.Description("Parent mailbox of a new mailbox (default: top level)"),
			),
			mcp.WithBoolean("removeEmails",
				mcp.Description("When destroying, also remove emails only in this mailbox (default: false)"),
			),
			mcp.WithDestructiveHintAnnotation(true),
		)

		s.AddTool(setTool, common.InstrumentedToolHandlerWithMethods("jmap_mailbox_set", []string{jmap.MethodMailboxSet}, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				setArgs, err := mailboxSetArgs(request)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				client, err := getClient(ctx, sc)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				resp, err := client.MailboxSet(ctx, setArgs)
				if err != nil {
					return common.ErrorResult("update mailboxes", err), nil
				}
				if msg := setFailures(resp.NotCreated, resp.NotUpdated, resp.NotDestroyed); msg != "" {
					return mcp.NewToolResultError(msg), nil
				}

				return common.JSONResult(resp), nil
			}))
	}

	return nil
}

func mailboxSetArgs(request mcp.CallToolRequest) (jmap.SetArgs[jmap.Mailbox], error) {
	args := jmap.SetArgs[jmap.Mailbox]{
		AccountID: common.GetAccountFromArgs(request.GetArguments()),
	}
	mailboxID := request.GetString("mailboxId", "")
	name := request.GetString("name", "")

	switch action := request.GetString("action", ""); action {
	case mailboxActionCreate:
		if name == "" {
			return args, fmt.Errorf("name is required to create a mailbox")
		}
		mb := jmap.Mailbox{Name: name}
		if parent := request.GetString("parentId", ""); parent != "" {
			mb.ParentID = &parent
		}
		args.Create = map[string]jmap.Mailbox{createKey: mb}
	case mailboxActionRename:
		if mailboxID == "" || name == "" {
			return args, fmt.Errorf("mailboxId and name are required to rename a mailbox")
		}
		args.Update = map[string]jmap.PatchObject{mailboxID: {"name": name}}
	case mailboxActionDestroy:
		if mailboxID == "" {
			return args, fmt.Errorf("mailboxId is required to destroy a mailbox")
		}
		args.Destroy = []string{mailboxID}
		args.OnDestroyRemoveEmails = request.GetBool("removeEmails", false)
	default:
		return args, fmt.Errorf("action must be one of %s, %s or %s", mailboxActionCreate, mailboxActionRename, mailboxActionDestroy)
	}

	return args, nil
}

// setFailures describes the rejected parts of a /set call, or returns "".
func setFailures(groups ...map[string]jmap.SetError) string {
	var msg string
	for _, group := range groups {
		for id, e := range group {
			if msg != "" {
				msg += "; "
			}
			msg += fmt.Sprintf("%s: %s", id, e.Type)
			if e.Description != "" {
				msg += " (" + e.Description + ")"
			}
		}
	}
	if msg == "" {
		return ""
	}
	return "Server rejected the change: " + msg
}
