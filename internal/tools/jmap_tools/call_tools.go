package jmap_tools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/tools/batch"
	"github.com/Nemolo/jmap-client/internal/tools/common"
)

func indentJSON(raw json.RawMessage) string {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

func registerCallTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	callTool := mcp.NewTool("jmap_call",
		mcp.WithDescription("Send a single JMAP method call and return its result as sent by the server. The accountId defaults to the first account of the session."),
		mcp.WithString("method",
			mcp.Required(),
			mcp.Description("Method name, e.g. 'Email/query' or 'Mailbox/get'. In read-only mode only "+readOnlyVerbsText()+" methods are allowed."),
		),
		mcp.WithObject("arguments",
			mcp.Description("Method arguments as a JSON object (default: {})"),
		),
		mcp.WithString("accountId",
			mcp.Description(accountIDDescription),
		),
		mcp.WithBoolean("noAccount",
			mcp.Description("Send the arguments exactly as given, without filling in accountId (default: false)"),
		),
	)

	s.AddTool(callTool, common.InstrumentedToolHandler("jmap_call", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			method, err := request.RequireString("method")
			if err != nil || method == "" {
				return mcp.NewToolResultError("method is required"), nil
			}
			if err := checkReadOnly(readOnly, method); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			callArgs := jmap.Arguments{}
			if raw, ok := args["arguments"]; ok && raw != nil {
				obj, ok := raw.(map[string]any)
				if !ok {
					return mcp.NewToolResultError("arguments must be a JSON object"), nil
				}
				callArgs = jmap.Arguments(obj)
			}
			if account := common.GetAccountFromArgs(args); account != "" {
				callArgs = callArgs.WithAccount(account)
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			var result json.RawMessage
			if request.GetBool("noAccount", false) {
				result, err = callWithoutAccount(ctx, client, method, callArgs)
			} else {
				result, err = jmap.Call[json.RawMessage](ctx, client, method, callArgs)
			}
			if err != nil {
				return common.ErrorResult("call "+method, err), nil
			}

			return mcp.NewToolResultText(indentJSON(result)), nil
		}))

	batchTool := mcp.NewTool("jmap_batch",
		mcp.WithDescription(`Send several JMAP method calls in one request. Later calls may reference earlier results with "#name" arguments, e.g. {"#ids": {"resultOf": "q", "name": "Email/query", "path": "/ids"}}. Results are reported per call id.`),
		mcp.WithArray("calls",
			mcp.Required(),
			mcp.Description("List of [method, arguments, callId] arrays. The callId may be omitted and is then generated."),
		),
		mcp.WithString("accountId",
			mcp.Description("Account id filled into calls that have none (default: the first account listed in the session)"),
		),
		mcp.WithBoolean("noAccount",
			mcp.Description("Send the calls exactly as given, without filling in accountId (default: false)"),
		),
	)

	s.AddTool(batchTool, common.InstrumentedToolHandler("jmap_batch", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			calls, err := batch.ParseCalls(args["calls"])
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			methods := make([]string, len(calls))
			for i, c := range calls {
				methods[i] = c.Name
			}
			if err := checkReadOnly(readOnly, methods...); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if !request.GetBool("noAccount", false) {
				account := common.GetAccountFromArgs(args)
				if account == "" {
					if account, err = client.FirstAccountID(); err != nil {
						return common.ErrorResult("send batch", err), nil
					}
				}
				if calls, err = batch.WithDefaultAccount(calls, account); err != nil {
					return common.ErrorResult("send batch", err), nil
				}
			}

			resp, err := client.RawRequest(ctx, calls)
			if err != nil {
				return common.ErrorResult("send batch", err), nil
			}

			return mcp.NewToolResultText(batch.FormatResults(batch.FromResponse(calls, resp), resp.SessionState)), nil
		}))

	return nil
}

// callWithoutAccount sends one call with args untouched.
func callWithoutAccount(ctx context.Context, client *jmap.Client, method string, args jmap.Arguments) (json.RawMessage, error) {
	inv, err := jmap.NewInvocation(method, args, jmap.SingleCallID)
	if err != nil {
		return nil, err
	}
	resp, err := client.RawRequest(ctx, []jmap.Invocation{inv})
	if err != nil {
		return nil, err
	}
	return jmap.FirstResult[json.RawMessage](resp, method)
}
