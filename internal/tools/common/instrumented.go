package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Nemolo/jmap-client/internal/instrumentation"
	"github.com/Nemolo/jmap-client/internal/server"
)

// ToolHandler is the handler signature of mcp-go tools.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with throttling, tracing,
// metrics and audit logging. The JMAP methods the call sends are read from
// the request arguments (see GetMethodsFromArgs).
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrumented(toolName, nil, sc, handler)
}

// InstrumentedToolHandlerWithMethods is like InstrumentedToolHandler for
// tools that always send the same JMAP methods.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandlerWithMethods("jmap_mailbox_get",
//		[]string{jmap.MethodMailboxGet}, sc, handler))
func InstrumentedToolHandlerWithMethods(toolName string, methods []string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrumented(toolName, methods, sc, handler)
}

func instrumented(toolName string, fixedMethods []string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		account := GetAccountFromArgs(args)
		methods := fixedMethods
		if methods == nil {
			methods = GetMethodsFromArgs(args)
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithMethods(methods...).
				WithAccount(account).
				WithReadOnly(sc.ReadOnly()).
				Build()...)
		defer span.End()

		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()
		start := time.Now()

		// Throttled calls are reported like any other failed call.
		var (
			result *mcp.CallToolResult
			err    error
		)
		if waitErr := sc.Wait(ctx); waitErr != nil {
			result = mcp.NewToolResultError(fmt.Sprintf("Request throttled: %v", waitErr))
		} else {
			result, err = handler(ctx, request)
		}
		duration := time.Since(start)

		failed := err != nil || (result != nil && result.IsError)
		if failed {
			if err != nil {
				instrumentation.SetSpanError(span, err)
			} else {
				instrumentation.SetSpanError(span, errors.New(ResultText(result)))
			}
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		// If no instrumentation configured, we are done
		if metrics == nil && auditLogger == nil {
			return result, err
		}

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithUser(GetUsername(sc)).
			WithAccount(account).
			WithMethods(methods...)
		invocation.StartTime = start

		status := instrumentation.StatusSuccess
		if failed {
			status = instrumentation.StatusError
			if err != nil {
				invocation.CompleteWithError(err)
			} else {
				invocation.CompleteWithError(errors.New(ResultText(result)))
			}
		} else {
			invocation.CompleteSuccess()
		}

		if metrics != nil {
			metrics.RecordToolInvocationWithAccount(ctx, toolName, status, account, duration)
		}

		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
			// Mutating tools only exist outside read-only mode; keep a full
			// audit record of them.
			if !sc.ReadOnly() {
				auditLogger.LogToolAudit(invocation)
			}
		}

		return result, err
	}
}
