package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Nemolo/jmap-client/internal/instrumentation"
	"github.com/Nemolo/jmap-client/internal/server"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// auditRecords returns the JSON records written to buf.
func auditRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func withAudit(t *testing.T, sc *server.ServerContext) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	return &buf
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newTestServerContext(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "success", ResultText(result))
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newTestServerContext(t)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	_, err := wrapped(context.Background(), mcp.CallToolRequest{})

	assert.Same(t, expectedErr, err)
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc := newTestServerContext(t)
	buf := withAudit(t, sc)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("mailbox not found"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	assert.True(t, result.IsError)

	records := auditRecords(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, "tool_failed", records[0]["msg"])
	assert.Equal(t, "mailbox not found", records[0]["error"])
}

func TestInstrumentedToolHandler_AuditRecord(t *testing.T) {
	sc := newTestServerContext(t)
	_, err := sc.Session(context.Background())
	require.NoError(t, err)
	buf := withAudit(t, sc)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := InstrumentedToolHandler("jmap_call", sc, handler)
	_, err = wrapped(context.Background(), callRequest(map[string]any{
		"method":    "Email/query",
		"accountId": "u1",
	}))
	require.NoError(t, err)

	records := auditRecords(t, buf)
	require.Len(t, records, 1, "read-only contexts only log the operational record")
	rec := records[0]
	assert.Equal(t, "tool_executed", rec["msg"])
	assert.Equal(t, "jmap_call", rec["tool"])
	assert.Equal(t, "example.com", rec["user_domain"])
	assert.Equal(t, true, rec["success"])
	assert.NotContains(t, rec, "user", "the username is not logged without PII enabled")
}

func TestInstrumentedToolHandler_FullAuditWhenWritable(t *testing.T) {
	sc := newTestServerContext(t, server.WithReadOnly(false))
	_, err := sc.Session(context.Background())
	require.NoError(t, err)
	buf := withAudit(t, sc)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := InstrumentedToolHandlerWithMethods("jmap_upload", []string{}, sc, handler)
	_, err = wrapped(context.Background(), callRequest(map[string]any{"accountId": "u2"}))
	require.NoError(t, err)

	records := auditRecords(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, "tool_executed", records[0]["msg"])
	assert.Equal(t, "tool_audit", records[1]["msg"])
	assert.Equal(t, "jane@example.com", records[1]["user"])
	assert.Equal(t, "u2", records[1]["account"])
}

func TestInstrumentedToolHandler_Throttled(t *testing.T) {
	sc := newTestServerContext(t, server.WithRateLimit(0.001, 1))
	buf := withAudit(t, sc)

	calls := 0
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		calls++
		return mcp.NewToolResultText("ok"), nil
	}
	wrapped := InstrumentedToolHandler("test_tool", sc, handler)

	// The burst admits the first call.
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	result, err = wrapped(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, ResultText(result), "Request throttled")
	assert.Equal(t, 1, calls, "a throttled call never reaches the handler")

	records := auditRecords(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, "tool_failed", records[1]["msg"])
}

func TestInstrumentedToolHandler_WithMetrics(t *testing.T) {
	sc := newTestServerContext(t)

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)
	sc.SetMetrics(metrics)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		time.Sleep(time.Millisecond)
		return mcp.NewToolResultText("success"), nil
	}

	wrapped := InstrumentedToolHandlerWithMethods("jmap_mailbox_get", []string{"Mailbox/get"}, sc, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	// With a noop meter only the code path is exercised.
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestInstrumentedToolHandler_ErrorWithMetrics(t *testing.T) {
	sc := newTestServerContext(t)

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), true)
	require.NoError(t, err)
	sc.SetMetrics(metrics)

	expectedErr := errors.New("jmap error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandler("jmap_call", sc, handler)
	_, err = wrapped(context.Background(), callRequest(map[string]any{"accountId": "u1"}))

	assert.Same(t, expectedErr, err)
}
