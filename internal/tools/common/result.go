package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Nemolo/jmap-client/internal/jmap"
)

// JSONResult renders v as indented JSON text.
func JSONResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(out))
}

// ErrorResult turns a client error into a tool error result. Method errors
// keep the server's error type and description so the caller can act on
// them.
func ErrorResult(action string, err error) *mcp.CallToolResult {
	var me *jmap.MethodError
	if errors.As(err, &me) {
		var b strings.Builder
		fmt.Fprintf(&b, "Failed to %s: %s returned %s", action, me.Method, me.Type)
		if me.Description != "" {
			fmt.Fprintf(&b, " (%s)", me.Description)
		}
		if len(me.Properties) > 0 {
			fmt.Fprintf(&b, "; properties: %s", strings.Join(me.Properties, ", "))
		}
		return mcp.NewToolResultError(b.String())
	}

	switch {
	case errors.Is(err, jmap.ErrNoAccount):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: the session lists no accounts; pass accountId explicitly", action))
	case errors.Is(err, jmap.ErrEmptyResponse):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: the server returned no method responses", action))
	}

	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}

// ResultText joins the text content of result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	parts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		parts = append(parts, mcp.GetTextFromContent(c))
	}
	return strings.Join(parts, "\n")
}
