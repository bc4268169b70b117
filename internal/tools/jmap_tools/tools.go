package jmap_tools

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/tools/batch"
)

const accountIDDescription = "JMAP account id (default: the first account listed in the session)"

// readOnlyVerbs are the method verbs allowed in read-only mode.
var readOnlyVerbs = []string{"get", "changes", "query", "queryChanges", "echo", "parse", "lookup"}

// isReadOnlyMethod reports whether method only reads server state.
func isReadOnlyMethod(method string) bool {
	_, verb, ok := strings.Cut(method, "/")
	return ok && slices.Contains(readOnlyVerbs, verb)
}

// readOnlyVerbsText lists readOnlyVerbs for tool descriptions.
func readOnlyVerbsText() string {
	last := len(readOnlyVerbs) - 1
	return strings.Join(readOnlyVerbs[:last], ", ") + " and " + readOnlyVerbs[last]
}

// checkReadOnly rejects mutating methods when the server runs read-only.
func checkReadOnly(readOnly bool, methods ...string) error {
	if !readOnly {
		return nil
	}
	for _, m := range methods {
		if !isReadOnlyMethod(m) {
			return fmt.Errorf("method %s modifies the mailbox and is not allowed in read-only mode (start the server with --yolo)", m)
		}
	}
	return nil
}

// getClient returns the shared client once its session is loaded.
func getClient(ctx context.Context, sc *server.ServerContext) (*jmap.Client, error) {
	if _, err := sc.Session(ctx); err != nil {
		return nil, fmt.Errorf("failed to load JMAP session from %s: %w", sc.Client().SessionURL(), err)
	}
	return sc.Client(), nil
}

// optionalIDs parses an optional id list argument. Absent means nil.
func optionalIDs(args map[string]any, name string) ([]string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	return batch.ParseStringOrArray(v, name)
}

// optionalInt returns a pointer to the integer argument, or nil when absent.
func optionalInt(request mcp.CallToolRequest, name string) *int {
	if _, ok := request.GetArguments()[name]; !ok {
		return nil
	}
	v := request.GetInt(name, 0)
	return &v
}

// optionalTime parses an RFC 3339 timestamp argument.
func optionalTime(args map[string]any, name string) (*time.Time, error) {
	s, ok := args[name].(string)
	if !ok || s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp: %w", name, err)
	}
	return &t, nil
}

// RegisterJMAPTools registers all JMAP tools with the MCP server
func RegisterJMAPTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := registerSessionTools(s, sc); err != nil {
		return fmt.Errorf("failed to register session tools: %w", err)
	}

	if err := registerCallTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register call tools: %w", err)
	}

	if err := registerMailboxTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register mailbox tools: %w", err)
	}

	if err := registerEmailTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register email tools: %w", err)
	}

	// Upload tools only make sense together with write access
	if !readOnly {
		if err := registerUploadTools(s, sc); err != nil {
			return fmt.Errorf("failed to register upload tools: %w", err)
		}
	}

	return nil
}
