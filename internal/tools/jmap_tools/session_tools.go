package jmap_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/tools/common"
)

// AccountSummary describes one account of the session.
type AccountSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPersonal bool   `json:"isPersonal"`
	IsReadOnly bool   `json:"isReadOnly"`
	Default    bool   `json:"default"`
}

// SessionSummary is the session as reported by jmap_session. Accounts and
// capabilities keep the server's order.
type SessionSummary struct {
	Username     string           `json:"username"`
	APIURL       string           `json:"apiUrl"`
	UploadURL    string           `json:"uploadUrl"`
	State        string           `json:"state,omitempty"`
	Accounts     []AccountSummary `json:"accounts"`
	Capabilities []string         `json:"capabilities"`
}

func summarizeSession(s *jmap.Session) SessionSummary {
	summary := SessionSummary{
		Username:     s.Username,
		APIURL:       s.APIURL,
		UploadURL:    s.UploadURL,
		State:        s.State,
		Accounts:     []AccountSummary{},
		Capabilities: s.CapabilityURIs(),
	}
	if s.Accounts == nil {
		return summary
	}
	for pair := s.Accounts.Oldest(); pair != nil; pair = pair.Next() {
		summary.Accounts = append(summary.Accounts, AccountSummary{
			ID:         pair.Key,
			Name:       pair.Value.Name,
			IsPersonal: pair.Value.IsPersonal,
			IsReadOnly: pair.Value.IsReadOnly,
			Default:    len(summary.Accounts) == 0,
		})
	}
	return summary
}

func registerSessionTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	sessionTool := mcp.NewTool("jmap_session",
		mcp.WithDescription("Show the JMAP session: username, endpoints, accounts and capabilities. The first account is the default for all other tools."),
		mcp.WithBoolean("refresh",
			mcp.Description("Fetch a new session document from the server instead of using the loaded one (default: false)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(sessionTool, common.InstrumentedToolHandlerWithMethods("jmap_session", []string{}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var (
				session *jmap.Session
				err     error
			)
			if request.GetBool("refresh", false) {
				session, err = sc.RefreshSession(ctx)
			} else {
				session, err = sc.Session(ctx)
			}
			if err != nil {
				return common.ErrorResult("load session", err), nil
			}

			return common.JSONResult(summarizeSession(session)), nil
		}))

	return nil
}
