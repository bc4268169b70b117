package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/server"
)

const (
	// SessionURI is the session document as sent by the server.
	SessionURI = "jmap://session"

	// MailboxesURI lists the mailboxes of the default account.
	MailboxesURI = "jmap://mailboxes"

	mimeTypeJSON = "application/json"
)

// RegisterSessionResources registers the session and mailbox resources
func RegisterSessionResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	sessionResource := mcp.NewResource(
		SessionURI,
		"JMAP Session",
		mcp.WithResourceDescription("The JMAP session document: accounts in server order, capabilities and endpoints"),
		mcp.WithMIMEType(mimeTypeJSON),
	)
	s.AddResource(sessionResource, sessionHandler(sc))

	mailboxesResource := mcp.NewResource(
		MailboxesURI,
		"Mailboxes",
		mcp.WithResourceDescription("Mailboxes of the first account of the session with their roles and counts"),
		mcp.WithMIMEType(mimeTypeJSON),
	)
	s.AddResource(mailboxesResource, mailboxesHandler(sc))

	return nil
}

func sessionHandler(sc *server.ServerContext) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		session, err := sc.Session(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		return jsonContents(request.Params.URI, session)
	}
}

func mailboxesHandler(sc *server.ServerContext) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if _, err := sc.Session(ctx); err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}

		resp, err := sc.Client().MailboxGet(ctx, jmap.GetArgs{})
		if err != nil {
			return nil, fmt.Errorf("failed to get mailboxes: %w", err)
		}

		data := map[string]any{
			"accountId": resp.AccountID,
			"state":     resp.State,
			"mailboxes": resp.List,
		}
		return jsonContents(request.Params.URI, data)
	}
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeTypeJSON,
			Text:     string(jsonData),
		},
	}, nil
}
