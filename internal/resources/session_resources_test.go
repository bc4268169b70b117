package resources

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nemolo/jmap-client/internal/credential"
	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/jmaptest"
	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/transport"
)

func newServerContext(t *testing.T, srv *jmaptest.Server) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), srv.NewClient(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readResource(t *testing.T, h mcpserver.ResourceHandlerFunc, uri string) (map[string]any, error) {
	t.Helper()

	var request mcp.ReadResourceRequest
	request.Params.URI = uri

	contents, err := h(context.Background(), request)
	if err != nil {
		return nil, err
	}
	require.Len(t, contents, 1)

	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, uri, text.URI)
	assert.Equal(t, "application/json", text.MIMEType)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func TestRegisterSessionResources(t *testing.T) {
	srv := jmaptest.NewServer(t)
	sc := newServerContext(t, srv)

	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithResourceCapabilities(false, false))
	require.NoError(t, RegisterSessionResources(s, sc))
}

func TestSessionResource(t *testing.T) {
	srv := jmaptest.NewServer(t)
	sc := newServerContext(t, srv)

	doc, err := readResource(t, sessionHandler(sc), SessionURI)
	require.NoError(t, err)
	assert.Equal(t, jmaptest.Username, doc["username"])
	assert.Contains(t, doc["accounts"], jmaptest.PrimaryAccount)
	assert.Contains(t, doc["accounts"], jmaptest.SharedAccount)
}

func TestMailboxesResource(t *testing.T) {
	srv := jmaptest.NewServer(t)
	sc := newServerContext(t, srv)

	doc, err := readResource(t, mailboxesHandler(sc), MailboxesURI)
	require.NoError(t, err)
	assert.Equal(t, jmaptest.PrimaryAccount, doc["accountId"])
	assert.Equal(t, "m1", doc["state"])

	mailboxes, ok := doc["mailboxes"].([]any)
	require.True(t, ok)
	require.Len(t, mailboxes, 1)
	assert.Equal(t, "Inbox", mailboxes[0].(map[string]any)["name"])

	t.Run("method error", func(t *testing.T) {
		srv.Handle(jmap.MethodMailboxGet, func(map[string]any) (any, error) {
			return nil, jmaptest.NewMethodError(jmap.ErrorTypeAccountNotFound, "")
		})

		_, err := readResource(t, mailboxesHandler(sc), MailboxesURI)
		require.Error(t, err)
		assert.True(t, jmap.IsMethodError(err, jmap.ErrorTypeAccountNotFound))
	})
}

func TestSessionResource_Unauthorized(t *testing.T) {
	srv := jmaptest.NewServer(t)
	client, err := jmap.New(srv.SessionURL(), credential.Literal("wrong"),
		transport.NewHTTP(transport.WithHTTPClient(srv.Client())))
	require.NoError(t, err)

	sc, err := server.NewServerContext(context.Background(), client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	_, err = readResource(t, sessionHandler(sc), SessionURI)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load session")
}
