package jmap_tools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/tools/common"
)

const (
	encodingText   = "text"
	encodingBase64 = "base64"
)

func decodeUploadData(data, encoding string) ([]byte, error) {
	switch encoding {
	case "", encodingText:
		return []byte(data), nil
	case encodingBase64:
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("data is not valid base64: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("encoding must be %q or %q", encodingText, encodingBase64)
	}
}

// registerUploadTools registers blob upload tools
func registerUploadTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	uploadTool := mcp.NewTool("jmap_upload",
		mcp.WithDescription("Upload a blob to the first account of the session, e.g. an RFC 5322 message to import with jmap_email_import. Returns the blob id."),
		mcp.WithString("data",
			mcp.Required(),
			mcp.Description("Blob content"),
		),
		mcp.WithString("encoding",
			mcp.Enum(encodingText, encodingBase64),
			mcp.Description("How data is encoded (default: text)"),
		),
		mcp.WithString("type",
			mcp.Description("Media type of the blob (default: application/octet-stream), e.g. 'message/rfc822'"),
		),
	)

	s.AddTool(uploadTool, common.InstrumentedToolHandlerWithMethods("jmap_upload", []string{}, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			raw, err := request.RequireString("data")
			if err != nil {
				return mcp.NewToolResultError("data is required"), nil
			}

			data, err := decodeUploadData(raw, request.GetString("encoding", encodingText))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			client, err := getClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			resp, err := client.Upload(ctx, data, request.GetString("type", ""))
			if err != nil {
				return common.ErrorResult("upload blob", err), nil
			}

			return common.JSONResult(resp), nil
		}))

	return nil
}
