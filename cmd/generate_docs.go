package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/credential"
	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/transport"
)

// docsSessionURL is never contacted; tool registration needs no server.
const docsSessionURL = "https://jmap.invalid/.well-known/jmap"

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(cmd *cobra.Command, outputFile string) error {
	client, err := jmap.New(docsSessionURL, credential.Literal(""), transport.NewHTTP())
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	serverContext, err := server.NewServerContext(context.Background(), client)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("jmap-client", version,
		mcpserver.WithToolCapabilities(true),
	)

	// Register with write access so the write tools are documented too
	if err := registerAllTools(mcpSrv, serverContext, false); err != nil {
		return err
	}

	readOnlySrv := mcpserver.NewMCPServer("jmap-client", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAllTools(readOnlySrv, serverContext, true); err != nil {
		return err
	}

	serverTools := mcpSrv.ListTools()
	readOnlyTools := readOnlySrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	writeTools := make(map[string]bool)
	for name, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
		if _, ok := readOnlyTools[name]; !ok {
			writeTools[name] = true
		}
	}

	markdown := generateToolsMarkdown(tools, writeTools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
		return nil
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), markdown)
	return err
}

func generateToolsMarkdown(tools []mcp.Tool, writeTools map[string]bool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running jmap-client as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Group tools by category
	toolsByCategory := groupToolsByCategory(tools)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	// Account defaults note
	sb.WriteString("## Accounts\n\n")
	sb.WriteString("Tools that act on an account take an optional `accountId` argument:\n\n")
	sb.WriteString("- **Default behavior:** If `accountId` is not specified, the first account listed in the session is used\n")
	sb.WriteString("- **Shared accounts:** Pass the id shown by `jmap_session` to work on another account\n")
	sb.WriteString("- **Write tools:** Tools marked as write tools are only available when the server runs with `--yolo`\n\n")

	// Generate documentation for each category
	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool, writeTools[tool.Name]))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	rest, ok := strings.CutPrefix(name, "jmap_")
	if !ok {
		return "Other"
	}

	prefix, _, _ := strings.Cut(rest, "_")
	switch prefix {
	case "session", "call", "batch":
		return "Session and Raw Call Tools"
	case "mailbox":
		return "Mailbox Tools"
	case "email", "thread":
		return "Email Tools"
	case "upload":
		return "Blob Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool, write bool) string {
	var sb strings.Builder

	// Tool name
	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	// Description
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if write {
		sb.WriteString("*Write tool: requires `--yolo`.*\n\n")
	}

	// Input schema
	if tool.InputSchema.Properties != nil && len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			prop := tool.InputSchema.Properties[name]
			isRequired := slices.Contains(tool.InputSchema.Required, name)

			requiredStr := "optional"
			if isRequired {
				requiredStr = "required"
			}

			// Get property type and description from the property map
			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}

			propType := getPropertyType(propMap)

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))

			// Get description
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
