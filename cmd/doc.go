// Package cmd implements the command-line interface for jmap-client.
//
// This package provides the following commands:
//   - session: Print the JMAP session document
//   - accounts: List the accounts of the session, the default one first
//   - capabilities: List the capability URIs sent with every request
//   - call: Send one method call, or a batch of calls from a file
//   - mailboxes: List mailboxes with their roles and counts
//   - upload: Upload a blob
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Connection settings come from the environment (see internal/config) and
// can be overridden with the persistent flags of the root command.
package cmd
