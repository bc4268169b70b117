// Package resources provides MCP resources for the JMAP session.
// Resources are read-only data sources that MCP clients can fetch without
// calling a tool, such as the session document and the mailbox tree of the
// default account.
package resources
