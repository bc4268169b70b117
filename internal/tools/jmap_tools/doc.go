// Package jmap_tools provides MCP tools backed by the JMAP client.
//
// Read-only tools (always available):
//   - jmap_session: show the session, its accounts and capabilities
//   - jmap_call, jmap_batch: send arbitrary method calls; restricted to
//     get, changes and query methods in read-only mode
//   - jmap_mailbox_get, jmap_mailbox_changes
//   - jmap_email_query, jmap_email_get, jmap_email_changes
//   - jmap_thread_get, jmap_email_submission_get
//
// Write tools (registered with --yolo):
//   - jmap_upload, jmap_email_import
//   - jmap_email_set, jmap_mailbox_set
//
// Every tool defaults accountId to the first account of the session and
// loads the session on first use.
package jmap_tools
