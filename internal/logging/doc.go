// Package logging provides structured logging utilities for jmap-client.
//
// Everything logs through log/slog. This package adds a small Logger
// interface (so the JMAP client does not depend on a concrete handler),
// consistent attribute keys, and helpers that keep credentials and
// usernames out of log output.
//
// # Usage Patterns
//
// Build the process logger from CLI flags:
//
//	logger, err := logging.New(os.Stderr, "debug", "json")
//
// Attach standard attributes:
//
//	logger.Debug("dispatching batch",
//	    logging.Methods("Mailbox/get"),
//	    logging.Endpoint(apiURL))
//
// # Security Considerations
//
//   - Bearer tokens are never logged; use SanitizeToken when a token must be mentioned
//   - Session usernames are hashed with UserHash
package logging
