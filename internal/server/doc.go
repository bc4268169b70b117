// Package server holds the runtime state of the MCP server.
//
// # Key Components
//
// ServerContext owns the JMAP client shared by all tool handlers. The
// session is fetched lazily on the first tool call and can be refreshed on
// demand. The context also carries the optional metrics recorder and audit
// logger, a token bucket throttling tool calls, and the read-only switch
// that decides whether mutating tools are registered.
//
// MetricsServer serves Prometheus metrics on a dedicated port, together
// with the health endpoints of HealthChecker:
//   - /healthz: liveness
//   - /readyz: readiness, including whether a session is loaded
//   - /healthz/detailed: uptime, session state and account count
package server
