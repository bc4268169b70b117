// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the JMAP client and its MCP server.
//
// # Metrics
//
// JMAP client metrics:
//   - jmap_requests_total: Counter of API requests (one per batch) by status
//   - jmap_request_duration_seconds: Histogram of API request durations
//   - jmap_method_calls_total: Counter of method calls by method and status
//   - jmap_session_fetches_total: Counter of session document fetches by status
//   - jmap_uploads_total: Counter of blob uploads by status
//   - jmap_upload_bytes: Histogram of uploaded blob sizes
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// Method names are passed through NormalizeMethodName before being used as
// a label.
//
// # Tracing
//
// Spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - JMAP client operations (jmap.fetch_session, jmap.request, jmap.upload)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: jmap-client)
//   - METRICS_DETAILED_LABELS: add the JMAP account id label to tool metrics (default: false)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_PII: audit log behaviour
//
// The stdout exporters write to stderr unless Config.ConsoleWriter is set.
//
// # Example Usage
//
//	config, err := instrumentation.LoadConfig()
//	if err != nil {
//		return err
//	}
//	provider, err := instrumentation.NewProvider(ctx, config)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	client, err := jmap.New(sessionURL, cred, transport,
//		jmap.WithMetrics(provider.Metrics()))
package instrumentation
