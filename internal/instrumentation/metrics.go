package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrMethod  = "method"
	attrStatus  = "status"
	attrTool    = "tool"
	attrAccount = "account"
)

// Metrics provides methods for recording observability metrics.
// The zero value records nothing, which is what a disabled Provider hands out.
type Metrics struct {
	// JMAP client metrics
	requestsTotal       metric.Int64Counter
	requestDuration     metric.Float64Histogram
	methodCallsTotal    metric.Int64Counter
	sessionFetchesTotal metric.Int64Counter
	uploadsTotal        metric.Int64Counter
	uploadBytes         metric.Int64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.requestsTotal, err = meter.Int64Counter(
		"jmap_requests_total",
		metric.WithDescription("Total number of JMAP API requests (one per batch)"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create jmap_requests_total counter: %w", err)
	}

	m.requestDuration, err = meter.Float64Histogram(
		"jmap_request_duration_seconds",
		metric.WithDescription("JMAP API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create jmap_request_duration_seconds histogram: %w", err)
	}

	m.methodCallsTotal, err = meter.Int64Counter(
		"jmap_method_calls_total",
		metric.WithDescription("Total number of JMAP method calls by method name and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create jmap_method_calls_total counter: %w", err)
	}

	m.sessionFetchesTotal, err = meter.Int64Counter(
		"jmap_session_fetches_total",
		metric.WithDescription("Total number of JMAP session document fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create jmap_session_fetches_total counter: %w", err)
	}

	m.uploadsTotal, err = meter.Int64Counter(
		"jmap_uploads_total",
		metric.WithDescription("Total number of JMAP blob uploads"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create jmap_uploads_total counter: %w", err)
	}

	m.uploadBytes, err = meter.Int64Histogram(
		"jmap_upload_bytes",
		metric.WithDescription("Size of uploaded JMAP blobs in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(1024, 16384, 131072, 1048576, 10485760, 52428800),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create jmap_upload_bytes histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordJMAPRequest records one batch request with its outcome and duration.
func (m *Metrics) RecordJMAPRequest(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.requestsTotal == nil || m.requestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.requestsTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordMethodCall records the outcome of a single method invocation.
// Status is "success" or "error" (the server answered with an error response).
// Unrecognised method names are recorded as "other".
func (m *Metrics) RecordMethodCall(ctx context.Context, method, status string) {
	if m == nil || m.methodCallsTotal == nil {
		return // Instrumentation not initialized
	}

	m.methodCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMethod, NormalizeMethodName(method)),
		attribute.String(attrStatus, status),
	))
}

// RecordSessionFetch records a session document fetch.
func (m *Metrics) RecordSessionFetch(ctx context.Context, status string) {
	if m == nil || m.sessionFetchesTotal == nil {
		return // Instrumentation not initialized
	}

	m.sessionFetchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordUpload records a blob upload and, on success, its size.
func (m *Metrics) RecordUpload(ctx context.Context, status string, size int64) {
	if m == nil || m.uploadsTotal == nil || m.uploadBytes == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.uploadsTotal.Add(ctx, 1, attrs)
	if status == StatusSuccess {
		m.uploadBytes.Record(ctx, size, attrs)
	}
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithAccount(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithAccount records an MCP tool invocation with the
// JMAP account it targeted. The account is only attached when detailed
// labels are enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
