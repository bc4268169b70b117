package instrumentation

import (
	"errors"
	"fmt"
	"io"

	"github.com/joeshaw/envdecode"
)

// Config configures the telemetry of the JMAP client and the MCP tools.
// Fields carry their environment variable in the env tag; LoadConfig fills
// them and applies the defaults.
type Config struct {
	// ServiceName identifies this process in exported telemetry.
	ServiceName string `env:"OTEL_SERVICE_NAME,default=jmap-client"`

	// ServiceVersion is set by the caller from the build version.
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname.
	ServiceInstanceID string `env:"OTEL_SERVICE_INSTANCE_ID"`

	// ServerAddress is the host of the JMAP session endpoint the client
	// talks to. It is exported as the server.address resource attribute.
	ServerAddress string

	// Enabled turns metrics and tracing on. Audit logging is configured
	// separately and does not depend on it.
	Enabled bool `env:"INSTRUMENTATION_ENABLED,default=true"`

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string `env:"METRICS_EXPORTER,default=prometheus"`

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string `env:"TRACING_EXPORTER,default=none"`

	// OTLPEndpoint is host:port of the collector, without a scheme.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// OTLPInsecure exports over plain HTTP. Spans carry JMAP method names
	// and account ids.
	OTLPInsecure bool `env:"OTEL_EXPORTER_OTLP_INSECURE,default=false"`

	// TraceSamplingRate is the ratio of root spans kept, 0.0 to 1.0.
	TraceSamplingRate float64 `env:"OTEL_TRACES_SAMPLER_ARG,default=0.1"`

	// DetailedLabels adds the JMAP account id as the account label of tool
	// metrics. Off by default: a server with many shared accounts makes the
	// label unbounded.
	DetailedLabels bool `env:"METRICS_DETAILED_LABELS,default=false"`

	// ConsoleWriter receives the output of the stdout exporters. Nil means
	// os.Stderr; stdout itself carries the MCP stdio transport.
	ConsoleWriter io.Writer

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active.
	Enabled bool `env:"AUDIT_LOGGING_ENABLED,default=true"`

	// IncludePII logs the session username. When false only its domain
	// is logged.
	IncludePII bool `env:"AUDIT_LOGGING_INCLUDE_PII,default=false"`

	// LogLevel is one of debug, info, warn or error. Audit events are
	// logged regardless of it.
	LogLevel string `env:"AUDIT_LOGGING_LEVEL,default=info"`
}

// LoadConfig decodes the instrumentation settings from the environment.
// A malformed value is an error rather than a silent default.
func LoadConfig() (Config, error) {
	config := Config{ServiceVersion: "unknown"}
	if err := envdecode.StrictDecode(&config); err != nil {
		return Config{}, fmt.Errorf("failed to decode instrumentation environment: %w", err)
	}
	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" && (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) {
		return errors.New("OTLP endpoint is required when using the OTLP exporter; set OTEL_EXPORTER_OTLP_ENDPOINT")
	}

	return nil
}

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// JMAP client operations. StartJMAPSpan names the client span
// "jmap.<operation>".
const (
	OperationFetchSession = "fetch_session"
	OperationRequest      = "request"
	OperationUpload       = "upload"
)

// Exporter names accepted by METRICS_EXPORTER and TRACING_EXPORTER.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
