package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantEnabled bool
		wantErr     string
	}{
		{
			name:   "disabled",
			config: Config{ServiceName: "test-service", Enabled: false},
		},
		{
			name:        "prometheus without tracing",
			config:      Config{ServiceName: "test-service", Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone},
			wantEnabled: true,
		},
		{
			name:        "stdout",
			config:      Config{ServiceName: "test-service", Enabled: true, MetricsExporter: ExporterStdout, TracingExporter: ExporterStdout, ConsoleWriter: &bytes.Buffer{}},
			wantEnabled: true,
		},
		{
			name:    "invalid metrics exporter",
			config:  Config{Enabled: true, MetricsExporter: "invalid", TracingExporter: ExporterNone},
			wantErr: "unsupported metrics exporter",
		},
		{
			name:    "invalid tracing exporter",
			config:  Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "invalid"},
			wantErr: "unsupported tracing exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
		{
			name:    "otlp metrics without endpoint",
			config:  Config{Enabled: true, MetricsExporter: ExporterOTLP, TracingExporter: ExporterNone},
			wantErr: "OTLP endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantEnabled, provider.Enabled())
			assert.NotNil(t, provider.Metrics(), "a disabled provider still hands out a recorder")
			assert.NoError(t, provider.Shutdown(ctx))
		})
	}
}

func TestProvider_ResourceNamesJMAPServer(t *testing.T) {
	var out bytes.Buffer
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{
		ServiceName:       "test-service",
		ServiceVersion:    "1.2.3",
		ServiceInstanceID: "bridge-1",
		ServerAddress:     "mail.example.com",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1,
		ConsoleWriter:     &out,
	})
	require.NoError(t, err)

	_, span := StartJMAPSpan(ctx, OperationFetchSession)
	span.End()
	require.NoError(t, provider.Shutdown(ctx))

	var exported struct {
		Resource []struct {
			Key   string
			Value struct{ Value any }
		}
	}
	require.NoError(t, json.NewDecoder(&out).Decode(&exported))

	resource := map[string]any{}
	for _, attr := range exported.Resource {
		resource[attr.Key] = attr.Value.Value
	}
	assert.Equal(t, "test-service", resource["service.name"])
	assert.Equal(t, "1.2.3", resource["service.version"])
	assert.Equal(t, "bridge-1", resource["service.instance.id"])
	assert.Equal(t, "mail.example.com", resource["server.address"])
}

func TestProvider_DisabledShutdownIsNoop(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.NoError(t, provider.Shutdown(context.Background()))
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_AuditLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name:   "disabled telemetry still audits",
			config: Config{Enabled: false, AuditLogging: AuditLoggingConfig{Enabled: true, IncludePII: true}},
		},
		{
			name:   "audit off",
			config: Config{Enabled: false, AuditLogging: AuditLoggingConfig{Enabled: false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(context.Background(), tt.config)
			require.NoError(t, err)

			al := provider.AuditLogger(nil)
			require.NotNil(t, al)
			assert.Equal(t, tt.config.AuditLogging.Enabled, al.enabled)
			assert.Equal(t, tt.config.AuditLogging.IncludePII, al.includePII)
		})
	}
}
