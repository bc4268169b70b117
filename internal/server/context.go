package server

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/Nemolo/jmap-client/internal/instrumentation"
	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/logging"
)

// ErrShutdown is returned by ServerContext methods after Shutdown.
var ErrShutdown = errors.New("server context is shut down")

// ServerContext holds the state shared by every MCP tool handler: the JMAP
// client, the request throttle and the optional instrumentation.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	client   *jmap.Client
	limiter  *rate.Limiter
	readOnly bool
	logger   logging.Logger

	// sessionMu serializes the lazy session fetch so concurrent tools do not
	// all hit the session endpoint on startup.
	sessionMu sync.Mutex

	mu          sync.RWMutex
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	shutdown    bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithRateLimit throttles tool calls to rps requests per second with the
// given burst. A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(sc *ServerContext) {
		if rps <= 0 {
			sc.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		sc.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithReadOnly marks the context read-only. Tools that modify the mailbox
// are not registered for read-only contexts.
func WithReadOnly(readOnly bool) Option {
	return func(sc *ServerContext) {
		sc.readOnly = readOnly
	}
}

// WithLogger sets the logger handed to tool handlers.
func WithLogger(logger logging.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// NewServerContext creates a ServerContext around client. The client does not
// need a session yet; Session fetches one on first use.
func NewServerContext(ctx context.Context, client *jmap.Client, opts ...Option) (*ServerContext, error) {
	if client == nil {
		return nil, errors.New("jmap client is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		client:   client,
		readOnly: true,
		logger:   logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(sc)
	}

	return sc, nil
}

// Context returns the server's context, cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the shared JMAP client.
func (sc *ServerContext) Client() *jmap.Client {
	return sc.client
}

// Logger returns the logger for tool handlers.
func (sc *ServerContext) Logger() logging.Logger {
	return sc.logger
}

// ReadOnly reports whether mutating tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// Session returns the client's current session, fetching it first if the
// client has none.
func (sc *ServerContext) Session(ctx context.Context) (*jmap.Session, error) {
	if sc.IsShutdown() {
		return nil, ErrShutdown
	}
	if s, err := sc.client.Session(); err == nil {
		return s, nil
	}

	sc.sessionMu.Lock()
	defer sc.sessionMu.Unlock()

	if s, err := sc.client.Session(); err == nil {
		return s, nil
	}

	sc.logger.Info("fetching jmap session", logging.Endpoint(sc.client.SessionURL()))
	return sc.client.FetchSession(ctx, nil)
}

// RefreshSession fetches a new session unconditionally.
func (sc *ServerContext) RefreshSession(ctx context.Context) (*jmap.Session, error) {
	if sc.IsShutdown() {
		return nil, ErrShutdown
	}

	sc.sessionMu.Lock()
	defer sc.sessionMu.Unlock()

	return sc.client.FetchSession(ctx, nil)
}

// Wait blocks until the rate limiter admits another call or ctx is done.
func (sc *ServerContext) Wait(ctx context.Context) error {
	if sc.IsShutdown() {
		return ErrShutdown
	}
	if sc.limiter == nil {
		return nil
	}
	return sc.limiter.Wait(ctx)
}

// SetMetrics sets the metrics recorder used by the tool wrappers.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil when none is configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by the tool wrappers.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil when none is configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns true if the server context has been shut down
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Calling it twice is harmless.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
