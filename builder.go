package goSession

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/finchett/goSession/store"
)

// Builder assembles a [Session]. Construction is allocation-only; no I/O
// happens until the session's methods are called.
type Builder struct {
	config Config

	backend    store.Backend
	httpClient *http.Client
	auditSink  AuditSink
	logger     *slog.Logger
	clock      func() time.Time

	built bool
}

// New returns a Builder carrying [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		clock:  time.Now,
	}
}

// WithConfig replaces the whole configuration. Zero-valued fields fall back
// to defaults at Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the auth backend origin without replacing the rest of
// the configuration.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithBackend sets the durable storage for the token pair. Defaults to an
// in-memory backend, which does not survive the process.
func (b *Builder) WithBackend(backend store.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis stores the token pair in Redis through the given client.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.backend = store.NewRedis(client)
	return b
}

// WithHTTPClient overrides the transport used for all backend calls. The
// default client applies Config.API.Timeout.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink enables audit dispatch into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.config.Audit.Enabled = true
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// withClock overrides the session's time source. Test hook.
func (b *Builder) withClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// Build validates the configuration and produces the Session. A Builder is
// single-use.
func (b *Builder) Build() (*Session, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	fillConfigDefaults(&b.config)
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "goSession")

	backend := b.backend
	if backend == nil {
		backend = store.NewMemory()
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	session := &Session{
		config:  b.config,
		id:      uuid.NewString(),
		tokens:  store.NewTokenStore(backend, b.config.Tokens.StoragePrefix, logger),
		api:     newAPIClient(b.config.API, b.httpClient),
		log:     logger,
		metrics: NewMetrics(b.config.Metrics),
		audit:   newAuditDispatcher(b.config.Audit, b.auditSink),
		now:     clock,
	}

	b.built = true
	return session, nil
}
