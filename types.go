package goSession

import (
	"io"

	internalaudit "github.com/finchett/goSession/internal/audit"
	internalmetrics "github.com/finchett/goSession/internal/metrics"
	"github.com/finchett/goSession/store"
)

// TokenPair is the stored access/refresh pair. See [store.Pair].
type TokenPair = store.Pair

// Company is the tenant context attached to an authenticated user.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// IdentityUser is the server-verified user payload inside an [Identity].
type IdentityUser struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Company  *Company `json:"company,omitempty"`
}

// Identity is the backend's answer to "who is this session". It is the only
// authoritative identity in the package; decoded token hints never are.
type Identity struct {
	Authenticated bool          `json:"authenticated"`
	User          *IdentityUser `json:"user,omitempty"`
}

// IsAdmin reports whether the identity is authenticated with the admin role.
func (i Identity) IsAdmin() bool {
	return i.Authenticated && i.User != nil && i.User.Role == "admin"
}

// AuditEvent is a structured audit record emitted by the session.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the session's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess               = internalmetrics.MetricLoginSuccess
	MetricLoginFailure               = internalmetrics.MetricLoginFailure
	MetricAccessFastPath             = internalmetrics.MetricAccessFastPath
	MetricRefreshSuccess             = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure             = internalmetrics.MetricRefreshFailure
	MetricRefreshShortCircuit        = internalmetrics.MetricRefreshShortCircuit
	MetricIdentityCacheHit           = internalmetrics.MetricIdentityCacheHit
	MetricIdentityCacheMiss          = internalmetrics.MetricIdentityCacheMiss
	MetricGuardAllowed               = internalmetrics.MetricGuardAllowed
	MetricGuardDeniedUnauthenticated = internalmetrics.MetricGuardDeniedUnauthenticated
	MetricGuardDeniedForbidden       = internalmetrics.MetricGuardDeniedForbidden
	MetricLogout                     = internalmetrics.MetricLogout
)

// Metrics holds the session's atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance configured by cfg. When Enabled is
// false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{Enabled: cfg.Enabled})
}
