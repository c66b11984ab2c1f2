// Package metrics holds the in-process counters for the session lifecycle.
// Counters are plain atomics; exporters read point-in-time snapshots.
package metrics

import "sync/atomic"

// MetricID identifies one counter.
type MetricID uint8

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricAccessFastPath
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshShortCircuit
	MetricIdentityCacheHit
	MetricIdentityCacheMiss
	MetricGuardAllowed
	MetricGuardDeniedUnauthenticated
	MetricGuardDeniedForbidden
	MetricLogout

	MetricIDCount
)

// CounterDef names a counter for exporters.
type CounterDef struct {
	ID   MetricID
	Name string
	Help string
}

// CounterDefs is the export-facing registry of all counters, in MetricID
// order.
var CounterDefs = []CounterDef{
	{MetricLoginSuccess, "gosession_login_success_total", "Successful logins."},
	{MetricLoginFailure, "gosession_login_failure_total", "Rejected or failed logins."},
	{MetricAccessFastPath, "gosession_access_fast_path_total", "Valid-token requests served from the stored access token without a refresh."},
	{MetricRefreshSuccess, "gosession_refresh_success_total", "Successful access-token refreshes."},
	{MetricRefreshFailure, "gosession_refresh_failure_total", "Refresh attempts rejected by the backend or failed in transport."},
	{MetricRefreshShortCircuit, "gosession_refresh_short_circuit_total", "Refresh attempts skipped because the refresh token was absent or already past its deadline."},
	{MetricIdentityCacheHit, "gosession_identity_cache_hit_total", "Identity queries answered inside the freshness window."},
	{MetricIdentityCacheMiss, "gosession_identity_cache_miss_total", "Identity queries that went to the status endpoint."},
	{MetricGuardAllowed, "gosession_guard_allowed_total", "Guarded requests that rendered protected content."},
	{MetricGuardDeniedUnauthenticated, "gosession_guard_denied_unauthenticated_total", "Guarded requests denied for a missing or invalid session."},
	{MetricGuardDeniedForbidden, "gosession_guard_denied_forbidden_total", "Guarded requests denied for an insufficient role."},
	{MetricLogout, "gosession_logout_total", "Logouts, including best-effort ones where the backend call failed."},
}

// Config controls whether counting is active.
type Config struct {
	Enabled bool
}

// Metrics is a fixed array of atomic counters. When disabled every operation
// is a no-op so callers never branch.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// New creates a Metrics instance. A nil return is never produced; disabled
// metrics still answer Snapshot with zeroes.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to the counter. Out-of-range IDs are ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot returns a deep copy safe to read while counting continues.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
