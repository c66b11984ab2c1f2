// Package otel bridges the session's in-process counters into an
// OpenTelemetry meter as observable counters. The exporter reads
// MetricsSnapshot on every collection; it adds no overhead to the session's
// hot paths.
package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	goSession "github.com/finchett/goSession"
	internalmetrics "github.com/finchett/goSession/internal/metrics"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// metricsSource is the slice of Session the exporter needs; any snapshot
// provider works, which keeps tests free of real sessions.
type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         goSession.MetricID
	instrument metric.Int64ObservableCounter
}

type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers one observable counter per session metric, plus the
// audit-drop counter, on meter.
func NewExporter(meter metric.Meter, session *goSession.Session) (*Exporter, error) {
	return NewExporterFromSource(meter, session)
}

// NewExporterFromSource is NewExporter for any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(internalmetrics.CounterDefs)),
	}

	observables := make([]metric.Observable, 0, len(internalmetrics.CounterDefs)+1)

	for _, def := range internalmetrics.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	dropped, err := meter.Int64ObservableCounter(
		"gosession_audit_dropped_total",
		metric.WithDescription("Audit events discarded because the dispatcher buffer was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit drop counter: %w", err)
	}
	exporter.auditDropped = dropped
	observables = append(observables, dropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register metrics callback: %w", err)
	}
	exporter.registration = registration

	return exporter, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, counter := range e.counters {
		observer.ObserveInt64(counter.instrument, int64(snapshot.Counters[counter.id]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	return nil
}

// Shutdown unregisters the collection callback.
func (e *Exporter) Shutdown() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
