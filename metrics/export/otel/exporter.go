package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is read once per collection cycle.
type Source interface {
	MetricsSnapshot() storegate.MetricsSnapshot
	AuditDropped() uint64
}

// BucketKey is the attribute carrying a latency bucket's upper bound.
const BucketKey = "le"

type eventCounter struct {
	id   storegate.MetricID
	inst metric.Int64ObservableCounter
}

// latencySeries is one storegate histogram: a gauge with one series per
// bucket, keyed by BucketKey, and a running sample count.
type latencySeries struct {
	id      storegate.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableCounter
	bounds  []metric.ObserveOption
}

// Exporter publishes session manager and gate metrics through observable
// instruments on a caller-supplied meter.
type Exporter struct {
	source  Source
	reg     metric.Registration
	events  []eventCounter
	latency []latencySeries
	dropped metric.Int64ObservableCounter
}

// New exports the metrics of a session manager.
func New(meter metric.Meter, m *storegate.Manager) (*Exporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return FromSource(meter, m)
}

// ForGate exports the metrics of an edge process, which has no manager.
func ForGate(meter metric.Meter, m *storegate.Metrics) (*Exporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return FromSource(meter, internaldefs.MetricsOnly{Metrics: m})
}

// InstrumentName maps an exported metric name to its OpenTelemetry form:
// storegate_gate_allow_total becomes storegate.gate_allow.
func InstrumentName(name string) string {
	name = strings.TrimSuffix(name, "_total")
	name = strings.TrimSuffix(name, "_seconds")
	return "storegate." + strings.TrimPrefix(name, "storegate_")
}

// BucketLabels returns the BucketKey values in bucket order.
func BucketLabels() []string {
	out := make([]string, 0, len(internaldefs.HistogramBounds)+1)
	for _, b := range internaldefs.HistogramBounds {
		out = append(out, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return append(out, "+Inf")
}

func FromSource(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		name := InstrumentName(def.Name)
		inst, err := meter.Int64ObservableCounter(name, metric.WithDescription(def.Help), metric.WithUnit("{event}"))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", name, err)
		}
		e.events = append(e.events, eventCounter{id: def.ID, inst: inst})
		observables = append(observables, inst)
	}

	labels := BucketLabels()
	for _, def := range internaldefs.HistogramDefs {
		base := InstrumentName(def.Name)
		s := latencySeries{id: def.ID}

		var err error
		s.buckets, err = meter.Int64ObservableGauge(base+".bucket",
			metric.WithDescription(def.Help+" Cumulative samples at or below "+BucketKey+" seconds."),
			metric.WithUnit("{request}"))
		if err != nil {
			return nil, fmt.Errorf("buckets %s: %w", base, err)
		}
		s.count, err = meter.Int64ObservableCounter(base+".count",
			metric.WithDescription(def.Help+" Samples recorded."),
			metric.WithUnit("{request}"))
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", base, err)
		}
		for _, l := range labels {
			s.bounds = append(s.bounds, metric.WithAttributes(attribute.String(BucketKey, l)))
		}
		e.latency = append(e.latency, s)
		observables = append(observables, s.buckets, s.count)
	}

	dropped, err := meter.Int64ObservableCounter(InstrumentName(internaldefs.AuditDroppedName),
		metric.WithDescription("Audit events dropped because the dispatcher buffer was full."),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("audit dropped counter: %w", err)
	}
	e.dropped = dropped
	observables = append(observables, dropped)

	e.reg, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.events {
		o.ObserveInt64(c.inst, int64(snap.Counters[c.id]))
	}
	for _, s := range e.latency {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[s.id]))
		for i, opt := range s.bounds {
			o.ObserveInt64(s.buckets, int64(cumulative[i]), opt)
		}
		o.ObserveInt64(s.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.reg == nil {
		return nil
	}
	return e.reg.Unregister()
}
