package otel

import (
	"context"
	"errors"
	"fmt"

	goMail "github.com/MrEthical07/goMail"
	"github.com/MrEthical07/goMail/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter observes on every collection.
type Source interface {
	MetricsSnapshot() goMail.MetricsSnapshot
	AuditDropped() uint64
}

type observedSeries struct {
	id   goMail.MetricID
	opts metric.ObserveOption
}

type observedFamily struct {
	instrument metric.Int64ObservableCounter
	series     []observedSeries
}

type observedHistogram struct {
	id      goMail.MetricID
	buckets metric.Int64ObservableGauge
	bounds  [internaldefs.BucketCount]metric.ObserveOption
	count   metric.Int64ObservableGauge
}

// Exporter publishes engine metrics as OTel observable instruments. Counter
// families become one counter with an attribute per series; the latency
// histogram becomes a cumulative bucket gauge keyed by "le".
type Exporter struct {
	source       Source
	registration metric.Registration
	families     []observedFamily
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
}

func New(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exp := &Exporter{
		source:     source,
		families:   make([]observedFamily, 0, len(internaldefs.CounterFamilies)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}
	observables := make([]metric.Observable, 0, len(internaldefs.CounterFamilies)+2*len(internaldefs.HistogramDefs)+1)

	for _, fam := range internaldefs.CounterFamilies {
		ins, err := meter.Int64ObservableCounter(fam.Name, metric.WithDescription(fam.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", fam.Name, err)
		}
		f := observedFamily{instrument: ins, series: make([]observedSeries, 0, len(fam.Series))}
		for _, s := range fam.Series {
			var opts metric.ObserveOption
			if fam.Label != "" {
				opts = metric.WithAttributes(attribute.String(fam.Label, s.Value))
			}
			f.series = append(f.series, observedSeries{id: s.ID, opts: opts})
		}
		exp.families = append(exp.families, f)
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help+" Cumulative bucket counts."))
		if err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", def.Name, err)
		}
		for i, le := range internaldefs.HistogramBounds {
			h.bounds[i] = metric.WithAttributes(attribute.String("le", le))
		}
		h.buckets = buckets
		h.count = count
		exp.histograms = append(exp.histograms, h)
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(
		"gomail_audit_dropped_total",
		metric.WithDescription("Audit events dropped because the queue was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exp.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(exp.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exp.registration = reg

	return exp, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	if len(snapshot.Counters) > 0 {
		for _, f := range e.families {
			for _, s := range f.series {
				if s.opts == nil {
					o.ObserveInt64(f.instrument, int64(snapshot.Counters[s.id]))
					continue
				}
				o.ObserveInt64(f.instrument, int64(snapshot.Counters[s.id]), s.opts)
			}
		}
	}

	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets, int64(v), h.bounds[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[internaldefs.BucketCount-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. The meter provider is left to the caller.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
