package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/boardhub/tokenauth"
	"github.com/boardhub/tokenauth/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() tokenauth.MetricsSnapshot
	AuditDropped() uint64
}

// histogramGauges carries one cumulative bucket gauge, observed once per
// bound with an "le" attribute, plus the total sample count.
type histogramGauges struct {
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter publishes engine metrics as observable instruments on a Meter.
// Values are read from one snapshot per collection cycle.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     map[tokenauth.MetricID]metric.Int64ObservableCounter
	histograms   map[tokenauth.MetricID]histogramGauges
	auditDropped metric.Int64ObservableCounter
	bounds       []attribute.Set
}

func NewExporter(meter metric.Meter, engine *tokenauth.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:     source,
		counters:   make(map[tokenauth.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		histograms: make(map[tokenauth.MetricID]histogramGauges, len(internaldefs.HistogramDefs)),
	}
	for _, suffix := range internaldefs.HistogramBoundSuffix {
		e.bounds = append(e.bounds, attribute.NewSet(attribute.String("le", suffix)))
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		e.histograms[def.ID] = histogramGauges{buckets: buckets, count: count}
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	snapshot := e.source.MetricsSnapshot()
	// Disabled metrics produce an empty snapshot; report nothing rather than zeros.
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 {
		return nil
	}

	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snapshot.Counters[id]))
	}
	for id, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[id]))
		for i, set := range e.bounds {
			o.ObserveInt64(h.buckets, int64(cumulative[i]), metric.WithAttributeSet(set))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
