// Package otel binds engine metrics to an OpenTelemetry Meter.
//
// Each counter becomes an Int64ObservableCounter. Each latency histogram
// becomes a cumulative "_bucket" gauge observed once per upper bound with an
// "le" attribute, plus a "_count" gauge. The caller owns the MeterProvider.
package otel
