// Package prometheus exposes engine metrics as a prometheus.Collector.
//
// Register the collector with any registry; [Collector.Handler] serves a
// private registry for callers that only want the tokenauth series.
// Counters are named tokenauth_*_total and latency histograms
// tokenauth_*_latency_seconds.
package prometheus
