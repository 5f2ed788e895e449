// Package prometheus exposes storegate metrics as a Prometheus collector.
//
// [NewCollector] reads a [storegate.Manager]; [NewGateCollector] reads the
// bare metrics of an edge process. Counters are named storegate_*_total and
// the two latency histograms storegate_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the default Prometheus registry. Callers register the
//     collector or mount [Collector.Handler].
//   - Mutate session or gate state.
package prometheus
