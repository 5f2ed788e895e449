// Package otel publishes storegate metrics as OpenTelemetry observable
// instruments.
//
// Counters become storegate.<name> counters in {event} units. Each latency
// histogram becomes two instruments: storegate.<name>.bucket, a gauge with
// one cumulative series per upper bound under the "le" attribute, and
// storegate.<name>.count. One callback snapshots the source per collection,
// so every series in a cycle comes from the same snapshot.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate session or gate state.
package otel
