// Package audit delivers security-relevant events (logins, logouts, refresh
// failures, corrupt persisted state, gate token rejections) to a sink off the
// caller's goroutine.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zap, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full delivery.
//   - [Event]: one record with id, timestamp, type, user, role and metadata.
//
// # What this package must NOT do
//
//   - Decide which events to emit; callers do.
//   - Import storegate or any sibling internal package.
package audit
