// Package logger wraps zap with a process logger, request-scoped loggers
// and field constructors for the names used across storegate.
//
// Binaries call [Init] once at startup and defer [Sync]. The edge's logging
// middleware opens a request logger with [ForRequest]; the gate then
// [Enrich]es it with the admitted identity. Library code logs through
// [From], which falls back to the process logger outside a request.
package logger
