package logger

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// process is the logger used when no request-scoped logger is in reach.
// Until Init runs it is a dev logger at info level.
var process atomic.Pointer[zap.Logger]

// Init builds the process logger from cfg. A binary calls it once at
// startup; later calls replace the logger for components that look it up
// afterwards.
func Init(cfg Config) {
	process.Store(build(cfg))
}

// Replace installs l as the process logger and returns a func restoring the
// previous one. Tests use it to observe log output.
func Replace(l *zap.Logger) (restore func()) {
	prev := process.Swap(l)
	return func() { process.Store(prev) }
}

// L returns the process logger.
func L() *zap.Logger {
	if l := process.Load(); l != nil {
		return l
	}
	l := build(Config{Env: "dev", Level: "info"})
	if process.CompareAndSwap(nil, l) {
		return l
	}
	return process.Load()
}

// Named returns the process logger scoped to a component: "gate", "edge",
// "audit", "manager".
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered entries of the process logger.
func Sync() error {
	if l := process.Load(); l != nil {
		return l.Sync()
	}
	return nil
}

type ctxKey struct{}

// ToContext stores l in ctx.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request logger in ctx, or the process logger.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

// ForRequest scopes the process logger to one HTTP request.
func ForRequest(ctx context.Context, requestID, method, path string) (context.Context, *zap.Logger) {
	l := L().With(RequestID(requestID), Method(method), Path(path))
	return ToContext(ctx, l), l
}

// Enrich adds fields to the request logger in ctx, e.g. the identity the
// gate admitted, so handlers further down log them without asking.
func Enrich(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return ToContext(ctx, From(ctx).With(fields...))
}
