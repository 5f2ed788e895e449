package storegate

import (
	"io"

	"go.uber.org/zap"

	"github.com/MrEthical07/storegate/internal/audit"
)

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events off the caller's goroutine.
type AuditSink = audit.Sink

// NewJSONWriterSink writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) AuditSink { return audit.NewJSONWriterSink(w) }

// NewZapAuditSink logs events through l.
func NewZapAuditSink(l *zap.Logger) AuditSink { return audit.NewZapSink(l) }

// NewChannelAuditSink buffers events in a channel, mostly for tests.
func NewChannelAuditSink(buffer int) *audit.ChannelSink { return audit.NewChannelSink(buffer) }

// NewAuditDispatcher starts an async dispatcher for sink according to cfg.
// It returns nil when auditing is disabled; a nil dispatcher drops events.
func NewAuditDispatcher(cfg AuditConfig, sink AuditSink) *audit.Dispatcher {
	return audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}
