package logger

import (
	"time"

	"go.uber.org/zap"
)

// HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Session

func UserID(v string) zap.Field { return zap.String("user_id", v) }

func Role(v string) zap.Field { return zap.String("role", v) }

func StoreID(v string) zap.Field { return zap.String("store_id", v) }

// Op names the manager or gate operation being logged.
func Op(v string) zap.Field { return zap.String("op", v) }

// Decision is the gate outcome (allow, redirect-sign-in, ...).
func Decision(v string) zap.Field { return zap.String("decision", v) }

func Err(err error) zap.Field { return zap.Error(err) }
