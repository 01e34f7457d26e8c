// Package eventlog records the operator-facing events of the controller:
// sequence transitions, rejected requests, settings changes, thermal and
// battery alarms. Records fan out to sinks (ring buffer for the UI, slog,
// coloured console, CBOR archive).
package eventlog

import (
	"fmt"

	"ampctl-go/types"
	"ampctl-go/x/timex"
)

// Record is one event. At is controller uptime in milliseconds.
type Record struct {
	At        timex.Ms       `json:"-" cbor:"1,keyasint"`
	Operation string         `json:"operation" cbor:"2,keyasint"`
	Severity  types.Severity `json:"status" cbor:"3,keyasint"`
	Message   string         `json:"message" cbor:"4,keyasint"`
}

// Logger receives event records. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Logger interface {
	Log(Record)
}

// NoopLogger discards every record.
type NoopLogger struct{}

func (NoopLogger) Log(Record) {}

// Multi sends each record to every logger in order.
type Multi []Logger

func (m Multi) Log(r Record) {
	for _, l := range m {
		if l != nil {
			l.Log(r)
		}
	}
}

// Emitter stamps records for a fixed logger.
type Emitter struct {
	L Logger
}

func (e Emitter) emit(now timex.Ms, sev types.Severity, op, format string, args ...any) {
	if e.L == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	e.L.Log(Record{At: now, Operation: op, Severity: sev, Message: msg})
}

func (e Emitter) Info(now timex.Ms, op, format string, args ...any) {
	e.emit(now, types.SeverityInfo, op, format, args...)
}

func (e Emitter) Success(now timex.Ms, op, format string, args ...any) {
	e.emit(now, types.SeveritySuccess, op, format, args...)
}

func (e Emitter) Warn(now timex.Ms, op, format string, args ...any) {
	e.emit(now, types.SeverityWarning, op, format, args...)
}

func (e Emitter) Error(now timex.Ms, op, format string, args ...any) {
	e.emit(now, types.SeverityError, op, format, args...)
}

var (
	_ Logger = NoopLogger{}
	_ Logger = Multi(nil)
)
