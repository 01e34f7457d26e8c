package eventlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"

	"ampctl-go/types"
)

// SlogSink writes records to an slog.Logger, mapping severity to level.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(l *slog.Logger) *SlogSink {
	if l == nil {
		l = slog.Default()
	}
	return &SlogSink{logger: l}
}

func (s *SlogSink) Log(r Record) {
	lvl := slog.LevelInfo
	switch r.Severity {
	case types.SeverityWarning:
		lvl = slog.LevelWarn
	case types.SeverityError:
		lvl = slog.LevelError
	}
	s.logger.LogAttrs(context.Background(), lvl, r.Message,
		slog.String("op", r.Operation),
		slog.String("severity", string(r.Severity)),
		slog.Uint64("uptime_ms", uint64(r.At)),
	)
}

var (
	infoPrintf    = color.New(color.FgCyan).SprintfFunc()
	successPrintf = color.New(color.FgGreen).SprintfFunc()
	warnPrintf    = color.New(color.FgYellow).SprintfFunc()
	errorPrintf   = color.New(color.FgRed, color.Bold).SprintfFunc()
)

// ConsoleSink prints "[12s] OPERATION (status): message" lines coloured by
// severity. It is muted while the console session is closed.
type ConsoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	enabled atomic.Bool
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	c := &ConsoleSink{w: w}
	c.enabled.Store(true)
	return c
}

func (c *ConsoleSink) SetEnabled(on bool) { c.enabled.Store(on) }
func (c *ConsoleSink) Enabled() bool      { return c.enabled.Load() }

func (c *ConsoleSink) Log(r Record) {
	if !c.enabled.Load() {
		return
	}
	var paint func(string, ...any) string
	switch r.Severity {
	case types.SeveritySuccess:
		paint = successPrintf
	case types.SeverityWarning:
		paint = warnPrintf
	case types.SeverityError:
		paint = errorPrintf
	default:
		paint = infoPrintf
	}
	line := paint("[%ds] %s (%s): %s", uint32(r.At)/1000, r.Operation, r.Severity, r.Message)
	c.mu.Lock()
	fmt.Fprintln(c.w, line)
	c.mu.Unlock()
}

var (
	_ Logger = (*SlogSink)(nil)
	_ Logger = (*ConsoleSink)(nil)
)
