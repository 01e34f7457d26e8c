package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"ampctl-go/bus"
	"ampctl-go/services/topics"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

type fixedClock timex.Ms

func (c fixedClock) NowMs() timex.Ms { return timex.Ms(c) }

func newTestService(buf *bytes.Buffer, now timex.Ms) *Service {
	log := slog.New(slog.NewJSONHandler(buf, nil))
	return New(log, fixedClock(now))
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var m map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &m); err != nil {
		t.Fatalf("bad log line: %v", err)
	}
	return m
}

func TestBeatWithoutStatus(t *testing.T) {
	var buf bytes.Buffer
	s := newTestService(&buf, 5000)
	s.beat()
	m := lastLine(t, &buf)
	if m["msg"] != "heartbeat" {
		t.Fatalf("msg=%v", m["msg"])
	}
	if _, ok := m["state"]; ok {
		t.Fatal("state logged before any status arrived")
	}
}

func TestBeatWithStatus(t *testing.T) {
	var buf bytes.Buffer
	s := newTestService(&buf, 5000)
	rem := uint32(12)
	s.status, s.hasStatus = types.PowerStatus{State: types.StateActive, SecondsRemaining: &rem}, true
	s.beat()
	m := lastLine(t, &buf)
	if m["state"] != types.StateActive || m["remaining_s"] != float64(12) {
		t.Fatalf("line=%v", m)
	}
}

func TestApplyInterval(t *testing.T) {
	var buf bytes.Buffer
	s := newTestService(&buf, 0)
	if s.apply(types.HeartbeatConfig{IntervalS: 60}) {
		t.Fatal("same interval is not a change")
	}
	if !s.apply(types.HeartbeatConfig{IntervalS: 2}) || s.interval != 2*time.Second {
		t.Fatalf("interval=%v", s.interval)
	}
	if s.apply(types.HeartbeatConfig{}) || s.apply(map[string]any{"interval": 5}) {
		t.Fatal("invalid payloads are ignored")
	}
	if s.interval != 2*time.Second {
		t.Fatalf("interval=%v", s.interval)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	var buf bytes.Buffer
	s := newTestService(&buf, 0)
	b := bus.NewBus(4)
	conn := b.NewConnection("heartbeat")
	cfg := b.NewConnection("config")
	cfg.Publish(cfg.NewMessage(topics.Config("heartbeat"), types.HeartbeatConfig{IntervalS: 60}, true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, conn)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if m := lastLine(t, &buf); m["msg"] != "heartbeat service stopping" {
		t.Fatalf("last line=%v", m)
	}
}
