package aht20

import (
	"errors"
	"testing"
)

// scriptBus replays canned read frames and records writes.
type scriptBus struct {
	status byte
	frames [][]byte
	writes [][]byte
	err    error
}

func (b *scriptBus) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	if len(w) > 0 {
		b.writes = append(b.writes, append([]byte(nil), w...))
	}
	switch {
	case len(r) == 1:
		r[0] = b.status
	case len(r) > 1 && len(b.frames) > 0:
		copy(r, b.frames[0])
		b.frames = b.frames[1:]
	}
	return nil
}

// frame encodes 25 °C / 50 %RH.
func frame(status byte) []byte {
	h := uint32(0x80000)                      // 50 %
	t := uint32((25.0 + 50) / 200 * 0x100000) // 25 °C
	return []byte{status, byte(h >> 12), byte(h >> 4), byte(h<<4) | byte(t>>16), byte(t >> 8), byte(t), 0}
}

func TestTriggerInitialisesUncalibratedDevice(t *testing.T) {
	b := &scriptBus{status: 0x00}
	d := New(b, Config{})
	if err := d.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if len(b.writes) != 3 {
		t.Fatalf("writes=%d, want status+init+trigger", len(b.writes))
	}
	if b.writes[1][0] != cmdInitialize || b.writes[2][0] != cmdTrigger {
		t.Fatalf("unexpected write order: %x", b.writes)
	}
}

func TestCollectBusyThenReady(t *testing.T) {
	b := &scriptBus{status: statusCalibrated, frames: [][]byte{frame(0x88), frame(0x08)}}
	d := New(b, Config{})
	if err := d.Trigger(); err != nil {
		t.Fatal(err)
	}

	var s Sample
	if err := d.Collect(&s); !errors.Is(err, ErrNotReady) {
		t.Fatalf("first collect err=%v, want ErrNotReady", err)
	}
	if err := d.Collect(&s); err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if got := s.RawHumidity * 100 / 0x100000; got != 50 {
		t.Fatalf("humidity=%d%%, want 50", got)
	}
	if c := s.Celsius(); c < 24.99 || c > 25.01 {
		t.Fatalf("Celsius=%v", c)
	}
}

func TestCollectUncalibratedIsProtocolError(t *testing.T) {
	b := &scriptBus{status: statusCalibrated, frames: [][]byte{frame(0x00)}}
	d := New(b, Config{})
	if err := d.Collect(nil); !errors.Is(err, ErrProtocol) {
		t.Fatalf("err=%v, want ErrProtocol", err)
	}
}

func TestBusErrorPropagates(t *testing.T) {
	boom := errors.New("nack")
	d := New(&scriptBus{err: boom}, Config{Address: 0x39})
	if d.Address() != 0x39 {
		t.Fatalf("Address=%#x", d.Address())
	}
	if err := d.Trigger(); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}
