//go:build !rp2040 && !rp2350

package hal

import (
	"errors"
	"math"
	"testing"

	"ampctl-go/drivers/aht20"
)

func TestRelayPolarity(t *testing.T) {
	for _, low := range []bool{false, true} {
		pin := &SimPin{}
		pin.Set(true)
		r := NewRelay("supply", pin, low)
		if r.Get() {
			t.Fatalf("activeLow=%v: relay must start off", low)
		}
		if pin.Get() != low {
			t.Fatalf("activeLow=%v: idle pin=%v", low, pin.Get())
		}
		r.Set(true)
		if !r.Get() || pin.Get() == low {
			t.Fatalf("activeLow=%v: energized pin=%v", low, pin.Get())
		}
	}
}

func TestButtonPullUp(t *testing.T) {
	pin := &SimPin{}
	pin.Set(true)
	b := NewButton(pin, true)
	if b.Pressed() {
		t.Fatal("released with pull-up high")
	}
	pin.Set(false)
	if !b.Pressed() {
		t.Fatal("pressed pulls low")
	}
}

func TestSimAnalogVolts(t *testing.T) {
	a := &SimAnalog{}
	a.SetVolts(1.65)
	raw, err := a.ReadU16()
	if err != nil {
		t.Fatal(err)
	}
	if v := Volts(raw); math.Abs(v-1.65) > 0.001 {
		t.Fatalf("volts=%v", v)
	}

	a.SetVolts(10)
	if raw, _ := a.ReadU16(); raw != 65535 {
		t.Fatalf("over-range raw=%d", raw)
	}
	a.SetVolts(-1)
	if raw, _ := a.ReadU16(); raw != 0 {
		t.Fatalf("negative raw=%d", raw)
	}

	a.SetFail(true)
	if _, err := a.ReadU16(); err == nil {
		t.Fatal("expected read failure")
	}
}

func TestOpenSimDefaults(t *testing.T) {
	b, sim := OpenSim(DefaultConfig())
	if b.Supply.Get() || b.Speaker.Get() {
		t.Fatal("relays start off")
	}
	if b.Button.Pressed() {
		t.Fatal("button starts released")
	}
	raw, _ := b.Battery.ReadU16()
	if v := Volts(raw) * BatteryDivider; math.Abs(v-12.6) > 0.01 {
		t.Fatalf("battery=%v", v)
	}
	if b.TempAddr != 0x38 || b.I2C != sim.Probe {
		t.Fatal("probe wiring")
	}
}

func TestSimAHT20Protocol(t *testing.T) {
	probe := NewSimAHT20(31.5)
	dev := aht20.New(probe, aht20.Config{})
	if err := dev.Trigger(); err != nil {
		t.Fatal(err)
	}
	var s aht20.Sample
	if err := dev.Collect(&s); !errors.Is(err, aht20.ErrNotReady) {
		t.Fatalf("first collect err=%v", err)
	}
	if err := dev.Collect(&s); err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Celsius()-31.5) > 0.1 {
		t.Fatalf("celsius=%v", s.Celsius())
	}
	if probe.Triggers != 1 {
		t.Fatalf("triggers=%d", probe.Triggers)
	}

	probe.SetTemp(72)
	probe.BusyReads = 0
	if err := dev.Trigger(); err != nil {
		t.Fatal(err)
	}
	if err := dev.Collect(&s); err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Celsius()-72) > 0.1 {
		t.Fatalf("celsius after SetTemp=%v", s.Celsius())
	}

	probe.SetFail(true)
	if err := dev.Trigger(); err == nil {
		t.Fatal("expected bus error")
	}
}
