package sensor

import (
	"math"
	"testing"

	"ampctl-go/services/hal"
	"ampctl-go/x/timex"
)

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestActivity_EMA(t *testing.T) {
	audio, batt := &hal.SimAnalog{}, &hal.SimAnalog{}
	a := NewActivity(audio, batt)

	audio.SetVolts(2.0)
	a.Sample()
	if !near(a.AudioLevel(), 0.2, 0.001) {
		t.Fatalf("after one sample level=%v, want ~0.2", a.AudioLevel())
	}
	if a.AudioPresent(1.0) {
		t.Fatal("one loud sample must not pass a 1.0 V threshold")
	}
	for i := 0; i < 30; i++ {
		a.Sample()
	}
	if !a.AudioPresent(1.0) {
		t.Fatalf("sustained 2 V should be present, level=%v", a.AudioLevel())
	}
	if !a.AudioPresent(-1.0) {
		t.Fatal("threshold sign is ignored")
	}
}

func TestActivity_AudioFailureIsSilence(t *testing.T) {
	audio, batt := &hal.SimAnalog{}, &hal.SimAnalog{}
	a := NewActivity(audio, batt)
	a.SetAlpha(1)
	audio.SetVolts(3.0)
	a.Sample()
	if !a.AudioPresent(1.0) {
		t.Fatal("expected audio")
	}
	audio.SetFail(true)
	a.Sample()
	if a.AudioPresent(0.1) || a.AudioErrors != 1 {
		t.Fatalf("failure should read as silence, level=%v errors=%d", a.AudioLevel(), a.AudioErrors)
	}
}

func TestActivity_Battery(t *testing.T) {
	audio, batt := &hal.SimAnalog{}, &hal.SimAnalog{}
	a := NewActivity(audio, batt)

	batt.SetFail(true)
	a.Sample()
	if a.BatteryVolts() != 0 || a.BatteryOK(11.5) {
		t.Fatal("no reading yet: 0 V, not OK")
	}

	batt.SetFail(false)
	batt.SetVolts(12.0 / hal.BatteryDivider)
	a.Sample()
	if !near(a.BatteryVolts(), 12.0, 0.01) {
		t.Fatalf("battery=%v", a.BatteryVolts())
	}
	if !a.BatteryOK(11.5) || a.BatteryOK(12.5) {
		t.Fatal("threshold compare")
	}

	batt.SetFail(true)
	a.Sample()
	if !near(a.BatteryVolts(), 12.0, 0.01) {
		t.Fatal("failed read keeps last value")
	}
}

func TestProbe_TriggerThenCollect(t *testing.T) {
	dev := hal.NewSimAHT20(42)
	p := NewProbe(dev, 0x38, 1000)

	p.Poll(0)
	if _, ok := p.Celsius(); ok {
		t.Fatal("no reading before collect")
	}
	p.Poll(40) // before the conversion hint
	if dev.Triggers != 1 {
		t.Fatalf("triggers=%d", dev.Triggers)
	}
	p.Poll(80)  // busy once
	p.Poll(100) // ready
	c, ok := p.Celsius()
	if !ok || !near(c, 42, 0.1) {
		t.Fatalf("Celsius=%v ok=%v", c, ok)
	}

	p.Poll(500) // inside the period, nothing happens
	if dev.Triggers != 1 {
		t.Fatal("unexpected trigger inside period")
	}
	p.Poll(1100)
	if dev.Triggers != 2 {
		t.Fatalf("triggers=%d, want 2", dev.Triggers)
	}
}

func TestProbe_RepeatedFailuresInvalidate(t *testing.T) {
	dev := hal.NewSimAHT20(30)
	dev.BusyReads = 0
	p := NewProbe(dev, 0x38, 100)
	p.Poll(0)
	p.Poll(100)
	if _, ok := p.Celsius(); !ok {
		t.Fatal("expected first reading")
	}

	dev.SetFail(true)
	now := timex.Ms(100)
	for i := 0; i < maxFails-1; i++ {
		now += 200
		p.Poll(now)
	}
	if _, ok := p.Celsius(); !ok {
		t.Fatal("cached value survives a few failures")
	}
	now += 200
	p.Poll(now)
	if _, ok := p.Celsius(); ok {
		t.Fatal("value must be invalid after repeated failures")
	}
	if dev.Resets != 0 {
		t.Fatal("no reset can reach a failing bus")
	}

	dev.SetFail(false)
	dev.SetTemp(33)
	now += 200
	p.Poll(now)
	if dev.Resets != 1 {
		t.Fatalf("resets=%d, want a soft reset once the bus answers", dev.Resets)
	}
	if _, ok := p.Celsius(); ok {
		t.Fatal("still invalid until a fresh conversion")
	}
	triggers := dev.Triggers
	p.Poll(now + 50) // inside the period after the reset
	if dev.Triggers != triggers {
		t.Fatal("trigger must wait a period after the reset")
	}
	now += 100
	p.Poll(now)
	p.Poll(now + 100)
	c, ok := p.Celsius()
	if !ok || !near(c, 33, 0.1) {
		t.Fatalf("after recovery Celsius=%v ok=%v", c, ok)
	}
	if dev.Resets != 1 {
		t.Fatal("a good reading clears the reset")
	}
}
