package sensor

import (
	"errors"

	"tinygo.org/x/drivers"

	"ampctl-go/drivers/aht20"
	"ampctl-go/x/timex"
)

// maxFails consecutive failures invalidate the cached temperature and
// soft-reset the device before the next conversion.
const maxFails = 3

// Probe samples an AHT20 without blocking: one call triggers a conversion,
// a later call collects it.
type Probe struct {
	dev      *aht20.Device
	periodMs uint32
	hintMs   uint32

	started     bool
	pending     bool
	triggeredAt timex.Ms
	lastAt      timex.Ms

	celsius float64
	valid   bool
	fails   int
	reset   bool
}

func NewProbe(bus drivers.I2C, addr uint16, periodMs uint32) *Probe {
	dev := aht20.New(bus, aht20.Config{Address: addr})
	if periodMs == 0 {
		periodMs = 1000
	}
	return &Probe{
		dev:      dev,
		periodMs: periodMs,
		hintMs:   uint32(dev.TriggerHint().Milliseconds()),
	}
}

// Poll advances the trigger/collect cycle.
func (p *Probe) Poll(now timex.Ms) {
	if p.pending {
		waited := timex.Since(now, p.triggeredAt)
		if waited < p.hintMs {
			return
		}
		var s aht20.Sample
		err := p.dev.Collect(&s)
		switch {
		case err == nil:
			p.pending = false
			p.lastAt = now
			p.celsius, p.valid, p.fails = s.Celsius(), true, 0
		case errors.Is(err, aht20.ErrNotReady) && waited < 4*p.hintMs:
		default:
			p.fail(now)
		}
		return
	}
	if p.started && timex.Since(now, p.lastAt) < p.periodMs {
		return
	}
	p.started = true
	if p.reset {
		// The device needs ~20 ms after a soft reset; trigger next period.
		if err := p.dev.Reset(); err != nil {
			p.fail(now)
			return
		}
		p.reset = false
		p.lastAt = now
		return
	}
	if err := p.dev.Trigger(); err != nil {
		p.fail(now)
		return
	}
	p.pending = true
	p.triggeredAt = now
}

func (p *Probe) fail(now timex.Ms) {
	p.pending = false
	p.lastAt = now
	p.fails++
	if p.fails >= maxFails {
		p.valid = false
		p.reset = true
	}
}

// Celsius returns the last good reading; ok is false before the first one
// and after repeated failures.
func (p *Probe) Celsius() (float64, bool) { return p.celsius, p.valid }
