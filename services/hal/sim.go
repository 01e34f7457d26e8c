//go:build !rp2040 && !rp2350

package hal

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"ampctl-go/types"
)

// Open on a host builds a simulated board.
func Open(cfg types.HALConfig) (*Board, error) {
	b, _ := OpenSim(cfg)
	return b, nil
}

// Sim gives tests and the host console access to the simulated hardware.
type Sim struct {
	SupplyPin  *SimPin
	SpeakerPin *SimPin
	ButtonPin  *SimPin
	Fan        *SimPWM
	Audio      *SimAnalog
	Battery    *SimAnalog
	Probe      *SimAHT20
}

// OpenSim builds a board whose button is released, battery reads 12.6 V,
// audio is silent and the probe reports 25 °C.
func OpenSim(cfg types.HALConfig) (*Board, *Sim) {
	s := &Sim{
		SupplyPin:  &SimPin{},
		SpeakerPin: &SimPin{},
		ButtonPin:  &SimPin{},
		Fan:        &SimPWM{},
		Audio:      &SimAnalog{},
		Battery:    &SimAnalog{},
		Probe:      NewSimAHT20(25),
	}
	s.ButtonPin.Set(true) // pull-up, released
	s.Battery.SetVolts(12.6 / BatteryDivider)

	addr := cfg.I2C.TempAddr
	if addr == 0 {
		addr = 0x38
	}
	b := &Board{
		Name:     "sim",
		Supply:   NewRelay("supply", s.SupplyPin, cfg.RelayLow),
		Speaker:  NewRelay("speaker", s.SpeakerPin, cfg.RelayLow),
		Fan:      s.Fan,
		Button:   NewButton(s.ButtonPin, true),
		Audio:    s.Audio,
		Battery:  s.Battery,
		I2C:      s.Probe,
		TempAddr: addr,
	}
	return b, s
}

// SimPin is an in-memory GPIO level.
type SimPin struct {
	level atomic.Bool
}

func (p *SimPin) Set(on bool) { p.level.Store(on) }
func (p *SimPin) Get() bool   { return p.level.Load() }

// SimAnalog holds a raw 16-bit sample.
type SimAnalog struct {
	raw  atomic.Uint32
	fail atomic.Bool
}

var errSimADC = errors.New("sim: adc read failed")

func (a *SimAnalog) ReadU16() (uint16, error) {
	if a.fail.Load() {
		return 0, errSimADC
	}
	return uint16(a.raw.Load()), nil
}

func (a *SimAnalog) SetRaw(v uint16) { a.raw.Store(uint32(v)) }
func (a *SimAnalog) SetFail(f bool)  { a.fail.Store(f) }

// SetVolts stores the sample a VRef-referenced ADC would return for v at
// its pin.
func (a *SimAnalog) SetVolts(v float64) {
	x := math.Round(v / VRef * 65535)
	if x < 0 {
		x = 0
	}
	if x > 65535 {
		x = 65535
	}
	a.SetRaw(uint16(x))
}

type SimPWM struct {
	duty atomic.Uint32
}

func (p *SimPWM) SetDuty(d uint8) error { p.duty.Store(uint32(d)); return nil }
func (p *SimPWM) Duty() uint8           { return uint8(p.duty.Load()) }

// SimAHT20 answers the AHT20 I2C protocol with a settable temperature.
// After a trigger the first BusyReads collects report busy.
type SimAHT20 struct {
	mu        sync.Mutex
	tempC     float64
	rh        float64
	fail      bool
	busy      int
	BusyReads int
	Triggers  int
	Resets    int
}

var errSimI2C = errors.New("sim: i2c nack")

func NewSimAHT20(tempC float64) *SimAHT20 {
	return &SimAHT20{tempC: tempC, rh: 40, BusyReads: 1}
}

func (s *SimAHT20) SetTemp(c float64) {
	s.mu.Lock()
	s.tempC = c
	s.mu.Unlock()
}

func (s *SimAHT20) SetFail(f bool) {
	s.mu.Lock()
	s.fail = f
	s.mu.Unlock()
}

func (s *SimAHT20) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errSimI2C
	}
	if len(w) > 0 {
		switch w[0] {
		case 0xAC:
			s.Triggers++
			s.busy = s.BusyReads
		case 0xBA:
			s.Resets++
			s.busy = 0
		}
	}
	switch len(r) {
	case 0:
		return nil
	case 1:
		r[0] = 0x08 // calibrated
		return nil
	}
	if s.busy > 0 {
		s.busy--
		r[0] = 0x88
		return nil
	}
	h := uint32(s.rh / 100 * 0x100000)
	t := uint32((s.tempC + 50) / 200 * 0x100000)
	if h > 0xFFFFF {
		h = 0xFFFFF
	}
	if t > 0xFFFFF {
		t = 0xFFFFF
	}
	r[0] = 0x08
	r[1] = byte(h >> 12)
	r[2] = byte(h >> 4)
	r[3] = byte(h<<4) | byte(t>>16)
	r[4] = byte(t >> 8)
	if len(r) > 5 {
		r[5] = byte(t)
	}
	return nil
}
