// Package aht20 drives the AHT20 temperature/humidity sensor with a
// non-blocking two-phase API:
//
//	d.Trigger()          // start a conversion
//	err := d.Collect(&s) // later; ErrNotReady while the device is busy
//
// Callers schedule Collect no earlier than TriggerHint after Trigger.
package aht20

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

var (
	ErrNotReady = errors.New("aht20: not ready")
	ErrProtocol = errors.New("aht20: protocol error")
)

// Config is optional; zero fields take defaults.
type Config struct {
	Address     uint16        // default 0x38
	TriggerHint time.Duration // nominal conversion time, default 80 ms
}

type Device struct {
	bus     drivers.I2C
	addr    uint16
	hint    time.Duration
	ready   bool
	buf     [7]byte
}

// New does not touch the bus.
func New(bus drivers.I2C, cfg Config) *Device {
	d := &Device{bus: bus, addr: cfg.Address, hint: cfg.TriggerHint}
	if d.addr == 0 {
		d.addr = Address
	}
	if d.hint <= 0 {
		d.hint = 80 * time.Millisecond
	}
	return d
}

func (d *Device) Address() uint16            { return d.addr }
func (d *Device) TriggerHint() time.Duration { return d.hint }

// Init sends the calibration command when the status byte says the device
// is uncalibrated. The device needs ~10 ms afterwards; Trigger does not wait.
func (d *Device) Init() error {
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusCalibrated == 0 {
		if err := d.bus.Tx(d.addr, []byte{cmdInitialize, 0x08, 0x00}, nil); err != nil {
			return err
		}
	}
	d.ready = true
	return nil
}

func (d *Device) Reset() error {
	d.ready = false
	return d.bus.Tx(d.addr, []byte{cmdSoftReset}, nil)
}

func (d *Device) Status() (byte, error) {
	var b [1]byte
	if err := d.bus.Tx(d.addr, []byte{cmdStatus}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Trigger starts a conversion without blocking.
func (d *Device) Trigger() error {
	if !d.ready {
		if err := d.Init(); err != nil {
			return err
		}
	}
	return d.bus.Tx(d.addr, []byte{cmdTrigger, 0x33, 0x00}, nil)
}

// Collect reads the result of the last Trigger.
func (d *Device) Collect(out *Sample) error {
	data := d.buf[:]
	if err := d.bus.Tx(d.addr, nil, data); err != nil {
		return err
	}
	if data[0]&statusBusy != 0 {
		return ErrNotReady
	}
	if data[0]&statusCalibrated == 0 {
		d.ready = false
		return ErrProtocol
	}
	s := Sample{
		RawHumidity: uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4,
		RawTemp:     uint32(data[3]&0x0F)<<16 | uint32(data[4])<<8 | uint32(data[5]),
	}
	if out != nil {
		*out = s
	}
	return nil
}

// Sample holds 20-bit raw readings.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

func (s Sample) Celsius() float64 {
	return float64(s.RawTemp)*200/0x100000 - 50
}

