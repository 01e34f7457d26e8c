//go:build rp2040 || rp2350

package hal

import (
	"context"
	"errors"
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"ampctl-go/types"
	"ampctl-go/x/mathx"
	"ampctl-go/x/timex"
)

// Open configures the pins named in cfg.
func Open(cfg types.HALConfig) (*Board, error) {
	machine.InitADC()

	fan, err := newPWMPin(machine.Pin(cfg.FanPin), cfg.FanHz)
	if err != nil {
		return nil, err
	}

	btn := machine.Pin(cfg.ButtonPin)
	btn.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	i2c := machine.I2C0
	if cfg.I2C.ID == "i2c1" {
		i2c = machine.I2C1
	}
	if err := i2c.Configure(machine.I2CConfig{
		SDA:       machine.Pin(cfg.I2C.SDA),
		SCL:       machine.Pin(cfg.I2C.SCL),
		Frequency: cfg.I2C.Hz,
	}); err != nil {
		return nil, err
	}

	b := &Board{
		Name:     "pico",
		Supply:   NewRelay("supply", newOutPin(cfg.SupplyPin), cfg.RelayLow),
		Speaker:  NewRelay("speaker", newOutPin(cfg.SpeakerPin), cfg.RelayLow),
		Fan:      fan,
		Button:   NewButton(btn, true),
		Audio:    newADC(cfg.AudioPin),
		Battery:  newADC(cfg.BatteryPin),
		I2C:      i2c,
		TempAddr: cfg.I2C.TempAddr,
	}

	if cfg.UART.ID != "" {
		hw := uartx.UART0
		if cfg.UART.ID == "uart1" {
			hw = uartx.UART1
		}
		_ = hw.Configure(uartx.UARTConfig{
			BaudRate: cfg.UART.Baud,
			TX:       machine.Pin(cfg.UART.TX),
			RX:       machine.Pin(cfg.UART.RX),
		})
		b.Serial = &serialPort{u: hw}
	}
	return b, nil
}

func newOutPin(n uint8) machine.Pin {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return p
}

type adcPin struct{ a machine.ADC }

func newADC(n uint8) *adcPin {
	a := machine.ADC{Pin: machine.Pin(n)}
	a.Configure(machine.ADCConfig{})
	return &adcPin{a: a}
}

func (p *adcPin) ReadU16() (uint16, error) { return p.a.Get(), nil }

// pwmSlice is the subset of the rp2 PWM peripheral used here.
type pwmSlice interface {
	Configure(machine.PWMConfig) error
	Channel(machine.Pin) (uint8, error)
	Set(channel uint8, value uint32)
	Top() uint32
}

var slices = [...]pwmSlice{
	machine.PWM0, machine.PWM1, machine.PWM2, machine.PWM3,
	machine.PWM4, machine.PWM5, machine.PWM6, machine.PWM7,
}

var errNoPWM = errors.New("hal: pin has no pwm slice")

type pwmPin struct {
	s    pwmSlice
	ch   uint8
	duty uint8
}

func newPWMPin(pin machine.Pin, hz uint32) (*pwmPin, error) {
	idx := (int(pin) >> 1) & 7
	if int(pin) >= 30 {
		return nil, errNoPWM
	}
	s := slices[idx]
	if err := s.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(hz)}); err != nil {
		return nil, err
	}
	ch, err := s.Channel(pin)
	if err != nil {
		return nil, err
	}
	p := &pwmPin{s: s, ch: ch}
	_ = p.SetDuty(0)
	return p, nil
}

func (p *pwmPin) SetDuty(d uint8) error {
	p.duty = d
	p.s.Set(p.ch, mathx.RoundDiv(p.s.Top()*uint32(d), 255))
	return nil
}

func (p *pwmPin) Duty() uint8 { return p.duty }

// serialPort adapts uartx to io.ReadWriter.
type serialPort struct{ u *uartx.UART }

func (s *serialPort) Write(b []byte) (int, error) { return s.u.Write(b) }
func (s *serialPort) Read(b []byte) (int, error) {
	return s.u.RecvSomeContext(context.Background(), b)
}
