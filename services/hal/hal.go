// Package hal describes the controller board: two relays (amplifier supply
// and speaker line), a fan PWM output, a push button, the audio and battery
// ADC inputs, an I2C bus for the temperature probe and an optional serial
// port. Open builds the board for the current target; the host build is a
// simulator.
package hal

import (
	"io"

	"tinygo.org/x/drivers"

	"ampctl-go/types"
)

type Output interface {
	Set(on bool)
	Get() bool
}

type Input interface {
	Get() bool
}

// Analog returns a sample scaled to the full 16-bit range.
type Analog interface {
	ReadU16() (uint16, error)
}

// PWM duty is 0 (off) to 255 (full).
type PWM interface {
	SetDuty(d uint8) error
	Duty() uint8
}

// Relay drives a coil through an Output. On means energized regardless of
// the board's polarity.
type Relay struct {
	name      string
	out       Output
	activeLow bool
}

// NewRelay returns a relay that is de-energized.
func NewRelay(name string, out Output, activeLow bool) *Relay {
	r := &Relay{name: name, out: out, activeLow: activeLow}
	r.Set(false)
	return r
}

func (r *Relay) Name() string { return r.name }
func (r *Relay) Set(on bool)  { r.out.Set(on != r.activeLow) }
func (r *Relay) Get() bool    { return r.out.Get() != r.activeLow }

// Button reads a push button wired to ground with a pull-up.
type Button struct {
	in        Input
	activeLow bool
}

func NewButton(in Input, activeLow bool) *Button { return &Button{in: in, activeLow: activeLow} }

func (b *Button) Pressed() bool { return b.in.Get() != b.activeLow }

// Board is everything the services touch.
type Board struct {
	Name     string
	Supply   *Relay
	Speaker  *Relay
	Fan      PWM
	Button   *Button
	Audio    Analog
	Battery  Analog
	I2C      drivers.I2C
	TempAddr uint16
	Serial   io.ReadWriter // nil when the board has no console UART
}

// Default pin map of the reference board.
func DefaultConfig() types.HALConfig {
	return types.HALConfig{
		SupplyPin:  2,
		SpeakerPin: 3,
		RelayLow:   true,
		FanPin:     15,
		FanHz:      25000,
		ButtonPin:  14,
		AudioPin:   26,
		BatteryPin: 27,
		I2C:        types.I2CConfig{ID: "i2c0", SDA: 4, SCL: 5, Hz: 400_000, TempAddr: 0x38},
		UART:       types.UARTConfig{ID: "uart0", Baud: 115200, TX: 0, RX: 1},
	}
}

// Analog front-end constants of the reference board.
const (
	VRef = 3.3
	// BatteryDivider is the 47k/12k divider ratio on the battery input.
	BatteryDivider = (47.0 + 12.0) / 12.0
)

// Volts converts a 16-bit sample to the voltage at the pin.
func Volts(raw uint16) float64 { return float64(raw) / 65535 * VRef }
