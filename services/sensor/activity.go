// Package sensor turns raw board inputs into the quantities the control loop
// decides on: filtered audio level, battery voltage and temperature.
// Sampling and querying are separate; queries never touch hardware.
package sensor

import (
	"math"

	"ampctl-go/services/hal"
)

// DefaultAlpha is the smoothing factor of the audio EMA.
const DefaultAlpha = 0.1

// Activity tracks the audio input and the battery voltage.
type Activity struct {
	audio   hal.Analog
	battery hal.Analog
	alpha   float64

	filtered float64 // audio EMA, volts
	volts    float64 // battery, after the divider

	AudioErrors   uint32
	BatteryErrors uint32
}

func NewActivity(audio, battery hal.Analog) *Activity {
	return &Activity{audio: audio, battery: battery, alpha: DefaultAlpha}
}

// SetAlpha changes the EMA factor; values outside (0,1] are ignored.
func (a *Activity) SetAlpha(alpha float64) {
	if alpha > 0 && alpha <= 1 {
		a.alpha = alpha
	}
}

// Sample reads both inputs once. An audio read failure counts as silence;
// a battery read failure keeps the last good value (0 V before the first).
func (a *Activity) Sample() {
	if raw, err := a.audio.ReadU16(); err != nil {
		a.AudioErrors++
		a.filtered = 0
	} else {
		a.filtered = a.alpha*hal.Volts(raw) + (1-a.alpha)*a.filtered
	}

	if raw, err := a.battery.ReadU16(); err != nil {
		a.BatteryErrors++
	} else {
		a.volts = hal.Volts(raw) * hal.BatteryDivider
	}
}

// AudioPresent compares the filtered level with |threshold|.
func (a *Activity) AudioPresent(threshold float64) bool {
	return a.filtered >= math.Abs(threshold)
}

func (a *Activity) BatteryOK(threshold float64) bool { return a.volts >= threshold }

func (a *Activity) AudioLevel() float64   { return a.filtered }
func (a *Activity) BatteryVolts() float64 { return a.volts }
