package power

import (
	"ampctl-go/services/eventlog"
	"ampctl-go/services/hal"
	"ampctl-go/services/settings"
	"ampctl-go/types"
	"ampctl-go/x/mathx"
	"ampctl-go/x/timex"
)

const opTemperature = "TEMPERATURE"

// warnHysteresis keeps the warning band from flapping on sensor noise.
const warnHysteresis = 1.0

type ThermalMode uint8

const (
	ThermalNormal ThermalMode = iota
	ThermalWarning
	ThermalCooling // after an over-temperature shutdown, until cool_stop
)

func (m ThermalMode) String() string {
	switch m {
	case ThermalWarning:
		return types.ThermalWarning
	case ThermalCooling:
		return types.ThermalCooling
	}
	return types.ThermalNormal
}

// Thermal drives the fan from the amplifier temperature and requests a
// shutdown at the limit.
type Thermal struct {
	fan  hal.PWM
	cfg  settings.Reader
	ev   eventlog.Emitter
	mode ThermalMode
}

func NewThermal(fan hal.PWM, cfg settings.Reader, log eventlog.Logger) *Thermal {
	_ = fan.SetDuty(0)
	return &Thermal{fan: fan, cfg: cfg, ev: eventlog.Emitter{L: log}}
}

func (t *Thermal) Mode() ThermalMode { return t.mode }

// Locked reports the cooling lockout; no startup is allowed meanwhile.
func (t *Thermal) Locked() bool { return t.mode == ThermalCooling }

// Update applies one reading. ok=false (no reading) changes nothing. The
// result is true when the caller must shut the sequence down.
func (t *Thermal) Update(now timex.Ms, tempC float64, ok, energized bool) bool {
	if !ok {
		return false
	}
	cfg := t.cfg.Current()

	if t.mode == ThermalCooling {
		if tempC > cfg.CoolStopTemp {
			t.setFan(255)
			return false
		}
		t.ev.Success(now, opTemperature, "Cooled down to %.1f°C, startup allowed", tempC)
		t.mode = ThermalNormal
	}

	if !energized {
		t.mode = ThermalNormal
		t.setFan(0)
		return false
	}

	switch {
	case tempC >= cfg.MaxTemp:
		t.ev.Error(now, opTemperature, "%.1f°C reached limit %.1f°C, shutting down", tempC, cfg.MaxTemp)
		t.mode = ThermalCooling
		t.setFan(255)
		return true
	case tempC >= cfg.WarnTemp:
		if t.mode != ThermalWarning {
			t.ev.Warn(now, opTemperature, "High temperature %.1f°C", tempC)
			t.mode = ThermalWarning
		}
	case t.mode == ThermalWarning && tempC > cfg.WarnTemp-warnHysteresis:
	default:
		if t.mode == ThermalWarning {
			t.ev.Info(now, opTemperature, "Temperature back to %.1f°C", tempC)
		}
		t.mode = ThermalNormal
	}
	t.setFan(mathx.ScaleU8(tempC, cfg.FanStartTemp, cfg.MaxTemp))
	return false
}

func (t *Thermal) setFan(d uint8) {
	if t.fan.Duty() != d {
		_ = t.fan.SetDuty(d)
	}
}
