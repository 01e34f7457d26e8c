// Package settings holds the operator-tunable parameters of the controller
// (hold time, thresholds, temperatures, relay delay) with their bounds,
// defaults and persistence.
package settings

import (
	"math"

	"ampctl-go/x/mathx"
)

// Settings is a value snapshot. Every field is always within its bounds.
type Settings struct {
	HoldTimeSeconds    uint32  `yaml:"hold_time_s" json:"hold_time_s"`
	MinBatteryVoltage  float64 `yaml:"min_battery_v" json:"min_battery_v"`
	AudioThreshold     float64 `yaml:"audio_threshold_v" json:"audio_threshold_v"`
	FanStartTemp       float64 `yaml:"fan_start_c" json:"fan_start_c"`
	WarnTemp           float64 `yaml:"warn_temp_c" json:"warn_temp_c"`
	MaxTemp            float64 `yaml:"max_temp_c" json:"max_temp_c"`
	CoolStopTemp       float64 `yaml:"cool_stop_c" json:"cool_stop_c"`
	RelaySwitchDelayMs uint32  `yaml:"relay_delay_ms" json:"relay_delay_ms"`
}

// Raw is the persisted form. A nil field was never stored.
type Raw struct {
	HoldTimeSeconds    *float64 `yaml:"hold_time_s,omitempty" json:"hold_time_s,omitempty" gorm:"column:hold_time_s"`
	MinBatteryVoltage  *float64 `yaml:"min_battery_v,omitempty" json:"min_battery_v,omitempty" gorm:"column:min_battery_v"`
	AudioThreshold     *float64 `yaml:"audio_threshold_v,omitempty" json:"audio_threshold_v,omitempty" gorm:"column:audio_threshold_v"`
	FanStartTemp       *float64 `yaml:"fan_start_c,omitempty" json:"fan_start_c,omitempty" gorm:"column:fan_start_c"`
	WarnTemp           *float64 `yaml:"warn_temp_c,omitempty" json:"warn_temp_c,omitempty" gorm:"column:warn_temp_c"`
	MaxTemp            *float64 `yaml:"max_temp_c,omitempty" json:"max_temp_c,omitempty" gorm:"column:max_temp_c"`
	CoolStopTemp       *float64 `yaml:"cool_stop_c,omitempty" json:"cool_stop_c,omitempty" gorm:"column:cool_stop_c"`
	RelaySwitchDelayMs *float64 `yaml:"relay_delay_ms,omitempty" json:"relay_delay_ms,omitempty" gorm:"column:relay_delay_ms"`
}

// Field describes one tunable: its console/web key, bounds and defaults.
type Field struct {
	Key     string
	Label   string
	Unit    string
	Min     float64
	Max     float64
	Default float64
	Factory float64
	Integer bool

	get func(*Settings) float64
	set func(*Settings, float64)
	raw func(*Raw) **float64
}

func (f Field) InRange(v float64) bool {
	if math.IsNaN(v) || !mathx.Between(v, f.Min, f.Max) {
		return false
	}
	return !f.Integer || v == math.Trunc(v)
}

func (f Field) Get(s Settings) float64 { return f.get(&s) }

// Fields lists every tunable in display order.
var Fields = []Field{
	{
		Key: "hold", Label: "Hold time", Unit: "s",
		Min: 5, Max: 600, Default: 30, Factory: 60, Integer: true,
		get: func(s *Settings) float64 { return float64(s.HoldTimeSeconds) },
		set: func(s *Settings, v float64) { s.HoldTimeSeconds = uint32(v) },
		raw: func(r *Raw) **float64 { return &r.HoldTimeSeconds },
	},
	{
		Key: "battery", Label: "Min battery voltage", Unit: "V",
		Min: 11, Max: 15, Default: 11.5, Factory: 12.0,
		get: func(s *Settings) float64 { return s.MinBatteryVoltage },
		set: func(s *Settings, v float64) { s.MinBatteryVoltage = v },
		raw: func(r *Raw) **float64 { return &r.MinBatteryVoltage },
	},
	{
		Key: "audio", Label: "Audio threshold", Unit: "V",
		Min: 0.1, Max: 3.0, Default: 1.0, Factory: 1.0,
		get: func(s *Settings) float64 { return s.AudioThreshold },
		set: func(s *Settings, v float64) { s.AudioThreshold = v },
		raw: func(r *Raw) **float64 { return &r.AudioThreshold },
	},
	{
		Key: "fan_start", Label: "Fan start temperature", Unit: "°C",
		Min: 30, Max: 70, Default: 35, Factory: 35,
		get: func(s *Settings) float64 { return s.FanStartTemp },
		set: func(s *Settings, v float64) { s.FanStartTemp = v },
		raw: func(r *Raw) **float64 { return &r.FanStartTemp },
	},
	{
		Key: "warn", Label: "Warning temperature", Unit: "°C",
		Min: 40, Max: 85, Default: 60, Factory: 60,
		get: func(s *Settings) float64 { return s.WarnTemp },
		set: func(s *Settings, v float64) { s.WarnTemp = v },
		raw: func(r *Raw) **float64 { return &r.WarnTemp },
	},
	{
		Key: "max", Label: "Shutdown temperature", Unit: "°C",
		Min: 50, Max: 100, Default: 80, Factory: 80,
		get: func(s *Settings) float64 { return s.MaxTemp },
		set: func(s *Settings, v float64) { s.MaxTemp = v },
		raw: func(r *Raw) **float64 { return &r.MaxTemp },
	},
	{
		Key: "cool_stop", Label: "Cooling stop temperature", Unit: "°C",
		Min: 30, Max: 70, Default: 45, Factory: 45,
		get: func(s *Settings) float64 { return s.CoolStopTemp },
		set: func(s *Settings, v float64) { s.CoolStopTemp = v },
		raw: func(r *Raw) **float64 { return &r.CoolStopTemp },
	},
	{
		Key: "delay", Label: "Relay switch delay", Unit: "ms",
		Min: 100, Max: 10000, Default: 4000, Factory: 4000, Integer: true,
		get: func(s *Settings) float64 { return float64(s.RelaySwitchDelayMs) },
		set: func(s *Settings, v float64) { s.RelaySwitchDelayMs = uint32(v) },
		raw: func(r *Raw) **float64 { return &r.RelaySwitchDelayMs },
	},
}

// Lookup finds a field by key.
func Lookup(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults is the set applied when nothing (or nothing valid) is stored.
func Defaults() Settings {
	var s Settings
	for _, f := range Fields {
		f.set(&s, f.Default)
	}
	return s
}

// Factory is the set applied by a factory reset.
func Factory() Settings {
	var s Settings
	for _, f := range Fields {
		f.set(&s, f.Factory)
	}
	return s
}

// Normalize turns a stored Raw into Settings. Missing, NaN or out-of-range
// values become defaults; the keys of present-but-invalid values are
// returned.
func Normalize(r *Raw) (Settings, []string) {
	s := Defaults()
	if r == nil {
		return s, nil
	}
	var fixed []string
	for _, f := range Fields {
		p := *f.raw(r)
		if p == nil {
			continue
		}
		if !f.InRange(*p) {
			fixed = append(fixed, f.Key)
			continue
		}
		f.set(&s, *p)
	}
	return s, fixed
}

// Raw converts s to its persisted form.
func (s Settings) Raw() Raw {
	var r Raw
	for _, f := range Fields {
		v := f.get(&s)
		*f.raw(&r) = &v
	}
	return r
}
