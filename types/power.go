package types

// Power state labels shown by every surface.
const (
	StateStarting = "STARTING"
	StateStopping = "STOPPING"
	StateActive   = "ACTIVE"
	StateOff      = "OFF"
)

// Severity classifies events and status labels.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Thermal modes.
const (
	ThermalNormal  = "normal"
	ThermalWarning = "warning"
	ThermalCooling = "cooling"
)

// PowerStatus is the retained value on power/status.
type PowerStatus struct {
	Energized        bool     `json:"energized" cbor:"1,keyasint"`
	Active           bool     `json:"active" cbor:"14,keyasint"`
	State            string   `json:"state" cbor:"2,keyasint"`
	Category         Severity `json:"category" cbor:"3,keyasint"`
	SecondsRemaining *uint32  `json:"seconds_remaining,omitempty" cbor:"4,keyasint,omitempty"`
	HoldSeconds      uint32   `json:"hold_seconds" cbor:"5,keyasint"`

	AudioVolts   float64 `json:"audio_v" cbor:"6,keyasint"`
	AudioPresent bool    `json:"audio_present" cbor:"7,keyasint"`
	BatteryVolts float64 `json:"battery_v" cbor:"8,keyasint"`
	BatteryOK    bool    `json:"battery_ok" cbor:"9,keyasint"`

	TempC   *float64 `json:"temp_c,omitempty" cbor:"10,keyasint,omitempty"`
	FanDuty uint8    `json:"fan_duty" cbor:"11,keyasint"`
	Thermal string   `json:"thermal" cbor:"12,keyasint"`

	UptimeMs uint32 `json:"uptime_ms" cbor:"13,keyasint"`
}

// PowerVerb is the last token of a power/cmd/<verb> request.
type PowerVerb string

const (
	VerbTrigger       PowerVerb = "trigger"
	VerbForceShutdown PowerVerb = "force_shutdown"
	VerbStatus        PowerVerb = "status"
)

// PowerCommand is the payload of a power/cmd/<verb> request.
type PowerCommand struct {
	Source string `json:"source"` // "web", "console", "button"
}

// PowerReply answers a power/cmd request.
type PowerReply struct {
	OK     bool        `json:"ok"`
	Code   string      `json:"code,omitempty"`
	Status PowerStatus `json:"status"`
}
