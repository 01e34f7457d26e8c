package types

// Boot configuration. Each top-level section is published retained on
// config/<section>.

type BootConfig struct {
	Board     string          `yaml:"board" json:"board"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Power     PowerConfig     `yaml:"power" json:"power"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat" json:"heartbeat"`
	Console   ConsoleConfig   `yaml:"console" json:"console"`
	Web       WebConfig       `yaml:"web" json:"web"`
	Settings  StoreConfig     `yaml:"settings" json:"settings"`
	EventLog  EventLogConfig  `yaml:"eventlog" json:"eventlog"`
	HAL       HALConfig       `yaml:"hal" json:"hal"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug|info|warn|error
	Format string `yaml:"format" json:"format"` // text|json
}

type PowerConfig struct {
	TickMs           uint32 `yaml:"tick_ms" json:"tick_ms"`
	BatteryGate      bool   `yaml:"battery_gate" json:"battery_gate"`
	ButtonWakeMs     uint32 `yaml:"button_wake_ms" json:"button_wake_ms"`
	ButtonDebounceMs uint32 `yaml:"button_debounce_ms" json:"button_debounce_ms"`
	TempPollMs       uint32 `yaml:"temp_poll_ms" json:"temp_poll_ms"`
}

type HeartbeatConfig struct {
	IntervalS uint32 `yaml:"interval_s" json:"interval_s"`
}

type ConsoleConfig struct {
	Mode         string `yaml:"mode" json:"mode"` // readline|stdio|uart|off
	IdleTimeoutS uint32 `yaml:"idle_timeout_s" json:"idle_timeout_s"`
	Prompt       string `yaml:"prompt" json:"prompt"`
}

type WebConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	Addr         string `yaml:"addr" json:"addr"`
	IdleTimeoutS uint32 `yaml:"idle_timeout_s" json:"idle_timeout_s"`
	MDNS         bool   `yaml:"mdns" json:"mdns"`
	Instance     string `yaml:"instance" json:"instance"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" json:"kind"` // yaml|sqlite|memory
	Path string `yaml:"path" json:"path"`
}

type EventLogConfig struct {
	Capacity   int    `yaml:"capacity" json:"capacity"`
	ArchiveDir string `yaml:"archive_dir" json:"archive_dir"`
	Color      bool   `yaml:"color" json:"color"`
}

// HALConfig names the pins of the controller board. Pin numbers are
// board GPIO numbers; ADC inputs are pins too.
type HALConfig struct {
	SupplyPin  uint8      `yaml:"supply_pin" json:"supply_pin"`
	SpeakerPin uint8      `yaml:"speaker_pin" json:"speaker_pin"`
	RelayLow   bool       `yaml:"relay_active_low" json:"relay_active_low"`
	FanPin     uint8      `yaml:"fan_pin" json:"fan_pin"`
	FanHz      uint32     `yaml:"fan_hz" json:"fan_hz"`
	ButtonPin  uint8      `yaml:"button_pin" json:"button_pin"`
	AudioPin   uint8      `yaml:"audio_pin" json:"audio_pin"`
	BatteryPin uint8      `yaml:"battery_pin" json:"battery_pin"`
	I2C        I2CConfig  `yaml:"i2c" json:"i2c"`
	UART       UARTConfig `yaml:"uart" json:"uart"`
}

type I2CConfig struct {
	ID       string `yaml:"id" json:"id"` // i2c0|i2c1
	SDA      uint8  `yaml:"sda" json:"sda"`
	SCL      uint8  `yaml:"scl" json:"scl"`
	Hz       uint32 `yaml:"hz" json:"hz"`
	TempAddr uint16 `yaml:"temp_addr" json:"temp_addr"`
}

type UARTConfig struct {
	ID   string `yaml:"id" json:"id"` // uart0|uart1
	Baud uint32 `yaml:"baud" json:"baud"`
	TX   uint8  `yaml:"tx" json:"tx"`
	RX   uint8  `yaml:"rx" json:"rx"`
}
