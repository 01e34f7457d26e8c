package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board name (the --board flag or the board key of a config file)
// Val: YAML for that board. A file passed with --config overlays it.
// -----------------------------------------------------------------------------

const cfgHost = `
board: host
log:
  level: info
  format: text
power:
  tick_ms: 20
  battery_gate: false
  button_wake_ms: 3000
  button_debounce_ms: 30
  temp_poll_ms: 1000
heartbeat:
  interval_s: 60
console:
  mode: readline
  idle_timeout_s: 120
  prompt: "amp> "
web:
  enabled: true
  addr: ":8080"
  idle_timeout_s: 120
  mdns: true
  instance: ampctl
settings:
  kind: yaml
  path: ampctl-settings.yaml
eventlog:
  capacity: 20
  archive_dir: ""
  color: true
hal:
  supply_pin: 2
  speaker_pin: 3
  relay_active_low: true
  fan_pin: 15
  fan_hz: 25000
  button_pin: 14
  audio_pin: 26
  battery_pin: 27
  i2c: {id: i2c0, sda: 4, scl: 5, hz: 400000, temp_addr: 0x38}
`

const cfgPico = `
board: pico
log:
  level: info
  format: text
power:
  tick_ms: 20
  battery_gate: false
  button_wake_ms: 3000
  button_debounce_ms: 30
  temp_poll_ms: 1000
heartbeat:
  interval_s: 2
console:
  mode: uart
  idle_timeout_s: 120
  prompt: "> "
web:
  enabled: false
settings:
  kind: memory
eventlog:
  capacity: 20
  color: false
hal:
  supply_pin: 2
  speaker_pin: 3
  relay_active_low: true
  fan_pin: 15
  fan_hz: 25000
  button_pin: 14
  audio_pin: 26
  battery_pin: 27
  i2c: {id: i2c0, sda: 4, scl: 5, hz: 400000, temp_addr: 0x38}
  uart: {id: uart0, baud: 115200, tx: 0, rx: 1}
`

var embeddedConfigs = map[string][]byte{
	"host": []byte(cfgHost),
	"pico": []byte(cfgPico),
}
