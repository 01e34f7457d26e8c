package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"ampctl-go/bus"
	"ampctl-go/errcode"
	"ampctl-go/services/topics"
	"ampctl-go/types"
	"ampctl-go/x/strx"
)

const (
	serviceName  = "config"
	DefaultBoard = "host"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Boards lists the boards with an embedded config.
func Boards() []string { return []string{"host", "pico"} }

// Load resolves the embedded config of board and overlays the YAML file at
// path when path is non-empty. Keys absent from the file keep their
// embedded values. An empty board falls back to the file's board key, then
// to DefaultBoard.
func Load(board, path string) (types.BootConfig, error) {
	var overlay []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return types.BootConfig{}, errcode.Wrap(errcode.InvalidParams, "config.load", err)
		}
		overlay = b
		if board == "" {
			var probe struct {
				Board string `yaml:"board"`
			}
			if err := yaml.Unmarshal(b, &probe); err != nil {
				return types.BootConfig{}, errcode.Wrap(errcode.InvalidPayload, "config.load", err)
			}
			board = probe.Board
		}
	}
	board = strx.Coalesce(board, DefaultBoard)

	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return types.BootConfig{}, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: "no embedded config for board " + board}
	}
	var cfg types.BootConfig
	if err := decode(raw, &cfg); err != nil {
		return types.BootConfig{}, errcode.Wrap(errcode.InvalidPayload, "config.embedded", err)
	}
	if overlay != nil {
		if err := decode(overlay, &cfg); err != nil {
			return types.BootConfig{}, errcode.Wrap(errcode.InvalidPayload, "config.overlay", err)
		}
	}
	cfg.Board = board
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return types.BootConfig{}, err
	}
	return cfg, nil
}

// decode rejects unknown keys so typos in a config file surface at boot.
func decode(b []byte, cfg *types.BootConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyDefaults(c *types.BootConfig) {
	c.Log.Level = strx.Coalesce(c.Log.Level, "info")
	c.Log.Format = strx.Coalesce(c.Log.Format, "text")
	c.Console.Mode = strx.Coalesce(c.Console.Mode, "off")
	c.Console.Prompt = strx.Coalesce(c.Console.Prompt, "> ")
	c.Web.Addr = strx.Coalesce(c.Web.Addr, ":8080")
	c.Web.Instance = strx.Coalesce(c.Web.Instance, "ampctl")
	c.Settings.Kind = strx.Coalesce(c.Settings.Kind, "memory")
	if c.Heartbeat.IntervalS == 0 {
		c.Heartbeat.IntervalS = 60
	}
	if c.EventLog.Capacity <= 0 {
		c.EventLog.Capacity = 20
	}
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate checks the enumerations and the combinations that would fail
// later at wiring time.
func Validate(c types.BootConfig) error {
	bad := func(format string, a ...any) error {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: fmt.Sprintf(format, a...)}
	}
	switch {
	case !oneOf(c.Log.Level, "debug", "info", "warn", "error"):
		return bad("log.level %q", c.Log.Level)
	case !oneOf(c.Log.Format, "text", "json"):
		return bad("log.format %q", c.Log.Format)
	case !oneOf(c.Console.Mode, "readline", "stdio", "uart", "off"):
		return bad("console.mode %q", c.Console.Mode)
	case !oneOf(c.Settings.Kind, "yaml", "sqlite", "memory"):
		return bad("settings.kind %q", c.Settings.Kind)
	case c.Settings.Kind != "memory" && c.Settings.Path == "":
		return bad("settings.path required for kind %s", c.Settings.Kind)
	case c.Power.TickMs >= 100:
		return bad("power.tick_ms %d must stay below 100", c.Power.TickMs)
	}
	return nil
}

// Sections maps each bus section name to its typed payload.
func Sections(c types.BootConfig) map[string]any {
	return map[string]any{
		"log":       c.Log,
		"power":     c.Power,
		"heartbeat": c.Heartbeat,
		"console":   c.Console,
		"web":       c.Web,
		"settings":  c.Settings,
		"eventlog":  c.EventLog,
		"hal":       c.HAL,
	}
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	cfg  types.BootConfig
	log  *slog.Logger
}

func NewConfigService(cfg types.BootConfig, log *slog.Logger) *ConfigService {
	if log == nil {
		log = slog.Default()
	}
	return &ConfigService{Name: serviceName, cfg: cfg, log: log.With("service", serviceName)}
}

// Publish puts every section on config/<section> as a retained message.
func (s *ConfigService) Publish(conn *bus.Connection) {
	for k, v := range Sections(s.cfg) {
		conn.Publish(conn.NewMessage(topics.Config(k), v, true))
	}
	s.log.Info("config published", "board", s.cfg.Board)
}

// Start publishes synchronously; retained messages make ordering against
// subscribers irrelevant.
func (s *ConfigService) Start(_ context.Context, conn *bus.Connection) {
	s.Publish(conn)
}
