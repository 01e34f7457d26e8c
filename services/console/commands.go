package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"

	"ampctl-go/errcode"
	"ampctl-go/services/settings"
	"ampctl-go/services/topics"
	"ampctl-go/types"
)

const (
	opSave    = "SAVE"
	opFactory = "FACTORY RESET"
	opRestart = "RESTART"
)

func writef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// Exec runs every command on line in order and returns the first error.
// A failing command does not stop the ones after it.
func (c *Console) Exec(ctx context.Context, out io.Writer, line string) error {
	words, err := shlex.Split(line)
	if err != nil {
		writef(out, "%s: %v\n", errcode.InvalidParams, err)
		return errcode.Wrap(errcode.InvalidParams, "console.parse", err)
	}
	var first error
	for _, w := range words {
		if err := c.exec(ctx, out, w); err != nil {
			writef(out, "%s: %v\n", errcode.Of(err), err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (c *Console) exec(ctx context.Context, out io.Writer, word string) error {
	if key, val, ok := strings.Cut(word, "="); ok {
		key = strings.ToLower(key)
		if err := c.cfg.SetText(key, val); err != nil {
			return err
		}
		f, _ := settings.Lookup(key)
		writef(out, "%s = %s %s (use save to keep)\n", f.Key, settings.FormatValue(f, f.Get(c.cfg.Current())), f.Unit)
		return nil
	}

	now := c.clock.NowMs()
	switch strings.ToLower(word) {
	case "save":
		if err := c.cfg.Save(); err != nil {
			c.ev.Error(now, opSave, "Saving settings failed: %v", err)
			return err
		}
		c.ev.Success(now, opSave, "Settings saved")
		c.conn.Publish(c.conn.NewMessage(topics.SettingsChanged, types.SettingsChanged{Source: "console"}, false))
		writef(out, "settings saved\n")
	case "show":
		c.show(out)
	case "help", "?":
		c.help(out)
	case "factory":
		c.cfg.ResetToDefaults()
		c.ev.Warn(now, opFactory, "Factory settings restored")
		c.conn.Publish(c.conn.NewMessage(topics.SettingsChanged, types.SettingsChanged{Source: "console", Factory: true}, false))
		writef(out, "factory settings loaded, use save to keep them\n")
		c.show(out)
	case "restart":
		c.ev.Warn(now, opRestart, "Restart requested from console")
		c.conn.Publish(c.conn.NewMessage(topics.Restart, types.Restart{Source: "console"}, false))
		writef(out, "restarting\n")
	case "trigger":
		st, err := c.power.Trigger(ctx, "console")
		if err != nil {
			return err
		}
		c.status(out, st)
	case "off":
		st, err := c.power.ForceShutdown(ctx, "console")
		if err != nil {
			return err
		}
		c.status(out, st)
	case "status":
		st, err := c.power.Status(ctx)
		if err != nil {
			return err
		}
		c.status(out, st)
	case "logs":
		c.logs(out)
	default:
		return &errcode.E{C: errcode.UnknownCommand, Op: "console", Msg: word}
	}
	return nil
}

func (c *Console) show(out io.Writer) {
	cur := c.cfg.Current()
	writef(out, "settings:\n")
	for _, f := range settings.Fields {
		writef(out, "  %-10s %-26s %8s %-3s [%s..%s]\n", f.Key, f.Label,
			settings.FormatValue(f, f.Get(cur)), f.Unit,
			settings.FormatValue(f, f.Min), settings.FormatValue(f, f.Max))
	}
}

func (c *Console) help(out io.Writer) {
	writef(out, "commands (several per line):\n")
	for _, f := range settings.Fields {
		writef(out, "  %-22s %s [%s]\n", f.Key+"=<value>", f.Label, f.Unit)
	}
	writef(out, `  save                   write settings to storage
  show                   print current settings
  factory                load factory settings (use save to keep)
  trigger                start or extend like an audio signal
  off                    force shutdown
  status                 print power status
  logs                   print the event log
  restart                restart the controller
  help                   this list
`)
}

func (c *Console) status(out io.Writer, st types.PowerStatus) {
	writef(out, "%s (%s)", st.State, st.Category)
	if st.SecondsRemaining != nil {
		writef(out, " remaining %ds", *st.SecondsRemaining)
	}
	writef(out, ", audio %.3f V, battery %.2f V", st.AudioVolts, st.BatteryVolts)
	if st.TempC != nil {
		writef(out, ", temp %.1f °C", *st.TempC)
	}
	writef(out, ", fan %d/255, thermal %s\n", st.FanDuty, st.Thermal)
}

func (c *Console) logs(out io.Writer) {
	if c.ring == nil {
		writef(out, "%s: event log not kept\n", errcode.Unsupported)
		return
	}
	entries := c.ring.Dump().Logs
	if len(entries) == 0 {
		writef(out, "no events\n")
		return
	}
	for _, e := range entries {
		writef(out, "[%s] %s (%s): %s\n", e.Timestamp, e.Operation, e.Severity, e.Message)
	}
}
