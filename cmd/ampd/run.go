package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"ampctl-go/bus"
	"ampctl-go/services/config"
	"ampctl-go/services/console"
	"ampctl-go/services/eventlog"
	"ampctl-go/services/hal"
	"ampctl-go/services/heartbeat"
	"ampctl-go/services/power"
	"ampctl-go/services/settings"
	"ampctl-go/services/topics"
	"ampctl-go/services/web"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

var errRestart = errors.New("restart requested")

const opConfig = "CONFIG"

func runDaemon(ctx context.Context, g globalFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	// The readline front-end owns the terminal; logs go through it so the
	// prompt survives.
	var (
		rl     *console.Readline
		logOut io.Writer = os.Stderr
	)
	if cfg.Console.Mode == "readline" {
		if rl, err = console.NewReadline(cfg.Console.Prompt); err != nil {
			return err
		}
		logOut = rl.Stdout()
	}

	log := newLogger(logOut, cfg.Log)
	slog.SetDefault(log)
	clock := timex.NewMonoClock(0)

	b := bus.NewBus(16)
	config.NewConfigService(cfg, log).Start(ctx, b.NewConnection("config"))

	// Event log: ring for the UI, slog, console, optional archive.
	ring := eventlog.NewRing(cfg.EventLog.Capacity)
	sinks := eventlog.Multi{ring, eventlog.NewSlogSink(log)}
	var conSink *eventlog.ConsoleSink
	if cfg.Console.Mode != "off" {
		color.NoColor = color.NoColor || !cfg.EventLog.Color
		conSink = eventlog.NewConsoleSink(logOut)
		sinks = append(sinks, conSink)
	}
	if cfg.EventLog.ArchiveDir != "" {
		arch, err := eventlog.NewArchiveSink(cfg.EventLog.ArchiveDir, cfg.Board)
		if err != nil {
			return err
		}
		defer arch.Close()
		log.Info("event archive", "path", arch.Path(), "boot_id", arch.BootID())
		sinks = append(sinks, arch)
	}
	ev := eventlog.Emitter{L: sinks}

	// Settings.
	store, closeStore, err := openStore(cfg.Settings)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	cs := settings.NewConfigStore(store)
	if fixed, err := cs.Load(); err != nil {
		ev.Error(clock.NowMs(), opConfig, "Loading settings failed, defaults in use: %v", err)
	} else if len(fixed) > 0 {
		ev.Warn(clock.NowMs(), opConfig, "Defaults used for %s", strings.Join(fixed, ", "))
	} else {
		ev.Success(clock.NowMs(), opConfig, "Settings loaded")
	}

	board, err := hal.Open(cfg.HAL)
	if err != nil {
		return err
	}
	log.Info("board ready", "board", board.Name, "config", cfg.Board)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	spawn := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				log.Error("service failed", "service", name, "err", err)
			}
		}()
	}

	pwr := power.New(power.Options{
		Board:       board,
		Settings:    cs,
		Events:      sinks,
		Clock:       clock,
		Logger:      log,
		Tick:        time.Duration(cfg.Power.TickMs) * time.Millisecond,
		BatteryGate: cfg.Power.BatteryGate,
		WakeHoldMs:  cfg.Power.ButtonWakeMs,
		DebounceMs:  cfg.Power.ButtonDebounceMs,
		TempPollMs:  cfg.Power.TempPollMs,
	})
	pwrConn := b.NewConnection("power")
	spawn("power", func() error { pwr.Run(ctx, pwrConn); return nil })

	hb, hbConn := heartbeat.New(log, clock), b.NewConnection("heartbeat")
	spawn("heartbeat", func() error { hb.Run(ctx, hbConn); return nil })

	if in, out := consoleIO(cfg.Console, rl, board, log); in != nil {
		con := console.New(console.Options{
			Settings:    cs,
			Conn:        b.NewConnection("console"),
			Ring:        ring,
			Events:      sinks,
			Sink:        conSink,
			Clock:       clock,
			Logger:      log,
			IdleTimeout: time.Duration(cfg.Console.IdleTimeoutS) * time.Second,
		})
		spawn("console", func() error { return con.Run(ctx, in, out) })
	}

	if cfg.Web.Enabled {
		var adv web.Advertiser
		if cfg.Web.MDNS {
			adv = web.NewMDNS(cfg.Web.Instance, "board="+cfg.Board)
		}
		srv := web.New(web.Options{
			Addr:        cfg.Web.Addr,
			Settings:    cs,
			Conn:        b.NewConnection("web"),
			Status:      pwr,
			Ring:        ring,
			Events:      sinks,
			Clock:       clock,
			Logger:      log,
			Advertiser:  adv,
			IdleTimeout: time.Duration(cfg.Web.IdleTimeoutS) * time.Second,
		})
		spawn("web", func() error { return srv.Run(ctx) })
	}

	// Restart requests and settings notices.
	ctl := b.NewConnection("main")
	restart := ctl.Subscribe(topics.Restart)
	changed := ctl.Subscribe(topics.SettingsChanged)
	defer ctl.Disconnect()

	var result error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case m := <-changed.Channel():
			if sc, ok := m.Payload.(types.SettingsChanged); ok {
				log.Info("settings changed", "source", sc.Source, "factory", sc.Factory)
			}
		case m := <-restart.Channel():
			src := "bus"
			if r, ok := m.Payload.(types.Restart); ok {
				src = r.Source
			}
			log.Warn("restart requested", "source", src)
			result = errRestart
			break loop
		}
	}

	cancel()
	wg.Wait()
	log.Info("ampd stopped")
	return result
}

// consoleIO picks the console front-end. A nil reader disables the console.
func consoleIO(c types.ConsoleConfig, rl *console.Readline, board *hal.Board, log *slog.Logger) (console.LineReader, io.Writer) {
	switch c.Mode {
	case "readline":
		return rl, rl.Stdout()
	case "stdio":
		return console.NewLines(os.Stdin), os.Stdout
	case "uart":
		if board.Serial == nil {
			log.Warn("console.mode uart but the board has no serial port")
			return nil, nil
		}
		return console.NewLines(board.Serial), board.Serial
	}
	return nil, nil
}
