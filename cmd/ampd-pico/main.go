//go:build rp2040 || rp2350

// Command ampd-pico is the firmware build: power loop, UART console and
// heartbeat on an RP2 board. Settings live in RAM only.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"ampctl-go/bus"
	"ampctl-go/services/config"
	"ampctl-go/services/console"
	"ampctl-go/services/eventlog"
	"ampctl-go/services/hal"
	"ampctl-go/services/heartbeat"
	"ampctl-go/services/power"
	"ampctl-go/services/settings"
	"ampctl-go/services/topics"
	"ampctl-go/x/timex"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load("pico", "")
	if err != nil {
		log.Error("config", "err", err)
		halt()
	}
	board, err := hal.Open(cfg.HAL)
	if err != nil {
		log.Error("hal", "err", err)
		halt()
	}

	clock := timex.NewMonoClock(0)
	b := bus.NewBus(8)
	config.NewConfigService(cfg, log).Start(ctx, b.NewConnection("config"))

	ring := eventlog.NewRing(cfg.EventLog.Capacity)
	sink := eventlog.NewConsoleSink(board.Serial)
	events := eventlog.Multi{ring, eventlog.NewSlogSink(log), sink}

	cs := settings.NewConfigStore(nil)

	pwr := power.New(power.Options{
		Board:       board,
		Settings:    cs,
		Events:      events,
		Clock:       clock,
		Logger:      log,
		Tick:        time.Duration(cfg.Power.TickMs) * time.Millisecond,
		BatteryGate: cfg.Power.BatteryGate,
		WakeHoldMs:  cfg.Power.ButtonWakeMs,
		DebounceMs:  cfg.Power.ButtonDebounceMs,
		TempPollMs:  cfg.Power.TempPollMs,
	})
	pwr.Start(ctx, b.NewConnection("power"))
	heartbeat.New(log, clock).Start(ctx, b.NewConnection("heartbeat"))

	con := console.New(console.Options{
		Settings:    cs,
		Conn:        b.NewConnection("console"),
		Ring:        ring,
		Events:      events,
		Sink:        sink,
		Clock:       clock,
		Logger:      log,
		IdleTimeout: time.Duration(cfg.Console.IdleTimeoutS) * time.Second,
	})
	go func() {
		if err := con.Run(ctx, console.NewLines(board.Serial), board.Serial); err != nil {
			log.Error("console", "err", err)
		}
	}()

	// There is no process supervisor on the board; a restart request is
	// served by the watchdog.
	ctl := b.NewConnection("main")
	restart := ctl.Subscribe(topics.Restart)
	<-restart.Channel()
	log.Warn("restart requested")
	reset()
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
