package power

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"ampctl-go/bus"
	"ampctl-go/errcode"
	"ampctl-go/services/eventlog"
	"ampctl-go/services/hal"
	"ampctl-go/services/sensor"
	"ampctl-go/services/settings"
	"ampctl-go/services/topics"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

const (
	DefaultTick = 20 * time.Millisecond
	maxTick     = 100 * time.Millisecond

	// publishEvery bounds how stale the retained status may get while
	// nothing but the readings changes.
	publishEvery = 1000

	opButton  = "BUTTON"
	opCommand = "COMMAND"
)

type Options struct {
	Board       *hal.Board
	Settings    settings.Reader
	Events      eventlog.Logger
	Clock       timex.Clock
	Logger      *slog.Logger
	Tick        time.Duration
	BatteryGate bool
	WakeHoldMs  uint32
	DebounceMs  uint32
	TempPollMs  uint32
}

// Service owns the sequencer and activity state. Every relay write happens
// on its loop goroutine; other actors send power/cmd/<verb> requests.
type Service struct {
	log    *slog.Logger
	ev     eventlog.Emitter
	clock  timex.Clock
	cfg    settings.Reader
	tick   time.Duration
	board  *hal.Board
	seq    *Sequencer
	sup    *Supervisor
	sensor *sensor.Activity
	probe  *sensor.Probe
	button *ButtonTracker

	act ActivityState

	snap        atomic.Pointer[types.PowerStatus]
	published   types.PowerStatus
	publishedAt timex.Ms
	hasPub      bool
}

func New(o Options) *Service {
	if o.Events == nil {
		o.Events = eventlog.NoopLogger{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = timex.NewMonoClock(0)
	}
	s := &Service{
		log:    o.Logger.With("service", "power"),
		ev:     eventlog.Emitter{L: o.Events},
		clock:  o.Clock,
		cfg:    o.Settings,
		tick:   clampTick(o.Tick),
		board:  o.Board,
		sensor: sensor.NewActivity(o.Board.Audio, o.Board.Battery),
	}
	s.seq = NewSequencer(o.Board.Supply, o.Board.Speaker, o.Settings, o.Events)

	var th *Thermal
	if o.Board.Fan != nil && o.Board.I2C != nil {
		th = NewThermal(o.Board.Fan, o.Settings, o.Events)
		s.probe = sensor.NewProbe(o.Board.I2C, o.Board.TempAddr, o.TempPollMs)
	}
	s.sup = NewSupervisor(s.seq, o.Settings, th, o.Events)
	s.sup.SetBatteryGate(o.BatteryGate)

	if o.Board.Button != nil {
		s.button = NewButtonTracker(o.WakeHoldMs, o.DebounceMs)
	}
	st := s.status(s.clock.NowMs())
	s.snap.Store(&st)
	return s
}

func clampTick(d time.Duration) time.Duration {
	if d <= 0 || d >= maxTick {
		return DefaultTick
	}
	return d
}

// Status returns the latest snapshot. Safe from any goroutine.
func (s *Service) Status() types.PowerStatus { return *s.snap.Load() }

// Start subscribes and runs the loop in a goroutine. Requests published
// after Start returns are not lost.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	cmdSub, cfgSub := s.subscribe(conn)
	go s.loop(ctx, conn, cmdSub, cfgSub)
}

// Run blocks until ctx is done.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	cmdSub, cfgSub := s.subscribe(conn)
	s.loop(ctx, conn, cmdSub, cfgSub)
}

func (s *Service) subscribe(conn *bus.Connection) (cmd, cfg *bus.Subscription) {
	return conn.Subscribe(topics.PowerCmd.Append(bus.WildOne)), conn.Subscribe(topics.Config("power"))
}

func (s *Service) loop(ctx context.Context, conn *bus.Connection, cmdSub, cfgSub *bus.Subscription) {
	defer conn.Unsubscribe(cmdSub)
	defer conn.Unsubscribe(cfgSub)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.log.Info("power loop started", "tick", s.tick, "battery_gate", s.sup.BatteryGate())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("power loop stopping")
			return
		case <-ticker.C:
			s.step(conn)
		case msg, ok := <-cmdSub.Channel():
			if !ok {
				return
			}
			s.handle(conn, msg)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			if pc, ok := msg.Payload.(types.PowerConfig); ok {
				s.sup.SetBatteryGate(pc.BatteryGate)
				if t := clampTick(time.Duration(pc.TickMs) * time.Millisecond); pc.TickMs != 0 && t != s.tick {
					s.tick = t
					ticker.Reset(t)
				}
				s.log.Info("power config applied", "tick", s.tick, "battery_gate", pc.BatteryGate)
			}
		}
	}
}

// step samples the hardware and advances the sequence once.
func (s *Service) step(conn *bus.Connection) {
	now := s.clock.NowMs()
	s.sensor.Sample()
	if s.probe != nil {
		s.probe.Poll(now)
	}
	in := s.inputs(now)
	if s.button != nil {
		click, long := s.button.Update(now, s.board.Button.Pressed())
		if click {
			in.Trigger, in.Source = true, "button"
		}
		if long {
			s.ev.Info(now, opButton, "Long press, console and web re-enabled")
			conn.Publish(conn.NewMessage(topics.Wake, types.Wake{Source: "button"}, false))
		}
	}
	s.advance(in)
	s.publish(conn, now, false)
}

// inputs reads the filtered sensor state; no hardware access.
func (s *Service) inputs(now timex.Ms) Inputs {
	cfg := s.cfg.Current()
	in := Inputs{
		Now:          now,
		AudioPresent: s.sensor.AudioPresent(cfg.AudioThreshold),
		AudioLevel:   s.sensor.AudioLevel(),
		BatteryOK:    s.sensor.BatteryOK(cfg.MinBatteryVoltage),
		BatteryVolts: s.sensor.BatteryVolts(),
	}
	if s.probe != nil {
		in.TempC, in.TempOK = s.probe.Celsius()
	}
	return in
}

func (s *Service) advance(in Inputs) {
	s.seq.Tick(in.Now)
	s.sup.Step(&s.act, in)
}

func (s *Service) handle(conn *bus.Connection, msg *bus.Message) {
	now := s.clock.NowMs()
	verb := types.PowerVerb(msg.Topic.Last())
	src := "bus"
	if c, ok := msg.Payload.(types.PowerCommand); ok && c.Source != "" {
		src = c.Source
	}

	in := s.inputs(now)
	in.Source = src
	switch verb {
	case types.VerbTrigger:
		in.Trigger = true
	case types.VerbForceShutdown:
		in.ForceShutdown = true
	case types.VerbStatus:
	default:
		s.ev.Info(now, opCommand, "Unknown power command %q (%s)", string(verb), src)
		conn.Reply(msg, types.PowerReply{Code: string(errcode.UnknownCommand), Status: s.Status()}, false)
		return
	}
	if verb != types.VerbStatus {
		s.advance(in)
	}
	st := s.publish(conn, now, verb != types.VerbStatus)
	conn.Reply(msg, types.PowerReply{OK: true, Status: st}, false)
}

// publish refreshes the snapshot and republishes power/status when the
// state changed or the last copy is stale.
func (s *Service) publish(conn *bus.Connection, now timex.Ms, force bool) types.PowerStatus {
	st := s.status(now)
	s.snap.Store(&st)
	if force || !s.hasPub || changed(s.published, st) || timex.Since(now, s.publishedAt) >= publishEvery {
		conn.Publish(conn.NewMessage(topics.PowerStatus, st, true))
		s.published, s.publishedAt, s.hasPub = st, now, true
	}
	return st
}

func changed(a, b types.PowerStatus) bool {
	return a.Energized != b.Energized || a.Active != b.Active || a.State != b.State ||
		a.Thermal != b.Thermal || a.FanDuty != b.FanDuty ||
		a.AudioPresent != b.AudioPresent || a.BatteryOK != b.BatteryOK ||
		remaining(a) != remaining(b)
}

func remaining(p types.PowerStatus) int64 {
	if p.SecondsRemaining == nil {
		return -1
	}
	return int64(*p.SecondsRemaining)
}

func (s *Service) status(now timex.Ms) types.PowerStatus {
	cfg := s.cfg.Current()
	lbl := s.seq.Label()
	st := types.PowerStatus{
		Energized:    s.seq.State().Energized,
		Active:       s.seq.IsActive(),
		State:        lbl.Text,
		Category:     lbl.Category,
		HoldSeconds:  cfg.HoldTimeSeconds,
		AudioVolts:   s.sensor.AudioLevel(),
		AudioPresent: s.sensor.AudioPresent(cfg.AudioThreshold),
		BatteryVolts: s.sensor.BatteryVolts(),
		BatteryOK:    s.sensor.BatteryOK(cfg.MinBatteryVoltage),
		Thermal:      s.sup.ThermalMode().String(),
		UptimeMs:     uint32(now),
	}
	if s.board.Fan != nil {
		st.FanDuty = s.board.Fan.Duty()
	}
	if r, ok := s.sup.SecondsRemaining(s.act, now); ok {
		st.SecondsRemaining = &r
	}
	if s.probe != nil {
		if t, ok := s.probe.Celsius(); ok {
			st.TempC = &t
		}
	}
	return st
}
