package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"ampctl-go/bus"
	"ampctl-go/services/topics"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

const defaultInterval = 60 * time.Second

type Service struct {
	log      *slog.Logger
	clock    timex.Clock
	interval time.Duration

	status    types.PowerStatus
	hasStatus bool
}

func New(log *slog.Logger, clock timex.Clock) *Service {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = timex.NewMonoClock(0)
	}
	return &Service{log: log.With("service", "heartbeat"), clock: clock, interval: defaultInterval}
}

// Run logs a heartbeat every interval until ctx is done.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topics.Config("heartbeat"))
	defer conn.Unsubscribe(cfgSub)
	stSub := conn.Subscribe(topics.PowerStatus)
	defer conn.Unsubscribe(stSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat service stopping")
			return
		case <-tick.C:
			s.beat()
		case msg, ok := <-stSub.Channel():
			if !ok {
				return
			}
			if st, ok := msg.Payload.(types.PowerStatus); ok {
				s.status, s.hasStatus = st, true
			}
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			if s.apply(msg.Payload) {
				tick.Reset(s.interval)
			}
		}
	}
}

// apply reports whether the interval changed.
func (s *Service) apply(payload any) bool {
	hc, ok := payload.(types.HeartbeatConfig)
	if !ok || hc.IntervalS == 0 {
		s.log.Warn("ignoring heartbeat config", "payload", payload)
		return false
	}
	iv := time.Duration(hc.IntervalS) * time.Second
	if iv == s.interval {
		return false
	}
	s.interval = iv
	s.log.Info("heartbeat interval set", "interval", iv)
	return true
}

func (s *Service) beat() {
	attrs := []any{"uptime", time.Duration(s.clock.NowMs()) * time.Millisecond}
	if s.hasStatus {
		attrs = append(attrs, "state", s.status.State, "battery_v", s.status.BatteryVolts, "thermal", s.status.Thermal)
		if s.status.SecondsRemaining != nil {
			attrs = append(attrs, "remaining_s", *s.status.SecondsRemaining)
		}
		if s.status.TempC != nil {
			attrs = append(attrs, "temp_c", *s.status.TempC)
		}
	}
	s.log.Info("heartbeat", attrs...)
}

// Start runs the service on its own goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.Run(ctx, conn)
}
