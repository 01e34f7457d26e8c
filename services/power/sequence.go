// Package power runs the amplifier power sequence: a supply relay and a
// speaker relay switched in a strict, delayed order, an idle-timeout
// supervisor that decides when to start and stop, thermal protection and
// the bus service that owns them all on one goroutine.
package power

import (
	"strconv"

	"ampctl-go/services/eventlog"
	"ampctl-go/services/hal"
	"ampctl-go/services/settings"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

// Event operations.
const (
	opStartup  = "STARTUP"
	opShutdown = "SHUTDOWN"
	opSequence = "SEQUENCE"
)

// Phase of the relay sequence.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhasePoweringUp
	PhasePoweringDown
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePoweringUp:
		return "powering_up"
	case PhasePoweringDown:
		return "powering_down"
	}
	return "invalid(" + strconv.Itoa(int(p)) + ")"
}

func (p Phase) valid() bool { return p <= PhasePoweringDown }

// State is the complete sequencer state.
type State struct {
	Phase     Phase
	Energized bool // supply and speaker both on
	StartedAt timex.Ms
}

// Label is the display form of a state.
type Label struct {
	Text     string
	Category types.Severity
}

var (
	labelStarting = Label{types.StateStarting, types.SeverityInfo}
	labelStopping = Label{types.StateStopping, types.SeverityWarning}
	labelActive   = Label{types.StateActive, types.SeveritySuccess}
	labelOff      = Label{types.StateOff, types.SeverityWarning}
)

// Sequencer switches the supply relay, then the speaker relay after the
// configured delay; shutdown runs the reverse order. It never blocks:
// StartUp and ShutDown record the request and Tick completes it once the
// delay has elapsed. Not safe for concurrent use; the power service calls
// it from one goroutine.
type Sequencer struct {
	supply  hal.Output
	speaker hal.Output
	cfg     settings.Reader
	ev      eventlog.Emitter
	st      State
}

// NewSequencer drives both outputs off.
func NewSequencer(supply, speaker hal.Output, cfg settings.Reader, log eventlog.Logger) *Sequencer {
	speaker.Set(false)
	supply.Set(false)
	return &Sequencer{supply: supply, speaker: speaker, cfg: cfg, ev: eventlog.Emitter{L: log}}
}

// StartUp energizes the supply and starts the delay. It reports whether the
// request was accepted; from any state but idle-and-off it is a logged no-op.
func (s *Sequencer) StartUp(now timex.Ms) bool {
	s.sanitize(now)
	switch {
	case s.st.Phase == PhasePoweringUp:
		s.ev.Info(now, opStartup, "Ignored: already powering up")
		return false
	case s.st.Phase == PhasePoweringDown:
		s.ev.Info(now, opStartup, "Ignored: shutdown in progress")
		return false
	case s.st.Energized:
		s.ev.Info(now, opStartup, "Ignored: already active")
		return false
	}
	s.supply.Set(true)
	s.st = State{Phase: PhasePoweringUp, StartedAt: now}
	s.ev.Info(now, opStartup, "Supply relay on, speaker in %d ms", s.cfg.Current().RelaySwitchDelayMs)
	return true
}

// ShutDown turns the speaker off (if it was on) and starts the delay before
// the supply goes off. Valid while energized or powering up; otherwise a
// logged no-op. From PoweringUp the delay restarts from now.
func (s *Sequencer) ShutDown(now timex.Ms) bool {
	s.sanitize(now)
	switch {
	case s.st.Phase == PhasePoweringDown:
		s.ev.Info(now, opShutdown, "Ignored: already powering down")
		return false
	case s.st.Phase == PhaseIdle && !s.st.Energized:
		s.ev.Info(now, opShutdown, "Ignored: already off")
		return false
	}
	delay := s.cfg.Current().RelaySwitchDelayMs
	if s.st.Energized {
		s.speaker.Set(false)
		s.ev.Info(now, opShutdown, "Speaker relay off, supply in %d ms", delay)
	} else {
		s.ev.Info(now, opShutdown, "Startup aborted, supply off in %d ms", delay)
	}
	s.st.Phase = PhasePoweringDown
	s.st.StartedAt = now
	return true
}

// Tick completes a pending transition once the relay delay has elapsed.
// The delay is read on every call.
func (s *Sequencer) Tick(now timex.Ms) {
	s.sanitize(now)
	switch s.st.Phase {
	case PhaseIdle:
	case PhasePoweringUp:
		if timex.Since(now, s.st.StartedAt) < s.cfg.Current().RelaySwitchDelayMs {
			return
		}
		s.speaker.Set(true)
		s.st.Energized = true
		s.st.Phase = PhaseIdle
		s.ev.Success(now, opSequence, "Speaker relay on, amplifier active")
	case PhasePoweringDown:
		if timex.Since(now, s.st.StartedAt) < s.cfg.Current().RelaySwitchDelayMs {
			return
		}
		s.supply.Set(false)
		s.st.Energized = false
		s.st.Phase = PhaseIdle
		s.ev.Success(now, opSequence, "Supply relay off, amplifier off")
	}
}

// sanitize resets an unknown phase to Idle. Unreachable unless the state was
// corrupted.
func (s *Sequencer) sanitize(now timex.Ms) {
	if s.st.Phase.valid() {
		return
	}
	s.ev.Warn(now, opSequence, "Unknown sequence state %s, reset to idle", s.st.Phase)
	s.st.Phase = PhaseIdle
}

func (s *Sequencer) State() State { return s.st }

// IsActive reports energized or powering up.
func (s *Sequencer) IsActive() bool {
	return s.st.Energized || s.st.Phase == PhasePoweringUp
}

// IsIdle treats an unknown phase as idle, as the next call will.
func (s *Sequencer) IsIdle() bool     { return s.st.Phase == PhaseIdle || !s.st.Phase.valid() }
func (s *Sequencer) IsStarting() bool { return s.st.Phase == PhasePoweringUp }
func (s *Sequencer) IsStopping() bool { return s.st.Phase == PhasePoweringDown }

func (s *Sequencer) Label() Label {
	switch s.st.Phase {
	case PhasePoweringUp:
		return labelStarting
	case PhasePoweringDown:
		return labelStopping
	case PhaseIdle:
		if s.st.Energized {
			return labelActive
		}
		return labelOff
	}
	return labelOff
}
