package power

import (
	"ampctl-go/services/eventlog"
	"ampctl-go/services/settings"
	"ampctl-go/x/timex"
)

const (
	opAudio         = "AUDIO"
	opTrigger       = "TRIGGER"
	opTimeout       = "TIMEOUT"
	opForceShutdown = "FORCE SHUTDOWN"
	opBattery       = "BATTERY"
)

// ActivityState is owned by the control loop and passed to every Step.
type ActivityState struct {
	LastActivityAt timex.Ms
}

// Inputs is one tick's worth of sensed values and operator requests.
type Inputs struct {
	Now timex.Ms

	AudioPresent bool
	AudioLevel   float64
	BatteryOK    bool
	BatteryVolts float64
	TempC        float64
	TempOK       bool

	Trigger       bool
	ForceShutdown bool
	Source        string // who asked for Trigger/ForceShutdown
}

// Supervisor decides when the sequence starts and stops: activity starts
// it, the hold time without activity stops it, and force shutdown, low
// battery (when gated) and over-temperature override both.
type Supervisor struct {
	seq         *Sequencer
	cfg         settings.Reader
	thermal     *Thermal
	ev          eventlog.Emitter
	batteryGate bool

	audioWas bool
	refused  string // last logged refusal reason
}

// NewSupervisor accepts a nil thermal when the board has no fan or probe.
func NewSupervisor(seq *Sequencer, cfg settings.Reader, thermal *Thermal, log eventlog.Logger) *Supervisor {
	return &Supervisor{seq: seq, cfg: cfg, thermal: thermal, ev: eventlog.Emitter{L: log}}
}

// SetBatteryGate makes a low battery block startup and stop an active
// sequence.
func (v *Supervisor) SetBatteryGate(on bool) { v.batteryGate = on }
func (v *Supervisor) BatteryGate() bool      { return v.batteryGate }

func (v *Supervisor) ThermalMode() ThermalMode {
	if v.thermal == nil {
		return ThermalNormal
	}
	return v.thermal.Mode()
}

// Step runs one decision pass. Call Sequencer.Tick first in the same tick.
func (v *Supervisor) Step(act *ActivityState, in Inputs) {
	now := in.Now
	cfg := v.cfg.Current()
	running := v.seq.IsActive() && !v.seq.IsStopping()

	if in.AudioPresent && !v.audioWas {
		v.ev.Info(now, opAudio, "Audio detected (%.2f V)", in.AudioLevel)
	}
	v.audioWas = in.AudioPresent

	lowBattery := v.batteryGate && !in.BatteryOK
	if lowBattery && running {
		v.ev.Warn(now, opBattery, "Battery %.2f V below %.2f V, shutting down", in.BatteryVolts, cfg.MinBatteryVoltage)
		v.seq.ShutDown(now)
		running = false
	}

	if v.thermal != nil && v.thermal.Update(now, in.TempC, in.TempOK, v.seq.State().Energized || v.seq.IsStarting()) && running {
		v.seq.ShutDown(now)
		running = false
	}

	if in.AudioPresent || in.Trigger {
		act.LastActivityAt = now
		startable := v.seq.IsIdle() && !v.seq.State().Energized
		switch {
		case v.seq.IsStopping():
			if in.Trigger {
				v.ev.Info(now, opTrigger, "Ignored: shutdown in progress (%s)", in.Source)
			}
		case !startable:
			if in.Trigger {
				v.ev.Info(now, opTrigger, "Already active, hold time extended (%s)", in.Source)
			}
		case v.blockedBy(lowBattery) != "":
			reason := v.blockedBy(lowBattery)
			if in.Trigger || reason != v.refused {
				v.ev.Info(now, opStartup, "Refused: %s", reason)
			}
			v.refused = reason
		default:
			v.refused = ""
			if in.Trigger {
				v.ev.Info(now, opTrigger, "Manual trigger (%s)", in.Source)
			}
			v.seq.StartUp(now)
			running = true
		}
	}

	if idle := timex.Since(now, act.LastActivityAt) / 1000; running && idle >= cfg.HoldTimeSeconds {
		v.ev.Info(now, opTimeout, "No activity for %d s, shutting down", idle)
		v.seq.ShutDown(now)
	}

	if in.ForceShutdown {
		switch {
		case v.seq.IsStopping():
			v.ev.Info(now, opForceShutdown, "Ignored: already powering down (%s)", in.Source)
		case v.seq.IsActive():
			v.ev.Warn(now, opForceShutdown, "Forced shutdown (%s)", in.Source)
			v.seq.ShutDown(now)
		default:
			v.ev.Info(now, opForceShutdown, "Ignored: already inactive (%s)", in.Source)
		}
	}
}

func (v *Supervisor) blockedBy(lowBattery bool) string {
	switch {
	case lowBattery:
		return "battery low"
	case v.thermal != nil && v.thermal.Locked():
		return "cooling down"
	}
	return ""
}

// SecondsRemaining is the hold time left while the sequence is running.
// ok is false when nothing is running or it is already stopping.
func (v *Supervisor) SecondsRemaining(act ActivityState, now timex.Ms) (remaining uint32, ok bool) {
	if !v.seq.IsActive() || v.seq.IsStopping() {
		return 0, false
	}
	hold := v.cfg.Current().HoldTimeSeconds
	idle := timex.Since(now, act.LastActivityAt) / 1000
	if idle >= hold {
		return 0, true
	}
	return hold - idle, true
}
