package power

import "ampctl-go/x/timex"

const (
	// DefaultWakeHoldMs is how long the button must be held to re-arm the
	// console and web surfaces.
	DefaultWakeHoldMs = 3000
	// DefaultDebounceMs is how long a level must stay put to count.
	DefaultDebounceMs = 30
)

// ButtonTracker turns sampled button levels into a click (on the debounced
// press edge) and a long press (once per hold).
type ButtonTracker struct {
	holdMs     uint32
	debounceMs uint32

	raw      bool
	rawSince timex.Ms

	down      bool
	since     timex.Ms
	longFired bool
}

// NewButtonTracker uses the defaults for zero holdMs or debounceMs.
func NewButtonTracker(holdMs, debounceMs uint32) *ButtonTracker {
	if holdMs == 0 {
		holdMs = DefaultWakeHoldMs
	}
	if debounceMs == 0 {
		debounceMs = DefaultDebounceMs
	}
	return &ButtonTracker{holdMs: holdMs, debounceMs: debounceMs}
}

func (b *ButtonTracker) Update(now timex.Ms, pressed bool) (click, long bool) {
	if pressed != b.raw {
		b.raw, b.rawSince = pressed, now
	}
	if b.raw != b.down {
		if timex.Since(now, b.rawSince) < b.debounceMs {
			return false, false
		}
		b.down = b.raw
		if b.down {
			b.since, b.longFired = now, false
			return true, false
		}
		return false, false
	}
	if b.down && !b.longFired && timex.Since(now, b.since) >= b.holdMs {
		b.longFired = true
		return false, true
	}
	return false, false
}
