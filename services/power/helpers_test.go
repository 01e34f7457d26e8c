package power

import (
	"sync/atomic"

	"ampctl-go/services/eventlog"
	"ampctl-go/services/settings"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

type fixedSettings struct{ s settings.Settings }

func (f *fixedSettings) Current() settings.Settings { return f.s }

func newSettings(mut ...func(*settings.Settings)) *fixedSettings {
	s := settings.Defaults()
	for _, m := range mut {
		m(&s)
	}
	return &fixedSettings{s: s}
}

// edge is one observed output change.
type edge struct {
	at   timex.Ms
	name string
	on   bool
}

type recorder struct {
	now   timex.Ms
	edges []edge
}

type recPin struct {
	r     *recorder
	name  string
	level bool
}

func (p *recPin) Set(on bool) {
	if on != p.level {
		p.r.edges = append(p.r.edges, edge{p.r.now, p.name, on})
	}
	p.level = on
}

func (p *recPin) Get() bool { return p.level }

type rig struct {
	rec     *recorder
	supply  *recPin
	speaker *recPin
	cfg     *fixedSettings
	events  *eventlog.Ring
	seq     *Sequencer
}

func newRig(mut ...func(*settings.Settings)) *rig {
	r := &rig{rec: &recorder{}, cfg: newSettings(mut...), events: eventlog.NewRing(64)}
	r.supply = &recPin{r: r.rec, name: "supply"}
	r.speaker = &recPin{r: r.rec, name: "speaker"}
	r.seq = NewSequencer(r.supply, r.speaker, r.cfg, r.events)
	return r
}

func (r *rig) at(t timex.Ms) timex.Ms { r.rec.now = t; return t }

func (r *rig) tick(t timex.Ms) { r.seq.Tick(r.at(t)) }

// count returns how many events carry sev and op.
func (r *rig) count(sev types.Severity, op string) int {
	n := 0
	for _, e := range r.events.Records() {
		if e.Severity == sev && e.Operation == op {
			n++
		}
	}
	return n
}

type fakeClock struct{ now atomic.Uint32 }

func (c *fakeClock) NowMs() timex.Ms   { return timex.Ms(c.now.Load()) }
func (c *fakeClock) set(ms uint32)     { c.now.Store(ms) }
func (c *fakeClock) advance(ms uint32) { c.now.Add(ms) }
