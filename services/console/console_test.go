package console

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ampctl-go/bus"
	"ampctl-go/errcode"
	"ampctl-go/services/eventlog"
	"ampctl-go/services/hal"
	"ampctl-go/services/power"
	"ampctl-go/services/settings"
	"ampctl-go/services/topics"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type fixture struct {
	con   *Console
	cfg   *settings.ConfigStore
	store *settings.MemStore
	ring  *eventlog.Ring
	sink  *eventlog.ConsoleSink
	bus   *bus.Bus
	conn  *bus.Connection
}

func newFixture(t *testing.T, idle time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		store: &settings.MemStore{},
		ring:  eventlog.NewRing(eventlog.DefaultCapacity),
		sink:  eventlog.NewConsoleSink(io.Discard),
		bus:   bus.NewBus(16),
	}
	f.cfg = settings.NewConfigStore(f.store)
	f.conn = f.bus.NewConnection("console")
	f.con = New(Options{
		Settings:    f.cfg,
		Conn:        f.conn,
		Ring:        f.ring,
		Events:      f.ring,
		Sink:        f.sink,
		Clock:       timex.NewMonoClock(0),
		IdleTimeout: idle,
		Timeout:     500 * time.Millisecond,
	})
	return f
}

func (f *fixture) exec(t *testing.T, line string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := f.con.Exec(context.Background(), &out, line)
	return out.String(), err
}

// startPower runs a power loop on a simulated board behind the fixture's bus.
func (f *fixture) startPower(t *testing.T) {
	t.Helper()
	board, _ := hal.OpenSim(hal.DefaultConfig())
	svc := power.New(power.Options{Board: board, Settings: f.cfg, Events: f.ring})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Start(ctx, f.bus.NewConnection("power"))
}

func TestExec_SettersChangeMemoryOnly(t *testing.T) {
	f := newFixture(t, 0)
	out, err := f.exec(t, "hold=45 audio=0.5 delay=1500")
	require.NoError(t, err)
	assert.Contains(t, out, "hold = 45 s")

	cur := f.cfg.Current()
	assert.Equal(t, uint32(45), cur.HoldTimeSeconds)
	assert.Equal(t, 0.5, cur.AudioThreshold)
	assert.Equal(t, uint32(1500), cur.RelaySwitchDelayMs)

	saved, _ := f.store.Load()
	assert.Nil(t, saved, "nothing persisted before save")
}

func TestExec_Errors(t *testing.T) {
	f := newFixture(t, 0)

	out, err := f.exec(t, "hold=4")
	assert.Equal(t, errcode.OutOfRange, errcode.Of(err))
	assert.Contains(t, out, "out_of_range")
	assert.Equal(t, uint32(30), f.cfg.Current().HoldTimeSeconds)

	_, err = f.exec(t, "battery=abc")
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))

	out, err = f.exec(t, "frobnicate hold=40")
	assert.Equal(t, errcode.UnknownCommand, errcode.Of(err))
	assert.Contains(t, out, "unknown_command")
	assert.Equal(t, uint32(40), f.cfg.Current().HoldTimeSeconds, "later commands still run")

	_, err = f.exec(t, `hold="30`)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestExec_QuotedAndCaseInsensitive(t *testing.T) {
	f := newFixture(t, 0)
	out, err := f.exec(t, `"HOLD=50" 'Show'`)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), f.cfg.Current().HoldTimeSeconds)
	assert.Contains(t, out, "settings:")
}

func TestExec_SaveAndFactory(t *testing.T) {
	f := newFixture(t, 0)
	changed := f.conn.Subscribe(topics.SettingsChanged)

	_, err := f.exec(t, "hold=90 save")
	require.NoError(t, err)
	saved, err := f.store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 90.0, *saved.HoldTimeSeconds)
	assert.Equal(t, "SAVE", f.ring.Records()[0].Operation)
	assert.Equal(t, types.SeveritySuccess, f.ring.Records()[0].Severity)

	select {
	case m := <-changed.Channel():
		assert.Equal(t, types.SettingsChanged{Source: "console"}, m.Payload)
	case <-time.After(time.Second):
		t.Fatal("no settings/changed")
	}

	_, err = f.exec(t, "factory")
	require.NoError(t, err)
	cur := f.cfg.Current()
	assert.Equal(t, uint32(60), cur.HoldTimeSeconds)
	assert.Equal(t, 12.0, cur.MinBatteryVoltage)
	assert.Equal(t, types.SeverityWarning, f.ring.Records()[0].Severity)

	saved, _ = f.store.Load()
	assert.Equal(t, 90.0, *saved.HoldTimeSeconds, "factory does not save")
}

func TestExec_Restart(t *testing.T) {
	f := newFixture(t, 0)
	sub := f.conn.Subscribe(topics.Restart)
	_, err := f.exec(t, "restart")
	require.NoError(t, err)
	select {
	case m := <-sub.Channel():
		assert.Equal(t, types.Restart{Source: "console"}, m.Payload)
	case <-time.After(time.Second):
		t.Fatal("no system/restart")
	}
}

func TestExec_PowerCommands(t *testing.T) {
	f := newFixture(t, 0)
	f.startPower(t)

	out, err := f.exec(t, "trigger")
	require.NoError(t, err)
	assert.Contains(t, out, "STARTING (info)")

	out, err = f.exec(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "STARTING")

	out, err = f.exec(t, "off")
	require.NoError(t, err)
	assert.Contains(t, out, "STOPPING (warning)")

	out, err = f.exec(t, "logs")
	require.NoError(t, err)
	assert.Contains(t, out, "STARTUP")
}

func TestExec_PowerWithoutLoopTimesOut(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.exec(t, "status")
	assert.Equal(t, errcode.Timeout, errcode.Of(err))
}

func TestRun_IdleTimeoutAndWake(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	pr, pw := io.Pipe()
	var out syncBuffer

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.con.Run(ctx, NewLines(pr), &out) }()

	_, err := io.WriteString(pw, "hold=40\r\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.cfg.Current().HoldTimeSeconds == 40 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return !f.sink.Enabled() }, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "console idle")

	// The second write only returns once the first line reached the loop.
	_, err = io.WriteString(pw, "hold=50\n")
	require.NoError(t, err)
	_, err = io.WriteString(pw, "\n")
	require.NoError(t, err)

	f.conn.Publish(f.conn.NewMessage(topics.Wake, types.Wake{Source: "button"}, false))
	require.Eventually(t, f.sink.Enabled, time.Second, 5*time.Millisecond)

	_, err = io.WriteString(pw, "hold=55\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.cfg.Current().HoldTimeSeconds == 55 }, time.Second, 5*time.Millisecond)
	assert.NotContains(t, out.String(), "hold = 50")

	cancel()
	pw.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRun_EOFEnds(t *testing.T) {
	f := newFixture(t, 0)
	err := f.con.Run(context.Background(), NewLines(bytes.NewBufferString("hold=35\n")), io.Discard)
	assert.NoError(t, err)
	assert.Equal(t, uint32(35), f.cfg.Current().HoldTimeSeconds)
}

func TestLines_CRLF(t *testing.T) {
	l := NewLines(bytes.NewBufferString("a\r\nb\rc"))
	var got []string
	for {
		s, err := l.ReadLine()
		if err != nil {
			assert.Equal(t, io.EOF, err)
			break
		}
		got = append(got, s)
	}
	assert.Equal(t, []string{"a", "", "b", "c"}, got)
}
