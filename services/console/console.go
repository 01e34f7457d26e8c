// Package console is the line-oriented maintenance surface: settings
// edits, power commands and the event log over a TTY or a UART.
package console

import (
	"context"
	"io"
	"log/slog"
	"time"

	"ampctl-go/bus"
	"ampctl-go/services/eventlog"
	"ampctl-go/services/power"
	"ampctl-go/services/settings"
	"ampctl-go/services/topics"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

const DefaultIdleTimeout = 2 * time.Minute

type Options struct {
	Settings *settings.ConfigStore
	Conn     *bus.Connection
	Ring     *eventlog.Ring  // source of the logs command; may be nil
	Events   eventlog.Logger // destination of SAVE/FACTORY/RESTART records
	Sink     *eventlog.ConsoleSink
	Clock    timex.Clock
	Logger   *slog.Logger

	// IdleTimeout closes the session after that long without input.
	// Zero keeps the session open; negative selects the default.
	IdleTimeout time.Duration
	Timeout     time.Duration // power request round trip
}

type Console struct {
	cfg   *settings.ConfigStore
	conn  *bus.Connection
	ring  *eventlog.Ring
	ev    eventlog.Emitter
	sink  *eventlog.ConsoleSink
	clock timex.Clock
	log   *slog.Logger
	power *power.Client
	idle  time.Duration

	active bool
}

func New(o Options) *Console {
	if o.Events == nil {
		o.Events = eventlog.NoopLogger{}
	}
	if o.Clock == nil {
		o.Clock = timex.NewMonoClock(0)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.IdleTimeout < 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	return &Console{
		cfg:    o.Settings,
		conn:   o.Conn,
		ring:   o.Ring,
		ev:     eventlog.Emitter{L: o.Events},
		sink:   o.Sink,
		clock:  o.Clock,
		log:    o.Logger.With("service", "console"),
		power:  power.NewClient(o.Conn, o.Timeout),
		idle:   o.IdleTimeout,
		active: true,
	}
}

// LineReader is a console front-end.
type LineReader interface {
	ReadLine() (string, error)
	Close() error
}

// Run serves in until ctx is done or in fails. Lines that arrive while the
// session is closed are dropped; a message on system/wake reopens it.
func (c *Console) Run(ctx context.Context, in LineReader, out io.Writer) error {
	wake := c.conn.Subscribe(topics.Wake)
	defer c.conn.Unsubscribe(wake)

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		for {
			l, err := in.ReadLine()
			if err != nil {
				errc <- err
				return
			}
			select {
			case lines <- l:
			case <-ctx.Done():
				return
			}
		}
	}()
	defer in.Close()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	c.open(out, "boot")
	c.arm(timer)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if err == io.EOF {
				c.log.Info("console input closed")
				return nil
			}
			return err
		case l := <-lines:
			if !c.active {
				continue
			}
			_ = c.Exec(ctx, out, l)
			c.arm(timer)
		case m, ok := <-wake.Channel():
			if !ok {
				return nil
			}
			src := "bus"
			if w, ok := m.Payload.(types.Wake); ok {
				src = w.Source
			}
			if !c.active {
				c.open(out, src)
			}
			c.arm(timer)
		case <-timer.C:
			c.close(out)
		}
	}
}

// Active reports whether the session accepts input.
func (c *Console) Active() bool { return c.active }

func (c *Console) arm(t *time.Timer) {
	if c.idle <= 0 {
		return
	}
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(c.idle)
}

func (c *Console) open(out io.Writer, source string) {
	c.active = true
	if c.sink != nil {
		c.sink.SetEnabled(true)
	}
	c.log.Info("console session opened", "source", source)
	c.help(out)
}

func (c *Console) close(out io.Writer) {
	if !c.active {
		return
	}
	c.active = false
	if c.sink != nil {
		c.sink.SetEnabled(false)
	}
	writef(out, "console idle, hold the button to wake\n")
	c.log.Info("console session closed", "idle", c.idle)
}
