// Package web serves the status page API and accepts settings edits and
// power commands over HTTP. The listener stops after a period without
// requests and comes back on system/wake.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"ampctl-go/bus"
	"ampctl-go/services/eventlog"
	"ampctl-go/services/power"
	"ampctl-go/services/settings"
	"ampctl-go/services/topics"
	"ampctl-go/types"
	"ampctl-go/x/timex"
)

const (
	DefaultIdleTimeout = 2 * time.Minute
	shutdownGrace      = 2 * time.Second
)

// StatusSource yields the power snapshot without a bus round trip.
type StatusSource interface {
	Status() types.PowerStatus
}

type Options struct {
	Addr       string
	Settings   *settings.ConfigStore
	Conn       *bus.Connection
	Status     StatusSource
	Ring       *eventlog.Ring
	Events     eventlog.Logger
	Clock      timex.Clock
	Logger     *slog.Logger
	Advertiser Advertiser // nil disables mDNS

	// IdleTimeout stops the listener after that long without requests.
	// Zero keeps it up; negative selects the default.
	IdleTimeout time.Duration
	Timeout     time.Duration // power request round trip
}

type Server struct {
	addr   string
	cfg    *settings.ConfigStore
	conn   *bus.Connection
	status StatusSource
	ring   *eventlog.Ring
	ev     eventlog.Emitter
	clock  timex.Clock
	log    *slog.Logger
	adv    Advertiser
	power  *power.Client
	idle   time.Duration
	engine *gin.Engine

	lastReq atomic.Uint32 // timex.Ms of the latest request

	mu    sync.Mutex
	bound net.Addr
}

func New(o Options) *Server {
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
	s := &Server{
		addr:   o.Addr,
		cfg:    o.Settings,
		conn:   o.Conn,
		status: o.Status,
		ring:   o.Ring,
		ev:     eventlog.Emitter{L: o.Events},
		clock:  o.Clock,
		log:    o.Logger.With("service", "web"),
		adv:    o.Advertiser,
		power:  power.NewClient(o.Conn, o.Timeout),
		idle:   o.IdleTimeout,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr is the bound listener address, nil while the listener is down.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

func (s *Server) setBound(a net.Addr) {
	s.mu.Lock()
	s.bound = a
	s.mu.Unlock()
}

func (s *Server) touch() { s.lastReq.Store(uint32(s.clock.NowMs())) }

// Run serves until ctx is done. Each idle period closes the listener and
// the mDNS advertisement; a system/wake message reopens both.
func (s *Server) Run(ctx context.Context) error {
	wake := s.conn.Subscribe(topics.Wake)
	defer s.conn.Unsubscribe(wake)

	for {
		ln, err := net.Listen("tcp", s.addr)
		if err != nil {
			return err
		}
		srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
		errc := make(chan error, 1)
		go func() { errc <- srv.Serve(ln) }()
		s.setBound(ln.Addr())
		s.touch()
		s.log.Info("web listening", "addr", ln.Addr().String())

		if s.adv != nil {
			if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
				if err := s.adv.Advertise(tcp.Port); err != nil {
					s.log.Warn("mdns advertise failed", "err", err)
				}
			}
		}

		serveErr := s.waitIdle(ctx, errc, wake)

		if s.adv != nil {
			s.adv.Stop()
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		_ = srv.Shutdown(sctx)
		cancel()
		s.setBound(nil)

		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		if ctx.Err() != nil {
			s.log.Info("web stopping")
			return nil
		}
		s.log.Info("web idle, listener closed", "idle", s.idle)

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-wake.Channel():
			if !ok {
				return nil
			}
		}
	}
}

// waitIdle returns nil on idle timeout or cancellation, or the Serve error.
func (s *Server) waitIdle(ctx context.Context, errc <-chan error, wake *bus.Subscription) error {
	var check <-chan time.Time
	if s.idle > 0 {
		every := s.idle / 10
		if every < 10*time.Millisecond {
			every = 10 * time.Millisecond
		}
		if every > time.Second {
			every = time.Second
		}
		t := time.NewTicker(every)
		defer t.Stop()
		check = t.C
	}
	idleMs := uint32(s.idle.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case <-wake.Channel():
			s.touch()
		case <-check:
			if timex.Since(s.clock.NowMs(), timex.Ms(s.lastReq.Load())) >= idleMs {
				return nil
			}
		}
	}
}
