package web

import (
	"fmt"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

const (
	ServiceType = "_http._tcp"
	Domain      = "local."
)

// Advertiser announces the UI while the listener is up.
type Advertiser interface {
	Advertise(port int) error
	Stop()
}

// MDNS advertises instance as an _http._tcp service on every interface.
type MDNS struct {
	instance string
	txt      []string

	mu     sync.Mutex
	server *zeroconf.Server
}

func NewMDNS(instance string, txt ...string) *MDNS {
	return &MDNS{instance: instance, txt: txt}
}

func (m *MDNS) Advertise(port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		m.server.Shutdown()
		m.server = nil
	}
	server, err := zeroconf.Register(m.instance, ServiceType, Domain, port, m.txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}
	m.server = server
	return nil
}

func (m *MDNS) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		m.server.Shutdown()
		m.server = nil
	}
}
