package iwd

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// Session is an entry point into the daemon's object tree. It holds the catalog
// of the last discovery; call Refresh after adapters or devices come and go.
type Session struct {
	t    bus.Transport
	opts options
	raw  []Option

	mu      sync.RWMutex
	catalog *bus.Catalog
}

// NewSession discovers the daemon's objects.
func NewSession(ctx context.Context, t bus.Transport, opts ...Option) (*Session, error) {
	s := &Session{t: t, opts: newOptions(opts), raw: opts}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh takes a new catalog.
func (s *Session) Refresh(ctx context.Context) error {
	c, err := bus.Discover(ctx, s.t, s.opts.service)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.catalog = c
	s.mu.Unlock()
	return nil
}

// Catalog returns the catalog of the last discovery.
func (s *Session) Catalog() *bus.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Transport returns the transport the session talks through.
func (s *Session) Transport() bus.Transport { return s.t }

func objects[W any](s *Session, iface string, wrap func(bus.Handle) W) []W {
	paths := s.Catalog().ObjectsOf(iface)
	out := make([]W, 0, len(paths))
	for _, p := range paths {
		out = append(out, wrap(bus.MustBind(s.t, s.opts.service, p, iface)))
	}
	return out
}

func first[W any](all []W) (W, bool) {
	if len(all) == 0 {
		var zero W
		return zero, false
	}
	return all[0], true
}

func (s *Session) Adapters() []Adapter {
	return objects(s, AdapterIface, func(h bus.Handle) Adapter { return Adapter{h: h} })
}

func (s *Session) Devices() []Device {
	return objects(s, DeviceIface, func(h bus.Handle) Device { return Device{h: h} })
}

func (s *Session) Stations() []Station {
	return objects(s, StationIface, func(h bus.Handle) Station { return Station{h: h} })
}

func (s *Session) Networks() []Network {
	return objects(s, NetworkIface, func(h bus.Handle) Network { return Network{h: h} })
}

func (s *Session) KnownNetworks() []KnownNetwork {
	return objects(s, KnownNetworkIface, func(h bus.Handle) KnownNetwork { return KnownNetwork{h: h} })
}

func (s *Session) AccessPoints() []AccessPoint {
	return objects(s, AccessPointIface, func(h bus.Handle) AccessPoint { return AccessPoint{h: h} })
}

func (s *Session) StationDiagnostics() []StationDiagnostics {
	return objects(s, StationDiagnosticIface, func(h bus.Handle) StationDiagnostics { return StationDiagnostics{h: h} })
}

func (s *Session) AccessPointDiagnostics() []AccessPointDiagnostics {
	return objects(s, AccessPointDiagnosticIface, func(h bus.Handle) AccessPointDiagnostics { return AccessPointDiagnostics{h: h} })
}

// Adapter returns the first adapter.
func (s *Session) Adapter() (Adapter, bool) { return first(s.Adapters()) }

// Device returns the first device.
func (s *Session) Device() (Device, bool) { return first(s.Devices()) }

// Station returns the first station.
func (s *Session) Station() (Station, bool) { return first(s.Stations()) }

// AccessPoint returns the first access point.
func (s *Session) AccessPoint() (AccessPoint, bool) { return first(s.AccessPoints()) }

// Daemon returns the daemon interface. ok is false on daemons too old to serve it.
func (s *Session) Daemon() (Daemon, bool) {
	if _, ok := s.Catalog().Properties(ManagerPath, DaemonIface); !ok {
		return Daemon{}, false
	}
	return Daemon{h: bus.MustBind(s.t, s.opts.service, ManagerPath, DaemonIface)}, true
}

// NetworkAt binds the network at path on the session's service.
func (s *Session) NetworkAt(path dbus.ObjectPath) (Network, error) {
	return NetworkAt(s.t, path, s.raw...)
}

// RegisterAgent registers agent with the daemon's agent manager, using the
// session's options.
func (s *Session) RegisterAgent(ctx context.Context, agent Agent) (*AgentRegistration, error) {
	return RegisterAgent(ctx, s.t, agent, s.raw...)
}

// RegisterSignalLevelAgent registers agent on st, using the session's options.
func (s *Session) RegisterSignalLevelAgent(ctx context.Context, st Station, levels []int16, agent SignalLevelAgent) (*SignalLevelRegistration, error) {
	return st.RegisterSignalLevelAgent(ctx, levels, agent, s.raw...)
}
