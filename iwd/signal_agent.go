package iwd

import (
	"context"
	"errors"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"iwdctl/bus"
)

// SignalLevelAgent is told whenever the RSSI of a station crosses one of the
// registered thresholds.
type SignalLevelAgent interface {
	Changed(ctx context.Context, st Station, r LevelRange)
	Release()
}

// SignalLevelFunc adapts a function to SignalLevelAgent.
type SignalLevelFunc func(ctx context.Context, st Station, r LevelRange)

func (f SignalLevelFunc) Changed(ctx context.Context, st Station, r LevelRange) { f(ctx, st, r) }
func (SignalLevelFunc) Release()                                                {}

type signalLevelObject struct {
	agent      SignalLevelAgent
	thresholds Thresholds
	t          bus.Transport
	service    string
	log        logrus.FieldLogger
	reqs       *requests
	reg        *bus.Registration
}

func (s *signalLevelObject) Changed(path dbus.ObjectPath, level byte) *dbus.Error {
	log := s.log.WithFields(logrus.Fields{"method": "Changed", "station": path, "level": level})
	h, err := bus.Bind(s.t, s.service, path, StationIface)
	if err != nil {
		log.WithError(err).Warn("signal level change for invalid station path")
		return dbus.MakeFailedError(err)
	}
	r, err := s.thresholds.Range(int(level))
	if err != nil {
		log.WithError(err).Warn("signal level out of range")
		return dbus.NewError(bus.ErrorInvalidArgs, []any{err.Error()})
	}
	log.WithField("range", r.String()).Debug("agent call")

	ctx, done := s.reqs.begin()
	defer done()
	s.agent.Changed(ctx, Station{h: h}, r)
	return nil
}

func (s *signalLevelObject) Release() *dbus.Error {
	s.log.WithField("method", "Release").Debug("agent call")
	s.reqs.end(errReleased)
	s.agent.Release()
	s.reg.Released()
	return nil
}

// SignalLevelRegistration is a signal level agent known to the daemon.
type SignalLevelRegistration struct {
	*bus.Registration
	Thresholds Thresholds
	reqs       *requests
}

// Unregister tells the station to drop the agent and stops serving it.
func (r *SignalLevelRegistration) Unregister(ctx context.Context) error {
	err := r.Registration.Unregister(ctx)
	if !errors.Is(err, bus.ErrNotRegistered) {
		r.reqs.end(errUnregistered)
	}
	return err
}

// RegisterSignalLevelAgent registers agent with levels, in dBm, as thresholds.
// Levels are sorted strongest first before they are sent; the level index of
// every Changed call is resolved against that order.
func (s Station) RegisterSignalLevelAgent(ctx context.Context, levels []int16, agent SignalLevelAgent, opts ...Option) (*SignalLevelRegistration, error) {
	o := newOptions(opts)
	th := NewThresholds(levels)
	reqs := newRequests(o.timeout)

	reg, err := bus.Register(ctx, s.h.Transport(), bus.Registrar{
		Namespace: o.namespace + "/signal_level_agent",
		Interface: SignalLevelAgentIface,
		Object: func(reg *bus.Registration) any {
			return &signalLevelObject{
				agent:      agent,
				thresholds: th,
				t:          s.h.Transport(),
				service:    s.h.Destination(),
				log:        o.log.WithFields(logrus.Fields{"path": reg.Path(), "interface": SignalLevelAgentIface}),
				reqs:       reqs,
				reg:        reg,
			}
		},
		Register: func(ctx context.Context, path dbus.ObjectPath) error {
			_, err := s.h.Call(ctx, "RegisterSignalLevelAgent", path, th.Levels())
			return classify(err, registerAgentReasons)
		},
		Unregister: func(ctx context.Context, path dbus.ObjectPath) error {
			_, err := s.h.Call(ctx, "UnregisterSignalLevelAgent", path)
			return classify(err, unregisterReasons)
		},
		Logger: o.log,
	})
	var pe *bus.PublishError
	if errors.As(err, &pe) {
		return &SignalLevelRegistration{Registration: pe.Registration, Thresholds: th, reqs: reqs}, err
	}
	if err != nil {
		return nil, err
	}
	return &SignalLevelRegistration{Registration: reg, Thresholds: th, reqs: reqs}, nil
}
