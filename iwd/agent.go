package iwd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"iwdctl/bus"
)

// CancelReason says why the daemon withdrew a pending credential request.
type CancelReason uint8

const (
	CancelOutOfRange CancelReason = iota + 1
	CancelUserCanceled
	CancelTimedOut
	CancelShutdown
)

var cancelReasons = [...]string{
	CancelOutOfRange:   "out-of-range",
	CancelUserCanceled: "user-canceled",
	CancelTimedOut:     "timed-out",
	CancelShutdown:     "shutdown",
}

// ErrUnknownCancelReason is returned by ParseCancelReason.
var ErrUnknownCancelReason = errors.New("unknown cancel reason")

// ParseCancelReason parses the wire form of a cancel reason.
func ParseCancelReason(s string) (CancelReason, error) {
	for r, name := range cancelReasons {
		if r > 0 && name == s {
			return CancelReason(r), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCancelReason, s)
}

func (r CancelReason) String() string {
	if r > 0 && int(r) < len(cancelReasons) {
		return cancelReasons[r]
	}
	return fmt.Sprintf("CancelReason(%d)", uint8(r))
}

// Error makes a reason usable as the cause of a canceled request context.
func (r CancelReason) Error() string { return "request canceled: " + r.String() }

// Agent answers credential requests of the daemon.
//
// Request methods run while the daemon's Connect call is pending. ctx is done
// when the daemon cancels the request, the agent is released, or the request
// timeout expires; context.Cause(ctx) tells which. Returning an error, typically
// ErrCanceled, fails the connection attempt.
type Agent interface {
	RequestPassphrase(ctx context.Context, n Network) (string, error)
	RequestPrivateKeyPassphrase(ctx context.Context, n Network) (string, error)
	RequestUserNameAndPassword(ctx context.Context, n Network) (user, password string, err error)
	RequestUserPassword(ctx context.Context, n Network, user string) (string, error)

	// Cancel is called after the daemon withdrew the pending request.
	Cancel(reason CancelReason)

	// Release is called when the daemon drops the agent.
	Release()
}

// BaseAgent declines every request. Embed it and override what you support.
type BaseAgent struct{}

func (BaseAgent) RequestPassphrase(context.Context, Network) (string, error) {
	return "", ErrCanceled
}

func (BaseAgent) RequestPrivateKeyPassphrase(context.Context, Network) (string, error) {
	return "", ErrCanceled
}

func (BaseAgent) RequestUserNameAndPassword(context.Context, Network) (string, string, error) {
	return "", "", ErrCanceled
}

func (BaseAgent) RequestUserPassword(context.Context, Network, string) (string, error) {
	return "", ErrCanceled
}

func (BaseAgent) Cancel(CancelReason) {}
func (BaseAgent) Release()            {}

// PassphraseAgent answers passphrase requests with a fixed value.
type PassphraseAgent struct {
	BaseAgent
	Passphrase string
}

func (a PassphraseAgent) RequestPassphrase(context.Context, Network) (string, error) {
	return a.Passphrase, nil
}

// errReleased and errUnregistered end in-flight requests when the agent goes away.
var (
	errReleased     = errors.New("agent released by daemon")
	errUnregistered = errors.New("agent unregistered")
)

// requests tracks in-flight request contexts so a Cancel can reach them.
type requests struct {
	timeout time.Duration

	mu     sync.Mutex
	next   uint64
	active map[uint64]context.CancelCauseFunc
	ended  error
}

func newRequests(timeout time.Duration) *requests {
	return &requests{timeout: timeout, active: make(map[uint64]context.CancelCauseFunc)}
}

func (r *requests) begin() (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(context.Background())
	r.mu.Lock()
	if r.ended != nil {
		cancel(r.ended)
	}
	id := r.next
	r.next++
	r.active[id] = cancel
	r.mu.Unlock()

	stop := func() {}
	if r.timeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeoutCause(ctx, r.timeout, CancelTimedOut)
		stop = tcancel
	}
	return ctx, func() {
		stop()
		r.mu.Lock()
		delete(r.active, id)
		r.mu.Unlock()
		cancel(nil)
	}
}

func (r *requests) cancelAll(cause error) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.active)
	for _, cancel := range r.active {
		cancel(cause)
	}
	return n
}

func (r *requests) end(cause error) {
	r.mu.Lock()
	r.ended = cause
	r.mu.Unlock()
	r.cancelAll(cause)
}

// agentObject is exported at the agent path. Its exported methods are the wire
// surface of net.connman.iwd.Agent.
type agentObject struct {
	agent   Agent
	t       bus.Transport
	service string
	log     logrus.FieldLogger
	reqs    *requests
	reg     *bus.Registration
}

func (a *agentObject) network(path dbus.ObjectPath) (Network, *dbus.Error) {
	h, err := bus.Bind(a.t, a.service, path, NetworkIface)
	if err != nil {
		a.log.WithError(err).Warn("request for invalid network path")
		return Network{}, dbus.MakeFailedError(err)
	}
	return Network{h: h}, nil
}

func (a *agentObject) fail(method string, err error) *dbus.Error {
	a.log.WithField("method", method).WithError(err).Warn("agent request failed")
	return dbus.MakeFailedError(err)
}

func (a *agentObject) Release() *dbus.Error {
	a.log.WithField("method", "Release").Debug("agent call")
	a.reqs.end(errReleased)
	a.agent.Release()
	a.reg.Released()
	return nil
}

func (a *agentObject) RequestPassphrase(path dbus.ObjectPath) (string, *dbus.Error) {
	a.log.WithFields(logrus.Fields{"method": "RequestPassphrase", "network": path}).Debug("agent call")
	n, derr := a.network(path)
	if derr != nil {
		return "", derr
	}
	ctx, done := a.reqs.begin()
	defer done()
	s, err := a.agent.RequestPassphrase(ctx, n)
	if err != nil {
		return "", a.fail("RequestPassphrase", err)
	}
	return s, nil
}

func (a *agentObject) RequestPrivateKeyPassphrase(path dbus.ObjectPath) (string, *dbus.Error) {
	a.log.WithFields(logrus.Fields{"method": "RequestPrivateKeyPassphrase", "network": path}).Debug("agent call")
	n, derr := a.network(path)
	if derr != nil {
		return "", derr
	}
	ctx, done := a.reqs.begin()
	defer done()
	s, err := a.agent.RequestPrivateKeyPassphrase(ctx, n)
	if err != nil {
		return "", a.fail("RequestPrivateKeyPassphrase", err)
	}
	return s, nil
}

func (a *agentObject) RequestUserNameAndPassword(path dbus.ObjectPath) (string, string, *dbus.Error) {
	a.log.WithFields(logrus.Fields{"method": "RequestUserNameAndPassword", "network": path}).Debug("agent call")
	n, derr := a.network(path)
	if derr != nil {
		return "", "", derr
	}
	ctx, done := a.reqs.begin()
	defer done()
	user, pass, err := a.agent.RequestUserNameAndPassword(ctx, n)
	if err != nil {
		return "", "", a.fail("RequestUserNameAndPassword", err)
	}
	return user, pass, nil
}

func (a *agentObject) RequestUserPassword(path dbus.ObjectPath, user string) (string, *dbus.Error) {
	a.log.WithFields(logrus.Fields{"method": "RequestUserPassword", "network": path}).Debug("agent call")
	n, derr := a.network(path)
	if derr != nil {
		return "", derr
	}
	ctx, done := a.reqs.begin()
	defer done()
	s, err := a.agent.RequestUserPassword(ctx, n, user)
	if err != nil {
		return "", a.fail("RequestUserPassword", err)
	}
	return s, nil
}

func (a *agentObject) Cancel(reason string) *dbus.Error {
	r, err := ParseCancelReason(reason)
	if err != nil {
		a.log.WithField("reason", reason).Warn("cancel with unknown reason")
		return dbus.NewError(bus.ErrorInvalidArgs, []any{err.Error()})
	}
	n := a.reqs.cancelAll(r)
	a.log.WithFields(logrus.Fields{"method": "Cancel", "reason": r, "pending": n}).Debug("agent call")
	a.agent.Cancel(r)
	return nil
}

// AgentRegistration is a credential agent known to the daemon.
type AgentRegistration struct {
	*bus.Registration
	reqs *requests
}

// Unregister tells the daemon to drop the agent and stops serving it. Requests
// still running see their context canceled.
func (r *AgentRegistration) Unregister(ctx context.Context) error {
	err := r.Registration.Unregister(ctx)
	if !errors.Is(err, bus.ErrNotRegistered) {
		r.reqs.end(errUnregistered)
	}
	return err
}

// RegisterAgent registers agent with the agent manager and exports it. The daemon
// holds at most one agent per client. If the export fails after the daemon
// accepted the path, the registration is returned together with a
// *bus.PublishError so the caller can unregister it.
func RegisterAgent(ctx context.Context, t bus.Transport, agent Agent, opts ...Option) (*AgentRegistration, error) {
	o := newOptions(opts)
	manager := bus.MustBind(t, o.service, ManagerPath, AgentManagerIface)
	reqs := newRequests(o.timeout)

	reg, err := bus.Register(ctx, t, bus.Registrar{
		Namespace: o.namespace + "/agent",
		Interface: AgentIface,
		Object: func(reg *bus.Registration) any {
			return &agentObject{
				agent:   agent,
				t:       t,
				service: o.service,
				log:     o.log.WithFields(logrus.Fields{"path": reg.Path(), "interface": AgentIface}),
				reqs:    reqs,
				reg:     reg,
			}
		},
		Register: func(ctx context.Context, path dbus.ObjectPath) error {
			_, err := manager.Call(ctx, "RegisterAgent", path)
			return classify(err, registerAgentReasons)
		},
		Unregister: func(ctx context.Context, path dbus.ObjectPath) error {
			_, err := manager.Call(ctx, "UnregisterAgent", path)
			return classify(err, unregisterReasons)
		},
		Logger: o.log,
	})
	var pe *bus.PublishError
	if errors.As(err, &pe) {
		return &AgentRegistration{Registration: pe.Registration, reqs: reqs}, err
	}
	if err != nil {
		return nil, err
	}
	return &AgentRegistration{Registration: reg, reqs: reqs}, nil
}
