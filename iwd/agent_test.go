package iwd

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iwdctl/bus"
	"iwdctl/bus/bustest"
)

type recordingAgent struct {
	BaseAgent

	mu       sync.Mutex
	networks []dbus.ObjectPath
	canceled []CancelReason
	released int
}

func (a *recordingAgent) RequestPassphrase(_ context.Context, n Network) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.networks = append(a.networks, n.Path())
	return "hunter22", nil
}

func (a *recordingAgent) RequestUserNameAndPassword(context.Context, Network) (string, string, error) {
	return "alice", "wonderland", nil
}

func (a *recordingAgent) Cancel(r CancelReason) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.canceled = append(a.canceled, r)
}

func (a *recordingAgent) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released++
}

func (a *recordingAgent) requests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.networks)
}

func agentDaemon() *bustest.Bus {
	b := fakeDaemon()
	b.HandleMethod(ManagerPath, AgentManagerIface+".RegisterAgent", bustest.Reply())
	b.HandleMethod(ManagerPath, AgentManagerIface+".UnregisterAgent", bustest.Reply())
	return b
}

func register(t *testing.T, b *bustest.Bus, agent Agent, opts ...Option) *AgentRegistration {
	t.Helper()
	log, _ := quietLogger()
	reg, err := RegisterAgent(context.Background(), b, agent, append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	return reg
}

func faultName(t *testing.T, err error) string {
	t.Helper()
	name, ok := bus.RemoteError(err)
	require.True(t, ok, "want a D-Bus fault, got %v", err)
	return name
}

func TestCancelReasonRoundTrip(t *testing.T) {
	for _, r := range []CancelReason{CancelOutOfRange, CancelUserCanceled, CancelTimedOut, CancelShutdown} {
		got, err := ParseCancelReason(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseCancelReason("bored")
	assert.ErrorIs(t, err, ErrUnknownCancelReason)
	_, err = ParseCancelReason("")
	assert.ErrorIs(t, err, ErrUnknownCancelReason)
}

func TestRegisterAgent(t *testing.T) {
	b := agentDaemon()
	reg := register(t, b, &recordingAgent{}, WithNamespace("/test"))

	assert.True(t, strings.HasPrefix(string(reg.Path()), "/test/agent/"))
	calls := b.CallsTo(AgentManagerIface + ".RegisterAgent")
	require.Len(t, calls, 1)
	assert.Equal(t, ManagerPath, calls[0].Path)
	assert.Equal(t, []any{reg.Path()}, calls[0].Args)
	_, ok := b.Exported(reg.Path(), AgentIface)
	assert.True(t, ok)
}

func TestRegisterAgentRejected(t *testing.T) {
	b := fakeDaemon()
	b.HandleMethod(ManagerPath, AgentManagerIface+".RegisterAgent", bustest.Fail(ReasonAlreadyExists.Name(), "Object already exists"))

	reg, err := RegisterAgent(context.Background(), b, BaseAgent{})
	assert.Nil(t, reg)
	assert.ErrorIs(t, err, ReasonAlreadyExists)
}

func TestRegisterAgentExportFails(t *testing.T) {
	b := agentDaemon()
	b.FailExport(errors.New("object path already in use"))
	log, _ := quietLogger()

	reg, err := RegisterAgent(context.Background(), b, BaseAgent{}, WithLogger(log))
	var pe *bus.PublishError
	require.ErrorAs(t, err, &pe)
	require.NotNil(t, reg)
	require.NoError(t, reg.Unregister(context.Background()))
	assert.Len(t, b.CallsTo(AgentManagerIface+".UnregisterAgent"), 1)
}

func TestAgentDispatch(t *testing.T) {
	ctx := context.Background()
	b := agentDaemon()
	agent := &recordingAgent{}
	reg := register(t, b, agent)

	out, err := b.Dispatch(ctx, reg.Path(), AgentIface, "RequestPassphrase", networkPath)
	require.NoError(t, err)
	assert.Equal(t, []any{"hunter22"}, out)
	assert.Equal(t, []dbus.ObjectPath{networkPath}, agent.networks)

	out, err = b.Dispatch(ctx, reg.Path(), AgentIface, "RequestUserNameAndPassword", networkPath)
	require.NoError(t, err)
	assert.Equal(t, []any{"alice", "wonderland"}, out)

	// BaseAgent declines the rest.
	_, err = b.Dispatch(ctx, reg.Path(), AgentIface, "RequestPrivateKeyPassphrase", networkPath)
	assert.Equal(t, bus.ErrorFailed, faultName(t, err))
	_, err = b.Dispatch(ctx, reg.Path(), AgentIface, "RequestUserPassword", networkPath, "alice")
	assert.Equal(t, bus.ErrorFailed, faultName(t, err))

	_, err = b.Dispatch(ctx, reg.Path(), AgentIface, "RequestPassphrase", dbus.ObjectPath("bad//path"))
	assert.Equal(t, bus.ErrorFailed, faultName(t, err))
	assert.Equal(t, 1, agent.requests(), "handler not invoked for an invalid path")

	_, err = b.Dispatch(ctx, reg.Path(), AgentIface, "RequestPassphrase")
	assert.Equal(t, bus.ErrorInvalidArgs, faultName(t, err))
}

func TestAgentCancel(t *testing.T) {
	ctx := context.Background()
	b := agentDaemon()
	agent := &recordingAgent{}
	reg := register(t, b, agent)

	out, err := b.Dispatch(ctx, reg.Path(), AgentIface, "Cancel", "user-canceled")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, []CancelReason{CancelUserCanceled}, agent.canceled)

	_, err = b.Dispatch(ctx, reg.Path(), AgentIface, "Cancel", "because")
	assert.Equal(t, bus.ErrorInvalidArgs, faultName(t, err))
	assert.Len(t, agent.canceled, 1, "handler not invoked for an unknown reason")
}

type blockingAgent struct {
	BaseAgent
	started chan struct{}
	cause   chan error
}

func (a *blockingAgent) RequestPassphrase(ctx context.Context, _ Network) (string, error) {
	close(a.started)
	<-ctx.Done()
	a.cause <- context.Cause(ctx)
	return "", ErrCanceled
}

func TestAgentCancelReachesPendingRequest(t *testing.T) {
	ctx := context.Background()
	b := agentDaemon()
	agent := &blockingAgent{started: make(chan struct{}), cause: make(chan error, 1)}
	reg := register(t, b, agent)

	errc := make(chan error, 1)
	go func() {
		_, err := b.Dispatch(ctx, reg.Path(), AgentIface, "RequestPassphrase", networkPath)
		errc <- err
	}()
	<-agent.started

	_, err := b.Dispatch(ctx, reg.Path(), AgentIface, "Cancel", "timed-out")
	require.NoError(t, err)

	select {
	case cause := <-agent.cause:
		assert.ErrorIs(t, cause, CancelTimedOut)
	case <-time.After(time.Second):
		t.Fatal("pending request not canceled")
	}
	assert.Equal(t, bus.ErrorFailed, faultName(t, <-errc))
}

func TestAgentRequestTimeout(t *testing.T) {
	b := agentDaemon()
	agent := &blockingAgent{started: make(chan struct{}), cause: make(chan error, 1)}
	reg := register(t, b, agent, WithAgentTimeout(10*time.Millisecond))

	_, err := b.Dispatch(context.Background(), reg.Path(), AgentIface, "RequestPassphrase", networkPath)
	assert.Equal(t, bus.ErrorFailed, faultName(t, err))
	assert.ErrorIs(t, <-agent.cause, CancelTimedOut)
}

func TestAgentUnregister(t *testing.T) {
	ctx := context.Background()
	b := agentDaemon()
	reg := register(t, b, &recordingAgent{})

	require.NoError(t, reg.Unregister(ctx))
	calls := b.CallsTo(AgentManagerIface + ".UnregisterAgent")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{reg.Path()}, calls[0].Args)

	_, err := b.Dispatch(ctx, reg.Path(), AgentIface, "RequestPassphrase", networkPath)
	assert.Equal(t, bus.ErrorUnknownInterface, faultName(t, err))
	assert.ErrorIs(t, reg.Unregister(ctx), bus.ErrNotRegistered)
}

func TestAgentRelease(t *testing.T) {
	ctx := context.Background()
	b := agentDaemon()
	agent := &recordingAgent{}
	log, hook := quietLogger()
	reg, err := RegisterAgent(ctx, b, agent, WithLogger(log))
	require.NoError(t, err)

	_, err = b.Dispatch(ctx, reg.Path(), AgentIface, "Release")
	require.NoError(t, err)
	assert.Equal(t, 1, agent.released)
	<-reg.Done()

	_, ok := b.Exported(reg.Path(), AgentIface)
	assert.False(t, ok)
	assert.Empty(t, b.CallsTo(AgentManagerIface+".UnregisterAgent"), "release needs no remote call")

	var released bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel && e.Data["method"] == "Release" {
			released = true
		}
	}
	assert.True(t, released)
}

func TestSessionRegisterAgentUsesOptions(t *testing.T) {
	b := agentDaemon()
	log, _ := quietLogger()
	s := newSession(t, b, WithNamespace("/custom"), WithLogger(log))

	reg, err := s.RegisterAgent(context.Background(), PassphraseAgent{Passphrase: "pw"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(reg.Path()), "/custom/agent/"))

	out, err := b.Dispatch(context.Background(), reg.Path(), AgentIface, "RequestPassphrase", networkPath)
	require.NoError(t, err)
	assert.Equal(t, []any{"pw"}, out)
}
