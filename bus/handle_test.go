package bus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iwdctl/bus"
	"iwdctl/bus/bustest"
)

func TestBindInvalidPath(t *testing.T) {
	b := bustest.New(service)
	for _, p := range []dbus.ObjectPath{"", "net/connman", "/net//iwd", "/net/connman/"} {
		_, err := bus.Bind(b, service, p, "net.connman.iwd.Station")
		assert.ErrorIs(t, err, bus.ErrInvalidPath, "%q", p)
	}
	assert.Empty(t, b.Calls(), "binding must not touch the bus")
}

func TestHandleProperties(t *testing.T) {
	ctx := context.Background()
	b := newTree()
	h, err := bus.Bind(b, service, "/net/connman/iwd/0/4", "net.connman.iwd.Device")
	require.NoError(t, err)

	name, err := bus.Property[string](ctx, h, "Name")
	require.NoError(t, err)
	assert.Equal(t, "wlan0", name)

	require.NoError(t, h.Set(ctx, "Name", "wlan7"))
	name, err = bus.Property[string](ctx, h, "Name")
	require.NoError(t, err)
	assert.Equal(t, "wlan7", name)
	assert.Equal(t, 2, b.Gets("/net/connman/iwd/0/4", "net.connman.iwd.Device", "Name"), "no caching")

	_, err = bus.Property[bool](ctx, h, "Name")
	assert.ErrorAs(t, err, new(*bus.TypeMismatchError))

	_, err = bus.Property[string](ctx, h, "Missing")
	var te *bus.TransportError
	require.ErrorAs(t, err, &te)
	name2, ok := bus.RemoteError(err)
	assert.True(t, ok)
	assert.Equal(t, bus.ErrorInvalidArgs, name2)
}

func TestHandleCall(t *testing.T) {
	ctx := context.Background()
	b := newTree()
	b.HandleMethod("/net/connman/iwd/0/4", "net.connman.iwd.Station.GetOrderedNetworks", bustest.Reply(
		[][]any{{dbus.ObjectPath("/net/connman/iwd/0/4/6869_psk"), int16(-5400)}},
	))
	b.HandleMethod("/net/connman/iwd/0/4", "net.connman.iwd.Station.Scan", bustest.Fail("net.connman.iwd.Busy", "Operation already in progress"))
	h := bus.MustBind(b, service, "/net/connman/iwd/0/4", "net.connman.iwd.Station")

	reply, err := h.Call(ctx, "GetOrderedNetworks")
	require.NoError(t, err)
	var nets []struct {
		Path   dbus.ObjectPath
		Signal int16
	}
	require.NoError(t, reply.Store(&nets))
	require.Len(t, nets, 1)
	assert.Equal(t, int16(-5400), nets[0].Signal)

	var wrong string
	assert.ErrorAs(t, reply.Store(&wrong), new(*bus.TypeMismatchError))

	_, err = h.Call(ctx, "Scan")
	var te *bus.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "net.connman.iwd.Station.Scan", te.Op)
	name, ok := bus.RemoteError(err)
	require.True(t, ok)
	assert.Equal(t, "net.connman.iwd.Busy", name)

	_, ok = bus.RemoteError(errors.New("plain"))
	assert.False(t, ok)

	calls := b.CallsTo("net.connman.iwd.Station.Scan")
	require.Len(t, calls, 1)
	assert.Equal(t, dbus.ObjectPath("/net/connman/iwd/0/4"), calls[0].Path)
}
