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

const service = "net.connman.iwd"

func newTree() *bustest.Bus {
	b := bustest.New(service)
	b.AddObject("/net/connman/iwd", "net.connman.iwd.AgentManager", nil)
	b.AddObject("/net/connman/iwd/0", "net.connman.iwd.Adapter", map[string]any{"Name": "phy0"})
	b.AddObject("/net/connman/iwd/0/4", "net.connman.iwd.Device", map[string]any{"Name": "wlan0"})
	b.AddObject("/net/connman/iwd/0/4", "net.connman.iwd.Station", map[string]any{"State": "connected"})
	b.AddObject("/net/connman/iwd/0/5", "net.connman.iwd.Device", map[string]any{"Name": "wlan1"})
	return b
}

func TestDiscoverSingleQuery(t *testing.T) {
	b := newTree()
	c, err := bus.Discover(context.Background(), b, service)
	require.NoError(t, err)

	assert.Len(t, b.CallsTo(bus.ManagedObjects), 1)
	assert.Equal(t, 4, c.Len())

	props, ok := c.Properties("/net/connman/iwd/0/4", "net.connman.iwd.Station")
	require.True(t, ok)
	state, err := props["State"].Str()
	require.NoError(t, err)
	assert.Equal(t, "connected", state)

	assert.Equal(t, []string{"net.connman.iwd.Device", "net.connman.iwd.Station"}, c.Interfaces("/net/connman/iwd/0/4"))
	assert.Nil(t, c.Interfaces("/nope"))
}

func TestObjectsOf(t *testing.T) {
	c, err := bus.Discover(context.Background(), newTree(), service)
	require.NoError(t, err)

	for _, iface := range []string{"net.connman.iwd.Device", "net.connman.iwd.Station", "net.connman.iwd.Network"} {
		got := c.ObjectsOf(iface)
		for _, path := range c.Paths() {
			_, has := c.Properties(path, iface)
			assert.Equal(t, has, contains(got, path), "%s %s", iface, path)
		}
		assert.Equal(t, got, c.ObjectsOf(iface), "order must be stable")
	}
	assert.Equal(t, []dbus.ObjectPath{"/net/connman/iwd/0/4", "/net/connman/iwd/0/5"}, c.ObjectsOf("net.connman.iwd.Device"))
	assert.Empty(t, c.ObjectsOf("net.connman.iwd.Network"))
}

func TestDiscoverFailure(t *testing.T) {
	b := newTree()
	b.FailManagedObjects(errors.New("broken pipe"))

	_, err := bus.Discover(context.Background(), b, service)
	var te *bus.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, bus.ManagedObjects, te.Op)
}

func contains(paths []dbus.ObjectPath, p dbus.ObjectPath) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}
