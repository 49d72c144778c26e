package iwd

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iwdctl/bus"
	"iwdctl/bus/bustest"
)

func TestSessionObjects(t *testing.T) {
	s := newSession(t, fakeDaemon())

	assert.Len(t, s.Adapters(), 1)
	assert.Len(t, s.Devices(), 1)
	assert.Len(t, s.Stations(), 1)
	assert.Len(t, s.StationDiagnostics(), 1)
	assert.Empty(t, s.AccessPoints())
	assert.Empty(t, s.AccessPointDiagnostics())
	assert.Len(t, s.KnownNetworks(), 1)

	nets := s.Networks()
	require.Len(t, nets, 2)
	assert.Equal(t, cafePath, nets[0].Path(), "catalog order is sorted by path")

	_, ok := s.AccessPoint()
	assert.False(t, ok)
	st, ok := s.Station()
	require.True(t, ok)
	assert.Equal(t, devicePath, st.Path())
}

func TestSessionRefresh(t *testing.T) {
	b := fakeDaemon()
	s := newSession(t, b)
	b.AddObject(devicePath, AccessPointIface, map[string]any{"Started": false})
	assert.Empty(t, s.AccessPoints())

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.AccessPoints(), 1)
	assert.Len(t, b.CallsTo(bus.ManagedObjects), 2)
}

func TestSessionWrongService(t *testing.T) {
	_, err := NewSession(context.Background(), fakeDaemon(), WithService("org.example.wifi"))
	var te *bus.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestAdapterAndDevice(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, fakeDaemon())
	d, ok := s.Device()
	require.True(t, ok)

	name, err := d.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", name)

	mode, err := d.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeStation, mode)
	require.NoError(t, d.SetMode(ctx, ModeAP))
	mode, err = d.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeAP, mode)

	a, err := d.Adapter(ctx)
	require.NoError(t, err)
	assert.Equal(t, adapterPath, a.Path())

	model, ok, err := a.Model(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "AX200", model)

	_, ok, err = a.Vendor(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	modes, err := a.SupportedModes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Mode{ModeStation, ModeAP}, modes)

	require.NoError(t, a.SetPowered(ctx, false))
	on, err := a.Powered(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestNetworkAndKnownNetwork(t *testing.T) {
	ctx := context.Background()
	b := fakeDaemon()
	b.HandleMethod(knownPath, KnownNetworkIface+".Forget", bustest.Fail(ReasonNotSupported.Name(), ReasonNotSupported.Message()))
	s := newSession(t, b)

	home, err := NetworkAt(b, networkPath)
	require.NoError(t, err)
	typ, err := home.Type(ctx)
	require.NoError(t, err)
	assert.Equal(t, NetworkPSK, typ)

	kn, ok, err := home.KnownNetwork(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	when, ok, err := kn.LastConnectedTime(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC), when)
	assert.ErrorIs(t, kn.Forget(ctx), ReasonNotSupported)

	cafe := s.Networks()[0]
	_, ok, err = cafe.KnownNetwork(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	dev, err := cafe.Device(ctx)
	require.NoError(t, err)
	assert.Equal(t, devicePath, dev.Path())

	_, err = NetworkAt(b, "not/a/path")
	assert.ErrorIs(t, err, bus.ErrInvalidPath)
}

func TestDaemonInfo(t *testing.T) {
	b := fakeDaemon()
	b.HandleMethod(ManagerPath, DaemonIface+".GetInfo", bustest.Reply(map[string]dbus.Variant{
		"StateDirectory":              dbus.MakeVariant("/var/lib/iwd"),
		"Version":                     dbus.MakeVariant("3.6"),
		"NetworkConfigurationEnabled": dbus.MakeVariant(false),
	}))
	s := newSession(t, b)
	d, ok := s.Daemon()
	require.True(t, ok)

	info, err := d.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DaemonInfo{StateDirectory: "/var/lib/iwd", Version: "3.6"}, info)
}

func TestNetworkAtService(t *testing.T) {
	ctx := context.Background()
	b := bustest.New("org.example.wifi")
	b.AddObject(networkPath, NetworkIface, map[string]any{"Name": "home", "Type": "psk", "Connected": false})

	n, err := NetworkAt(b, networkPath, WithService("org.example.wifi"))
	require.NoError(t, err)
	name, err := n.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "home", name)

	s, err := NewSession(ctx, b, WithService("org.example.wifi"))
	require.NoError(t, err)
	n, err = s.NetworkAt(networkPath)
	require.NoError(t, err)
	assert.Equal(t, "org.example.wifi", n.Handle().Destination())

	n, err = NetworkAt(b, networkPath)
	require.NoError(t, err)
	_, err = n.Name(ctx)
	assert.Error(t, err, "default service is not served by this bus")
}
