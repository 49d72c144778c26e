package iwd

import (
	"context"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"iwdctl/bus/bustest"
)

const (
	adapterPath = dbus.ObjectPath("/net/connman/iwd/0")
	devicePath  = dbus.ObjectPath("/net/connman/iwd/0/4")
	networkPath = dbus.ObjectPath("/net/connman/iwd/0/4/686f6d65_psk")
	cafePath    = dbus.ObjectPath("/net/connman/iwd/0/4/63616665_open")
	knownPath   = dbus.ObjectPath("/net/connman/iwd/686f6d65_psk")
)

// fakeDaemon serves a daemon with one adapter, one device in station mode
// connected to "home", and a visible open network "cafe".
func fakeDaemon() *bustest.Bus {
	b := bustest.New(Service)
	b.AddObject(ManagerPath, AgentManagerIface, nil)
	b.AddObject(ManagerPath, DaemonIface, nil)
	b.AddObject(adapterPath, AdapterIface, map[string]any{
		"Name":           "phy0",
		"Model":          "AX200",
		"Powered":        true,
		"SupportedModes": []string{"station", "ap", "p2p"},
	})
	b.AddObject(devicePath, DeviceIface, map[string]any{
		"Name":    "wlan0",
		"Address": "aa:bb:cc:dd:ee:ff",
		"Adapter": adapterPath,
		"Mode":    "station",
		"Powered": true,
	})
	b.AddObject(devicePath, StationIface, map[string]any{
		"State":            "connected",
		"Scanning":         false,
		"ConnectedNetwork": networkPath,
	})
	b.AddObject(devicePath, StationDiagnosticIface, nil)
	b.AddObject(networkPath, NetworkIface, map[string]any{
		"Name":         "home",
		"Connected":    true,
		"Device":       devicePath,
		"Type":         "psk",
		"KnownNetwork": knownPath,
	})
	b.AddObject(cafePath, NetworkIface, map[string]any{
		"Name":      "cafe",
		"Connected": false,
		"Device":    devicePath,
		"Type":      "open",
	})
	b.AddObject(knownPath, KnownNetworkIface, map[string]any{
		"Name":              "home",
		"Type":              "psk",
		"Hidden":            false,
		"AutoConnect":       true,
		"LastConnectedTime": "2026-10-01T08:30:00Z",
	})
	return b
}

func newSession(t *testing.T, b *bustest.Bus, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), b, opts...)
	require.NoError(t, err)
	return s
}

func quietLogger() (logrus.FieldLogger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}
