package iwd

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// Station is the client-mode side of a device.
type Station struct {
	h bus.Handle
}

func (s Station) Path() dbus.ObjectPath { return s.h.Path() }
func (s Station) Handle() bus.Handle    { return s.h }

// RankedNetwork is a network with its signal strength in 100 * dBm.
type RankedNetwork struct {
	Network Network
	Signal  int16
}

// DBm returns the signal strength in dBm.
func (r RankedNetwork) DBm() float64 { return float64(r.Signal) / 100 }

// HiddenAccessPoint is an access point that does not broadcast its SSID.
type HiddenAccessPoint struct {
	Address string
	Signal  int16
	Type    NetworkType
}

func (s Station) State(ctx context.Context) (StationState, error) {
	st, err := bus.Property[string](ctx, s.h, "State")
	if err != nil {
		return "", err
	}
	return ParseStationState(st)
}

// StateStream watches the State property.
func (s Station) StateStream(ctx context.Context) (*bus.Stream[StationState], error) {
	return bus.Watch[StationState](ctx, s.h, "State")
}

func (s Station) Scanning(ctx context.Context) (bool, error) {
	return bus.Property[bool](ctx, s.h, "Scanning")
}

// ScanningStream watches the Scanning property.
func (s Station) ScanningStream(ctx context.Context) (*bus.Stream[bool], error) {
	return bus.Watch[bool](ctx, s.h, "Scanning")
}

// ConnectedNetwork returns the network the station is connected to. ok is false
// when the station is not connected.
func (s Station) ConnectedNetwork(ctx context.Context) (n Network, ok bool, err error) {
	st, err := s.State(ctx)
	if err != nil {
		return Network{}, false, err
	}
	if st != StateConnected {
		return Network{}, false, nil
	}
	h, err := follow(ctx, s.h, "ConnectedNetwork", NetworkIface)
	if absent(err) {
		return Network{}, false, nil
	}
	if err != nil {
		return Network{}, false, err
	}
	return Network{h: h}, true, nil
}

// Scan starts a scan. Progress is visible through the Scanning property.
func (s Station) Scan(ctx context.Context) error {
	_, err := s.h.Call(ctx, "Scan")
	return classify(err, stationScanReasons)
}

func (s Station) Disconnect(ctx context.Context) error {
	_, err := s.h.Call(ctx, "Disconnect")
	return classify(err, stationDisconnectReasons)
}

// ConnectHiddenNetwork connects to a network that does not broadcast ssid.
func (s Station) ConnectHiddenNetwork(ctx context.Context, ssid string) error {
	_, err := s.h.Call(ctx, "ConnectHiddenNetwork", ssid)
	return classify(err, connectHiddenReasons)
}

// OrderedNetworks returns the networks of the last scan, best first.
func (s Station) OrderedNetworks(ctx context.Context) ([]RankedNetwork, error) {
	r, err := s.h.Call(ctx, "GetOrderedNetworks")
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Path   dbus.ObjectPath
		Signal int16
	}
	if err := r.Store(&raw); err != nil {
		return nil, err
	}
	out := make([]RankedNetwork, 0, len(raw))
	for _, e := range raw {
		h, err := s.h.Rebind(e.Path, NetworkIface)
		if err != nil {
			return nil, fmt.Errorf("GetOrderedNetworks: %w", err)
		}
		out = append(out, RankedNetwork{Network: Network{h: h}, Signal: e.Signal})
	}
	return out, nil
}

// HiddenAccessPoints returns the hidden access points of the last scan.
func (s Station) HiddenAccessPoints(ctx context.Context) ([]HiddenAccessPoint, error) {
	r, err := s.h.Call(ctx, "GetHiddenAccessPoints")
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Address string
		Signal  int16
		Type    string
	}
	if err := r.Store(&raw); err != nil {
		return nil, err
	}
	out := make([]HiddenAccessPoint, 0, len(raw))
	for _, e := range raw {
		typ, err := ParseNetworkType(e.Type)
		if err != nil {
			return nil, fmt.Errorf("GetHiddenAccessPoints: %w", err)
		}
		out = append(out, HiddenAccessPoint{Address: e.Address, Signal: e.Signal, Type: typ})
	}
	return out, nil
}

// Diagnostics returns the diagnostic interface of the same device.
func (s Station) Diagnostics() StationDiagnostics {
	h, _ := s.h.Rebind(s.h.Path(), StationDiagnosticIface)
	return StationDiagnostics{h: h}
}

// Device returns the device this station belongs to.
func (s Station) Device() Device {
	h, _ := s.h.Rebind(s.h.Path(), DeviceIface)
	return Device{h: h}
}
