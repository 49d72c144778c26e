package iwd

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// AccessPoint is the ap-mode side of a device.
type AccessPoint struct {
	h bus.Handle
}

func (a AccessPoint) Path() dbus.ObjectPath { return a.h.Path() }
func (a AccessPoint) Handle() bus.Handle    { return a.h }

// APNetwork is a network seen by an access point scan.
type APNetwork struct {
	Name   string
	Signal int16
	Type   NetworkType
}

// Start brings up a WPA2 access point.
func (a AccessPoint) Start(ctx context.Context, ssid, psk string) error {
	_, err := a.h.Call(ctx, "Start", ssid, psk)
	return classify(err, apStartReasons)
}

// StartProfile brings up the access point described by a stored profile.
func (a AccessPoint) StartProfile(ctx context.Context, ssid string) error {
	_, err := a.h.Call(ctx, "StartProfile", ssid)
	return classify(err, apStartProfileReasons)
}

func (a AccessPoint) Stop(ctx context.Context) error {
	_, err := a.h.Call(ctx, "Stop")
	return classify(err, apStopReasons)
}

func (a AccessPoint) Scan(ctx context.Context) error {
	_, err := a.h.Call(ctx, "Scan")
	return classify(err, apScanReasons)
}

// OrderedNetworks returns the networks of the last scan, best first.
func (a AccessPoint) OrderedNetworks(ctx context.Context) ([]APNetwork, error) {
	r, err := a.h.Call(ctx, "GetOrderedNetworks")
	if err != nil {
		return nil, err
	}
	ds, err := dicts(r)
	if err != nil {
		return nil, err
	}
	out := make([]APNetwork, 0, len(ds))
	for _, d := range ds {
		var n APNetwork
		if n.Name, err = field[string](d, "Name"); err != nil {
			return nil, fmt.Errorf("GetOrderedNetworks: %w", err)
		}
		if n.Signal, err = field[int16](d, "SignalStrength"); err != nil {
			return nil, fmt.Errorf("GetOrderedNetworks: %w", err)
		}
		typ, err := field[string](d, "Type")
		if err != nil {
			return nil, fmt.Errorf("GetOrderedNetworks: %w", err)
		}
		if n.Type, err = ParseNetworkType(typ); err != nil {
			return nil, fmt.Errorf("GetOrderedNetworks: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (a AccessPoint) Started(ctx context.Context) (bool, error) {
	return bus.Property[bool](ctx, a.h, "Started")
}

// StartedStream watches the Started property.
func (a AccessPoint) StartedStream(ctx context.Context) (*bus.Stream[bool], error) {
	return bus.Watch[bool](ctx, a.h, "Started")
}

// Name returns the SSID while started.
func (a AccessPoint) Name(ctx context.Context) (string, bool, error) {
	return optionalProperty[string](ctx, a.h, "Name")
}

// Frequency returns the operating frequency in MHz while started.
func (a AccessPoint) Frequency(ctx context.Context) (uint32, bool, error) {
	return optionalProperty[uint32](ctx, a.h, "Frequency")
}

func (a AccessPoint) Scanning(ctx context.Context) (bool, error) {
	return bus.Property[bool](ctx, a.h, "Scanning")
}

func (a AccessPoint) PairwiseCiphers(ctx context.Context) ([]Cipher, error) {
	raw, err := bus.Property[[]string](ctx, a.h, "PairwiseCiphers")
	if err != nil {
		return nil, err
	}
	out := make([]Cipher, 0, len(raw))
	for _, s := range raw {
		c, err := ParseCipher(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (a AccessPoint) GroupCipher(ctx context.Context) (Cipher, error) {
	s, err := bus.Property[string](ctx, a.h, "GroupCipher")
	if err != nil {
		return "", err
	}
	return ParseCipher(s)
}

// Diagnostics returns the diagnostic interface of the same device.
func (a AccessPoint) Diagnostics() AccessPointDiagnostics {
	h, _ := a.h.Rebind(a.h.Path(), AccessPointDiagnosticIface)
	return AccessPointDiagnostics{h: h}
}
