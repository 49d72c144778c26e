package iwd

import (
	"context"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// Network is a network seen by a station.
type Network struct {
	h bus.Handle
}

// NetworkAt binds the network at path on the service named by WithService.
func NetworkAt(t bus.Transport, path dbus.ObjectPath, opts ...Option) (Network, error) {
	h, err := bus.Bind(t, newOptions(opts).service, path, NetworkIface)
	return Network{h: h}, err
}

func (n Network) Path() dbus.ObjectPath { return n.h.Path() }
func (n Network) Handle() bus.Handle    { return n.h }

// Connect asks the daemon to connect. Credentials, when needed, are requested
// from the registered agent while this call is pending.
func (n Network) Connect(ctx context.Context) error {
	_, err := n.h.Call(ctx, "Connect")
	return classify(err, networkConnectReasons)
}

// Name returns the SSID.
func (n Network) Name(ctx context.Context) (string, error) {
	return bus.Property[string](ctx, n.h, "Name")
}

func (n Network) Connected(ctx context.Context) (bool, error) {
	return bus.Property[bool](ctx, n.h, "Connected")
}

// ConnectedStream watches the Connected property.
func (n Network) ConnectedStream(ctx context.Context) (*bus.Stream[bool], error) {
	return bus.Watch[bool](ctx, n.h, "Connected")
}

// Device returns the device the network was seen on.
func (n Network) Device(ctx context.Context) (Device, error) {
	h, err := follow(ctx, n.h, "Device", DeviceIface)
	return Device{h: h}, err
}

func (n Network) Type(ctx context.Context) (NetworkType, error) {
	s, err := bus.Property[string](ctx, n.h, "Type")
	if err != nil {
		return "", err
	}
	return ParseNetworkType(s)
}

// KnownNetwork returns the stored profile of the network. ok is false when the
// network has never been connected to.
func (n Network) KnownNetwork(ctx context.Context) (kn KnownNetwork, ok bool, err error) {
	h, err := follow(ctx, n.h, "KnownNetwork", KnownNetworkIface)
	if absent(err) {
		return KnownNetwork{}, false, nil
	}
	if err != nil {
		return KnownNetwork{}, false, err
	}
	return KnownNetwork{h: h}, true, nil
}
