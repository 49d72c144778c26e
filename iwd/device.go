package iwd

import (
	"context"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// Device is a wireless interface such as wlan0.
type Device struct {
	h bus.Handle
}

func (d Device) Path() dbus.ObjectPath { return d.h.Path() }
func (d Device) Handle() bus.Handle    { return d.h }

// Name returns the kernel interface name.
func (d Device) Name(ctx context.Context) (string, error) {
	return bus.Property[string](ctx, d.h, "Name")
}

// Address returns the hardware address.
func (d Device) Address(ctx context.Context) (string, error) {
	return bus.Property[string](ctx, d.h, "Address")
}

// Adapter returns the radio the device belongs to.
func (d Device) Adapter(ctx context.Context) (Adapter, error) {
	h, err := follow(ctx, d.h, "Adapter", AdapterIface)
	return Adapter{h: h}, err
}

func (d Device) Mode(ctx context.Context) (Mode, error) {
	s, err := bus.Property[string](ctx, d.h, "Mode")
	if err != nil {
		return "", err
	}
	return ParseMode(s)
}

// SetMode switches the device between station and access point operation. The
// Station and AccessPoint interfaces appear and disappear accordingly.
func (d Device) SetMode(ctx context.Context, m Mode) error {
	return d.h.Set(ctx, "Mode", string(m))
}

func (d Device) Powered(ctx context.Context) (bool, error) {
	return bus.Property[bool](ctx, d.h, "Powered")
}

func (d Device) SetPowered(ctx context.Context, on bool) error {
	return d.h.Set(ctx, "Powered", on)
}

// PoweredStream watches the Powered property.
func (d Device) PoweredStream(ctx context.Context) (*bus.Stream[bool], error) {
	return bus.Watch[bool](ctx, d.h, "Powered")
}

// Station returns the station interface of the device. It is only served while
// the device is in station mode.
func (d Device) Station() Station {
	h, _ := d.h.Rebind(d.h.Path(), StationIface)
	return Station{h: h}
}

// AccessPoint returns the access point interface of the device. It is only
// served while the device is in ap mode.
func (d Device) AccessPoint() AccessPoint {
	h, _ := d.h.Rebind(d.h.Path(), AccessPointIface)
	return AccessPoint{h: h}
}
