package iwd

import (
	"context"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// Adapter wraps a radio (e.g. /net/connman/iwd/0).
type Adapter struct {
	h bus.Handle
}

// Path returns the adapter object path.
func (a Adapter) Path() dbus.ObjectPath { return a.h.Path() }

func (a Adapter) Handle() bus.Handle { return a.h }

func (a Adapter) Name(ctx context.Context) (string, error) {
	return bus.Property[string](ctx, a.h, "Name")
}

// Model returns the hardware model, if the driver reports one.
func (a Adapter) Model(ctx context.Context) (string, bool, error) {
	return optionalProperty[string](ctx, a.h, "Model")
}

// Vendor returns the hardware vendor, if the driver reports one.
func (a Adapter) Vendor(ctx context.Context) (string, bool, error) {
	return optionalProperty[string](ctx, a.h, "Vendor")
}

// SupportedModes lists the modes the radio can run in.
func (a Adapter) SupportedModes(ctx context.Context) ([]Mode, error) {
	raw, err := bus.Property[[]string](ctx, a.h, "SupportedModes")
	if err != nil {
		return nil, err
	}
	modes := make([]Mode, 0, len(raw))
	for _, s := range raw {
		m, err := ParseMode(s)
		if err != nil {
			// Modes this client does not know about are skipped.
			continue
		}
		modes = append(modes, m)
	}
	return modes, nil
}

func (a Adapter) Powered(ctx context.Context) (bool, error) {
	return bus.Property[bool](ctx, a.h, "Powered")
}

func (a Adapter) SetPowered(ctx context.Context, on bool) error {
	return a.h.Set(ctx, "Powered", on)
}

func optionalProperty[T any](ctx context.Context, h bus.Handle, name string) (T, bool, error) {
	v, err := bus.Property[T](ctx, h, name)
	if absent(err) {
		var zero T
		return zero, false, nil
	}
	return v, err == nil, err
}
