package iwd

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// KnownNetwork is a stored network profile.
type KnownNetwork struct {
	h bus.Handle
}

func (k KnownNetwork) Path() dbus.ObjectPath { return k.h.Path() }
func (k KnownNetwork) Handle() bus.Handle    { return k.h }

// Forget removes the profile.
func (k KnownNetwork) Forget(ctx context.Context) error {
	_, err := k.h.Call(ctx, "Forget")
	return classify(err, forgetReasons)
}

func (k KnownNetwork) Name(ctx context.Context) (string, error) {
	return bus.Property[string](ctx, k.h, "Name")
}

func (k KnownNetwork) Type(ctx context.Context) (NetworkType, error) {
	s, err := bus.Property[string](ctx, k.h, "Type")
	if err != nil {
		return "", err
	}
	return ParseNetworkType(s)
}

func (k KnownNetwork) Hidden(ctx context.Context) (bool, error) {
	return bus.Property[bool](ctx, k.h, "Hidden")
}

// LastConnectedTime returns when the network was last used. ok is false if it
// never was.
func (k KnownNetwork) LastConnectedTime(ctx context.Context) (t time.Time, ok bool, err error) {
	s, err := bus.Property[string](ctx, k.h, "LastConnectedTime")
	if absent(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, &bus.TypeMismatchError{Want: "RFC 3339 time", Got: s}
	}
	return t, true, nil
}

func (k KnownNetwork) AutoConnect(ctx context.Context) (bool, error) {
	return bus.Property[bool](ctx, k.h, "AutoConnect")
}

func (k KnownNetwork) SetAutoConnect(ctx context.Context, on bool) error {
	return k.h.Set(ctx, "AutoConnect", on)
}
