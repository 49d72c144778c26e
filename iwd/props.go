package iwd

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// follow reads an object path property and binds the object it names.
func follow(ctx context.Context, h bus.Handle, prop, iface string) (bus.Handle, error) {
	p, err := bus.Property[dbus.ObjectPath](ctx, h, prop)
	if err != nil {
		return bus.Handle{}, err
	}
	return h.Rebind(p, iface)
}

// absent reports whether err means the property is not set right now. The daemon
// answers reads of unset optional properties with InvalidArgs.
func absent(err error) bool {
	name, ok := bus.RemoteError(err)
	return ok && name == bus.ErrorInvalidArgs
}

func dict(r bus.Reply) (map[string]bus.Value, error) {
	var raw map[string]dbus.Variant
	if err := r.Store(&raw); err != nil {
		return nil, err
	}
	return values(raw), nil
}

func dicts(r bus.Reply) ([]map[string]bus.Value, error) {
	var raw []map[string]dbus.Variant
	if err := r.Store(&raw); err != nil {
		return nil, err
	}
	out := make([]map[string]bus.Value, len(raw))
	for i, d := range raw {
		out[i] = values(d)
	}
	return out, nil
}

func values(raw map[string]dbus.Variant) map[string]bus.Value {
	out := make(map[string]bus.Value, len(raw))
	for k, v := range raw {
		out[k] = bus.ValueOf(v)
	}
	return out
}

func field[T any](d map[string]bus.Value, key string) (T, error) {
	v, ok := d[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("missing key %q", key)
	}
	t, err := bus.As[T](v)
	if err != nil {
		return t, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

func optional[T any](d map[string]bus.Value, key string) (*T, error) {
	if _, ok := d[key]; !ok {
		return nil, nil
	}
	t, err := field[T](d, key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
