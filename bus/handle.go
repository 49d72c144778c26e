package bus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Handle addresses one interface of one remote object. Binding never touches the
// bus and nothing is cached, so handles are cheap to create and copy.
type Handle struct {
	t     Transport
	dest  string
	path  dbus.ObjectPath
	iface string
}

// Bind creates a handle. It only fails when path is not a valid object path.
func Bind(t Transport, dest string, path dbus.ObjectPath, iface string) (Handle, error) {
	if !path.IsValid() {
		return Handle{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return Handle{t: t, dest: dest, path: path, iface: iface}, nil
}

// MustBind is Bind for paths known to be valid, such as constants and paths taken
// from a catalog.
func MustBind(t Transport, dest string, path dbus.ObjectPath, iface string) Handle {
	h, err := Bind(t, dest, path, iface)
	if err != nil {
		panic(err)
	}
	return h
}

// Path returns the object path.
func (h Handle) Path() dbus.ObjectPath { return h.path }

// Interface returns the interface name.
func (h Handle) Interface() string { return h.iface }

// Destination returns the bus name of the remote service.
func (h Handle) Destination() string { return h.dest }

// Transport returns the transport the handle calls through.
func (h Handle) Transport() Transport { return h.t }

// Rebind returns a handle for another object of the same service.
func (h Handle) Rebind(path dbus.ObjectPath, iface string) (Handle, error) {
	return Bind(h.t, h.dest, path, iface)
}

// Get reads one property.
func (h Handle) Get(ctx context.Context, name string) (Value, error) {
	v, err := h.t.GetProperty(ctx, h.dest, h.path, h.iface, name)
	if err != nil {
		return Value{}, &TransportError{Op: h.iface + "." + name, Err: err}
	}
	return ValueOf(v), nil
}

// Set writes one property.
func (h Handle) Set(ctx context.Context, name string, value any) error {
	if err := h.t.SetProperty(ctx, h.dest, h.path, h.iface, name, value); err != nil {
		return &TransportError{Op: h.iface + "." + name, Err: err}
	}
	return nil
}

// Call invokes a method of the bound interface.
func (h Handle) Call(ctx context.Context, method string, args ...any) (Reply, error) {
	op := h.iface + "." + method
	body, err := h.t.Call(ctx, h.dest, h.path, op, args...)
	if err != nil {
		return Reply{}, &TransportError{Op: op, Err: err}
	}
	return Reply{op: op, Body: body}, nil
}

// Property reads one property and converts it to T.
func Property[T any](ctx context.Context, h Handle, name string) (T, error) {
	v, err := h.Get(ctx, name)
	if err != nil {
		var zero T
		return zero, err
	}
	t, err := As[T](v)
	if err != nil {
		return t, fmt.Errorf("%s.%s: %w", h.iface, name, err)
	}
	return t, nil
}

// Reply is the body of a method return.
type Reply struct {
	op   string
	Body []any
}

// Store decodes the reply body into dst, following godbus conversion rules.
func (r Reply) Store(dst ...any) error {
	if err := dbus.Store(r.Body, dst...); err != nil {
		return fmt.Errorf("%s: %w", r.op, &TypeMismatchError{Want: fmt.Sprintf("%T", dst), Got: signatureOf(r.Body)})
	}
	return nil
}

func signatureOf(body []any) (sig string) {
	if len(body) == 0 {
		return "empty body"
	}
	// SignatureOf panics on values godbus cannot encode.
	defer func() {
		if recover() != nil {
			sig = fmt.Sprintf("%T", body)
		}
	}()
	return dbus.SignatureOf(body...).String()
}
