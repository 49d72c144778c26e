package bus

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

var (
	// ErrInvalidPath is returned when binding a malformed object path.
	ErrInvalidPath = errors.New("invalid object path")

	// ErrSubscriptionClosed ends a Stream whose subscription went away.
	ErrSubscriptionClosed = errors.New("property subscription closed")

	// ErrNotRegistered is returned when tearing down a registration twice.
	ErrNotRegistered = errors.New("object is not registered")
)

// TransportError is a connection-level failure, a malformed reply, or a remote
// fault that the caller could not classify.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TypeMismatchError reports that a wire value cannot convert to the requested type.
type TypeMismatchError struct {
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
}

// RemoteError returns the D-Bus error name carried by err, if any. godbus reports
// error replies as dbus.Error values while exported methods build *dbus.Error, so
// both shapes are recognised.
func RemoteError(err error) (name string, ok bool) {
	var v dbus.Error
	if errors.As(err, &v) {
		return v.Name, true
	}
	var p *dbus.Error
	if errors.As(err, &p) && p != nil {
		return p.Name, true
	}
	return "", false
}
