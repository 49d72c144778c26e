// Package bus is the D-Bus boundary of iwdctl: object discovery, typed interface
// handles, property change streams and locally exported callback objects.
package bus

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// Standard D-Bus names used by this package.
const (
	PropertiesIface    = "org.freedesktop.DBus.Properties"
	ObjectManagerIface = "org.freedesktop.DBus.ObjectManager"

	PropertiesGet     = PropertiesIface + ".Get"
	PropertiesSet     = PropertiesIface + ".Set"
	PropertiesChanged = "PropertiesChanged"
	ManagedObjects    = ObjectManagerIface + ".GetManagedObjects"

	ErrorUnknownObject    = "org.freedesktop.DBus.Error.UnknownObject"
	ErrorUnknownInterface = "org.freedesktop.DBus.Error.UnknownInterface"
	ErrorUnknownMethod    = "org.freedesktop.DBus.Error.UnknownMethod"
	ErrorInvalidArgs      = "org.freedesktop.DBus.Error.InvalidArgs"
	ErrorFailed           = "org.freedesktop.DBus.Error.Failed"
)

// RootPath is the object path the object manager is queried on.
const RootPath = dbus.ObjectPath("/")

// Change is a received PropertiesChanged signal for one interface.
type Change struct {
	Path        dbus.ObjectPath
	Interface   string
	Changed     map[string]dbus.Variant
	Invalidated []string
}

// Touches reports whether the change names the property, either with a new value
// or as invalidated.
func (c Change) Touches(name string) bool {
	if _, ok := c.Changed[name]; ok {
		return true
	}
	for _, n := range c.Invalidated {
		if n == name {
			return true
		}
	}
	return false
}

// Transport is the bus capability everything in this module is built on.
// *Conn implements it over a real connection; bustest.Bus implements it in memory.
type Transport interface {
	// ManagedObjects performs one GetManagedObjects query on dest.
	ManagedObjects(ctx context.Context, dest string) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error)

	// Call invokes an interface-qualified method and returns the reply body.
	Call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args ...any) ([]any, error)

	GetProperty(ctx context.Context, dest string, path dbus.ObjectPath, iface, name string) (dbus.Variant, error)
	SetProperty(ctx context.Context, dest string, path dbus.ObjectPath, iface, name string, value any) error

	// Subscribe delivers PropertiesChanged signals for iface on path. The channel is
	// closed when the connection goes away; cancel drops the subscription.
	Subscribe(ctx context.Context, dest string, path dbus.ObjectPath, iface string) (<-chan Change, func(), error)

	// Export publishes obj at path so that remote peers can call its methods.
	Export(obj any, path dbus.ObjectPath, iface string) error
	Unexport(path dbus.ObjectPath, iface string) error
}
