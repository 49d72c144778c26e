package bus

import (
	"context"
	"slices"

	"github.com/godbus/dbus/v5"
)

// Catalog is a snapshot of every object a service exposes, taken with a single
// GetManagedObjects call. It is never updated; call Discover again for fresh data.
type Catalog struct {
	paths   []dbus.ObjectPath
	objects map[dbus.ObjectPath]map[string]map[string]Value
}

// Discover queries the object manager of dest once.
func Discover(ctx context.Context, t Transport, dest string) (*Catalog, error) {
	raw, err := t.ManagedObjects(ctx, dest)
	if err != nil {
		return nil, &TransportError{Op: ManagedObjects, Err: err}
	}
	return NewCatalog(raw), nil
}

// NewCatalog builds a catalog from a GetManagedObjects reply.
func NewCatalog(raw map[dbus.ObjectPath]map[string]map[string]dbus.Variant) *Catalog {
	c := &Catalog{
		paths:   make([]dbus.ObjectPath, 0, len(raw)),
		objects: make(map[dbus.ObjectPath]map[string]map[string]Value, len(raw)),
	}
	for path, ifaces := range raw {
		c.paths = append(c.paths, path)
		entry := make(map[string]map[string]Value, len(ifaces))
		for iface, props := range ifaces {
			values := make(map[string]Value, len(props))
			for name, v := range props {
				values[name] = ValueOf(v)
			}
			entry[iface] = values
		}
		c.objects[path] = entry
	}
	slices.Sort(c.paths)
	return c
}

// Paths returns every object path in the snapshot, sorted.
func (c *Catalog) Paths() []dbus.ObjectPath {
	return slices.Clone(c.paths)
}

// ObjectsOf returns the paths that implement iface, in catalog order.
func (c *Catalog) ObjectsOf(iface string) []dbus.ObjectPath {
	var out []dbus.ObjectPath
	for _, path := range c.paths {
		if _, ok := c.objects[path][iface]; ok {
			out = append(out, path)
		}
	}
	return out
}

// Interfaces returns the interface names implemented at path, sorted.
func (c *Catalog) Interfaces(path dbus.ObjectPath) []string {
	entry, ok := c.objects[path]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(entry))
	for name := range entry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Properties returns the property snapshot of iface at path.
func (c *Catalog) Properties(path dbus.ObjectPath, iface string) (map[string]Value, bool) {
	props, ok := c.objects[path][iface]
	return props, ok
}

// Len returns the number of objects in the snapshot.
func (c *Catalog) Len() int { return len(c.paths) }
