package bus

import (
	"context"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/sirupsen/logrus"
)

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used for subscription and export events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Conn) {
		if log != nil {
			c.log = log
		}
	}
}

// Conn is a Transport backed by a godbus connection. It is safe for concurrent use;
// the underlying connection is shared by every handle, stream and exported object.
type Conn struct {
	conn *dbus.Conn
	log  logrus.FieldLogger

	mu       sync.Mutex
	exported map[dbus.ObjectPath]map[string]any
}

// NewConn wraps an already authenticated connection.
func NewConn(conn *dbus.Conn, opts ...Option) *Conn {
	c := &Conn{
		conn:     conn,
		log:      logrus.StandardLogger(),
		exported: make(map[dbus.ObjectPath]map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Raw returns the underlying godbus connection.
func (c *Conn) Raw() *dbus.Conn {
	return c.conn
}

// Close closes the connection. Open subscriptions end with their channels closed.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) ManagedObjects(ctx context.Context, dest string) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var out map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	err := c.conn.Object(dest, RootPath).CallWithContext(ctx, ManagedObjects, 0).Store(&out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conn) Call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
	call := c.conn.Object(dest, path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return nil, call.Err
	}
	return call.Body, nil
}

func (c *Conn) GetProperty(ctx context.Context, dest string, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := c.conn.Object(dest, path).CallWithContext(ctx, PropertiesGet, 0, iface, name).Store(&v)
	return v, err
}

func (c *Conn) SetProperty(ctx context.Context, dest string, path dbus.ObjectPath, iface, name string, value any) error {
	return c.conn.Object(dest, path).CallWithContext(ctx, PropertiesSet, 0, iface, name, dbus.MakeVariant(value)).Err
}

func (c *Conn) Subscribe(ctx context.Context, dest string, path dbus.ObjectPath, iface string) (<-chan Change, func(), error) {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(PropertiesIface),
		dbus.WithMatchMember(PropertiesChanged),
		dbus.WithMatchArg(0, iface),
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	// The channel is registered before the match so no signal is lost in between.
	in := make(chan *dbus.Signal, 16)
	c.conn.Signal(in)
	if err := c.conn.AddMatchSignalContext(ctx, match...); err != nil {
		c.conn.RemoveSignal(in)
		return nil, nil, err
	}

	out := make(chan Change)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			c.conn.RemoveSignal(in)
			if err := c.conn.RemoveMatchSignal(match...); err != nil {
				c.log.WithError(err).WithField("path", path).Debug("remove match failed")
			}
		})
	}

	log := c.log.WithFields(logrus.Fields{"path": path, "interface": iface})
	log.Debug("subscribed to property changes")

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case sig, ok := <-in:
				if !ok {
					log.Debug("signal channel closed")
					return
				}
				ch, ok := decodeChange(sig)
				if !ok || ch.Path != path || ch.Interface != iface {
					continue
				}
				select {
				case out <- ch:
				case <-done:
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// decodeChange unpacks a PropertiesChanged body (s, a{sv}, as).
func decodeChange(sig *dbus.Signal) (Change, bool) {
	if sig.Name != PropertiesIface+"."+PropertiesChanged || len(sig.Body) < 2 {
		return Change{}, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return Change{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return Change{}, false
	}
	ch := Change{Path: sig.Path, Interface: iface, Changed: changed}
	if len(sig.Body) > 2 {
		ch.Invalidated, _ = sig.Body[2].([]string)
	}
	return ch, true
}

// Export publishes obj under path and iface together with introspection data
// describing every interface exported at that path.
func (c *Conn) Export(obj any, path dbus.ObjectPath, iface string) error {
	if err := c.conn.Export(obj, path, iface); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exported[path] == nil {
		c.exported[path] = make(map[string]any)
	}
	c.exported[path][iface] = obj
	if err := c.publishIntrospection(path); err != nil {
		delete(c.exported[path], iface)
		_ = c.conn.Export(nil, path, iface)
		return err
	}
	c.log.WithFields(logrus.Fields{"path": path, "interface": iface}).Debug("exported object")
	return nil
}

// Unexport removes iface from path. The introspection data goes away with the last
// interface exported at the path.
func (c *Conn) Unexport(path dbus.ObjectPath, iface string) error {
	if err := c.conn.Export(nil, path, iface); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exported[path], iface)
	c.log.WithFields(logrus.Fields{"path": path, "interface": iface}).Debug("unexported object")
	if len(c.exported[path]) == 0 {
		delete(c.exported, path)
		return c.conn.Export(nil, path, introspect.IntrospectData.Name)
	}
	return c.publishIntrospection(path)
}

// publishIntrospection must be called with c.mu held.
func (c *Conn) publishIntrospection(path dbus.ObjectPath) error {
	node := &introspect.Node{
		Name:       string(path),
		Interfaces: []introspect.Interface{introspect.IntrospectData},
	}
	names := make([]string, 0, len(c.exported[path]))
	for name := range c.exported[path] {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		node.Interfaces = append(node.Interfaces, introspect.Interface{
			Name:    name,
			Methods: introspect.Methods(c.exported[path][name]),
		})
	}
	return c.conn.Export(introspect.NewIntrospectable(node), path, introspect.IntrospectData.Name)
}
