// Package bustest provides an in-memory bus.Transport for tests.
//
// Bus plays the remote service: it serves an object tree with properties, answers
// method calls through registered handlers, emits PropertiesChanged to
// subscribers, and keeps the objects the code under test exports so a test can
// call into them the way the remote service would.
package bustest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/godbus/dbus/v5"

	"iwdctl/bus"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("bustest: connection closed")

// subscriptionBuffer is how many changes a subscriber may have pending.
const subscriptionBuffer = 256

// Call is a recorded outbound method call.
type Call struct {
	Dest   string
	Path   dbus.ObjectPath
	Method string
	Args   []any
}

// MethodFunc answers a method call.
type MethodFunc func(args []any) ([]any, error)

type subscriber struct {
	path  dbus.ObjectPath
	iface string
	ch    chan bus.Change
	done  chan struct{}
}

// Bus is an in-memory transport. The zero value is not usable; call New.
type Bus struct {
	mu          sync.Mutex
	dest        string
	objects     map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	methods     map[dbus.ObjectPath]map[string]MethodFunc
	calls       []Call
	gets        map[string]int
	subs        []*subscriber
	exported    map[dbus.ObjectPath]map[string]any
	exportErr   error
	discoverErr error
	getErr      error
	closed      bool
}

// New returns an empty bus serving dest.
func New(dest string) *Bus {
	return &Bus{
		dest:     dest,
		objects:  make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant),
		methods:  make(map[dbus.ObjectPath]map[string]MethodFunc),
		gets:     make(map[string]int),
		exported: make(map[dbus.ObjectPath]map[string]any),
	}
}

var _ bus.Transport = (*Bus)(nil)

// AddObject adds iface with props at path, replacing an earlier definition.
func (b *Bus) AddObject(path dbus.ObjectPath, iface string, props map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects[path] == nil {
		b.objects[path] = make(map[string]map[string]dbus.Variant)
	}
	vs := make(map[string]dbus.Variant, len(props))
	for k, v := range props {
		vs[k] = dbus.MakeVariant(v)
	}
	b.objects[path][iface] = vs
}

// HandleMethod registers fn for an interface-qualified method at path.
func (b *Bus) HandleMethod(path dbus.ObjectPath, method string, fn MethodFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.methods[path] == nil {
		b.methods[path] = make(map[string]MethodFunc)
	}
	b.methods[path][method] = fn
}

// Reply returns a MethodFunc that always answers with body.
func Reply(body ...any) MethodFunc {
	return func([]any) ([]any, error) { return body, nil }
}

// Fail returns a MethodFunc that always answers with the named D-Bus error.
func Fail(name, message string) MethodFunc {
	return func([]any) ([]any, error) {
		return nil, dbus.Error{Name: name, Body: []any{message}}
	}
}

// FailManagedObjects makes the next discoveries fail with err.
func (b *Bus) FailManagedObjects(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discoverErr = err
}

// FailGet makes property reads fail with err until called again with nil.
func (b *Bus) FailGet(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getErr = err
}

// FailExport makes exports fail with err until called again with nil.
func (b *Bus) FailExport(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exportErr = err
}

// Emit changes a property on the remote side and notifies subscribers.
func (b *Bus) Emit(path dbus.ObjectPath, iface, name string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := dbus.MakeVariant(value)
	if props := b.objects[path][iface]; props != nil {
		props[name] = v
	}
	b.notify(bus.Change{Path: path, Interface: iface, Changed: map[string]dbus.Variant{name: v}})
}

// Invalidate notifies subscribers that name changed without sending the value.
func (b *Bus) Invalidate(path dbus.ObjectPath, iface, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notify(bus.Change{Path: path, Interface: iface, Changed: map[string]dbus.Variant{}, Invalidated: []string{name}})
}

// notify must be called with b.mu held.
func (b *Bus) notify(c bus.Change) {
	for _, s := range b.subs {
		if s.path != c.Path || s.iface != c.Interface {
			continue
		}
		select {
		case s.ch <- c:
		case <-s.done:
		default:
			panic(fmt.Sprintf("bustest: subscriber on %s %s has %d pending changes", c.Path, c.Interface, subscriptionBuffer))
		}
	}
}

// Calls returns the recorded method calls in order.
func (b *Bus) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo returns the recorded calls of one method.
func (b *Bus) CallsTo(method string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Gets returns how often a property was read.
func (b *Bus) Gets(path dbus.ObjectPath, iface, name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets[string(path)+" "+iface+"."+name]
}

// Subscribers returns the number of live subscriptions on path and iface.
func (b *Bus) Subscribers(path dbus.ObjectPath, iface string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.subs {
		if s.path == path && s.iface == iface {
			n++
		}
	}
	return n
}

// Exported returns the object exported at path under iface.
func (b *Bus) Exported(path dbus.ObjectPath, iface string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.exported[path][iface]
	return obj, ok
}

// Close simulates losing the connection: subscriptions end and every later
// operation fails with ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}

func (b *Bus) ManagedObjects(ctx context.Context, dest string) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(ctx, dest); err != nil {
		return nil, err
	}
	if b.discoverErr != nil {
		return nil, b.discoverErr
	}
	b.calls = append(b.calls, Call{Dest: dest, Path: bus.RootPath, Method: bus.ManagedObjects})
	out := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant, len(b.objects))
	for path, ifaces := range b.objects {
		cp := make(map[string]map[string]dbus.Variant, len(ifaces))
		for iface, props := range ifaces {
			pp := make(map[string]dbus.Variant, len(props))
			for k, v := range props {
				pp[k] = v
			}
			cp[iface] = pp
		}
		out[path] = cp
	}
	return out, nil
}

func (b *Bus) Call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
	b.mu.Lock()
	if err := b.check(ctx, dest); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	b.calls = append(b.calls, Call{Dest: dest, Path: path, Method: method, Args: args})
	fn := b.methods[path][method]
	b.mu.Unlock()

	if fn == nil {
		return nil, dbus.Error{Name: bus.ErrorUnknownMethod, Body: []any{fmt.Sprintf("no method %s at %s", method, path)}}
	}
	return fn(args)
}

func (b *Bus) GetProperty(ctx context.Context, dest string, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(ctx, dest); err != nil {
		return dbus.Variant{}, err
	}
	b.gets[string(path)+" "+iface+"."+name]++
	if b.getErr != nil {
		return dbus.Variant{}, b.getErr
	}
	props, ok := b.objects[path][iface]
	if !ok {
		return dbus.Variant{}, dbus.Error{Name: bus.ErrorUnknownObject, Body: []any{string(path)}}
	}
	v, ok := props[name]
	if !ok {
		return dbus.Variant{}, dbus.Error{Name: bus.ErrorInvalidArgs, Body: []any{"no such property " + name}}
	}
	return v, nil
}

func (b *Bus) SetProperty(ctx context.Context, dest string, path dbus.ObjectPath, iface, name string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(ctx, dest); err != nil {
		return err
	}
	props, ok := b.objects[path][iface]
	if !ok {
		return dbus.Error{Name: bus.ErrorUnknownObject, Body: []any{string(path)}}
	}
	v := dbus.MakeVariant(value)
	props[name] = v
	b.notify(bus.Change{Path: path, Interface: iface, Changed: map[string]dbus.Variant{name: v}})
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, dest string, path dbus.ObjectPath, iface string) (<-chan bus.Change, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(ctx, dest); err != nil {
		return nil, nil, err
	}
	s := &subscriber{
		path:  path,
		iface: iface,
		ch:    make(chan bus.Change, subscriptionBuffer),
		done:  make(chan struct{}),
	}
	b.subs = append(b.subs, s)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			close(s.done)
			for i, other := range b.subs {
				if other == s {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
		})
	}
	return s.ch, cancel, nil
}

func (b *Bus) Export(obj any, path dbus.ObjectPath, iface string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.exportErr != nil {
		return b.exportErr
	}
	if b.exported[path] == nil {
		b.exported[path] = make(map[string]any)
	}
	b.exported[path][iface] = obj
	return nil
}

func (b *Bus) Unexport(path dbus.ObjectPath, iface string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.exported[path], iface)
	if len(b.exported[path]) == 0 {
		delete(b.exported, path)
	}
	return nil
}

// check must be called with b.mu held.
func (b *Bus) check(ctx context.Context, dest string) error {
	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if dest != b.dest {
		return dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown", Body: []any{dest}}
	}
	return nil
}

// Dispatch calls a method of an exported object the way godbus would for an
// inbound call: methods must return *dbus.Error last, arguments are matched
// positionally, and unknown methods produce UnknownMethod. A path or interface
// with nothing exported yields UnknownInterface, as godbus answers such calls
// through its fallback subtree object rather than with UnknownObject.
func (b *Bus) Dispatch(ctx context.Context, path dbus.ObjectPath, iface, method string, args ...any) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj, ok := b.Exported(path, iface)
	if !ok {
		return nil, dbus.NewError(bus.ErrorUnknownInterface, []any{fmt.Sprintf("object %s does not implement %s", path, iface)})
	}

	m := reflect.ValueOf(obj).MethodByName(method)
	errType := reflect.TypeOf((*dbus.Error)(nil))
	if !m.IsValid() || m.Type().NumOut() == 0 || m.Type().Out(m.Type().NumOut()-1) != errType {
		return nil, dbus.NewError(bus.ErrorUnknownMethod, []any{fmt.Sprintf("no method %s.%s", iface, method)})
	}

	mt := m.Type()
	if mt.NumIn() != len(args) {
		return nil, dbus.NewError(bus.ErrorInvalidArgs, []any{fmt.Sprintf("%s wants %d arguments, got %d", method, mt.NumIn(), len(args))})
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		av := reflect.ValueOf(arg)
		want := mt.In(i)
		switch {
		case !av.IsValid():
			return nil, dbus.NewError(bus.ErrorInvalidArgs, []any{fmt.Sprintf("argument %d is nil", i)})
		case av.Type().AssignableTo(want):
		case av.Type().ConvertibleTo(want) && av.Kind() == want.Kind():
			av = av.Convert(want)
		default:
			return nil, dbus.NewError(bus.ErrorInvalidArgs, []any{fmt.Sprintf("argument %d: want %s, got %s", i, want, av.Type())})
		}
		in[i] = av
	}

	out := m.Call(in)
	last := out[len(out)-1]
	if !last.IsNil() {
		return nil, last.Interface().(*dbus.Error)
	}
	body := make([]any, 0, len(out)-1)
	for _, o := range out[:len(out)-1] {
		body = append(body, o.Interface())
	}
	return body, nil
}
