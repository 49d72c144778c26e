package bus

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Registrar describes a local object that a remote service is told about and then
// calls back into.
type Registrar struct {
	// Namespace is the path prefix of the generated object path.
	Namespace string

	// Interface is the interface the object is exported under.
	Interface string

	// Object builds the value to export. It receives the registration so the
	// object can end it when the remote side releases it.
	Object func(*Registration) any

	// Register tells the remote service about path.
	Register func(ctx context.Context, path dbus.ObjectPath) error

	// Unregister is the converse remote call.
	Unregister func(ctx context.Context, path dbus.ObjectPath) error

	Logger logrus.FieldLogger
}

// PublishError is returned when the remote side accepted a registration but the
// object could not be exported. The remote registration is left in place; call
// Registration.Unregister to drop it.
type PublishError struct {
	Registration *Registration
	Err          error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Registration.Path(), e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Registration is a live exported object known to the remote service. It ends on
// Unregister, on a remote release, or when the connection closes.
type Registration struct {
	t          Transport
	path       dbus.ObjectPath
	iface      string
	unregister func(context.Context, dbus.ObjectPath) error
	log        logrus.FieldLogger

	mu    sync.Mutex
	ended bool
	done  chan struct{}
}

// NewObjectPath returns a fresh path below namespace.
func NewObjectPath(namespace string) dbus.ObjectPath {
	id := uuid.New()
	return dbus.ObjectPath(strings.TrimRight(namespace, "/") + "/" + hex.EncodeToString(id[:]))
}

// Register runs the two registration steps in order: the remote call first, then
// the local export. A failed export does not undo the remote call.
func Register(ctx context.Context, t Transport, r Registrar) (*Registration, error) {
	path := NewObjectPath(r.Namespace)
	if !path.IsValid() {
		return nil, fmt.Errorf("%w: namespace %q", ErrInvalidPath, r.Namespace)
	}
	log := r.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	reg := &Registration{
		t:          t,
		path:       path,
		iface:      r.Interface,
		unregister: r.Unregister,
		log:        log.WithFields(logrus.Fields{"path": path, "interface": r.Interface}),
		done:       make(chan struct{}),
	}

	if err := r.Register(ctx, path); err != nil {
		return nil, err
	}
	if err := t.Export(r.Object(reg), path, r.Interface); err != nil {
		reg.log.WithError(err).Warn("registered remotely but export failed")
		return nil, &PublishError{Registration: reg, Err: err}
	}
	reg.log.Debug("registered")
	return reg, nil
}

// Path returns the generated object path.
func (r *Registration) Path() dbus.ObjectPath { return r.path }

// Interface returns the exported interface name.
func (r *Registration) Interface() string { return r.iface }

// Done is closed once the registration has ended.
func (r *Registration) Done() <-chan struct{} { return r.done }

func (r *Registration) end() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return false
	}
	r.ended = true
	return true
}

// Unregister issues the remote unregister call and removes the local object, so
// the path stops being dispatchable. Both steps run even if the first fails.
func (r *Registration) Unregister(ctx context.Context) error {
	if !r.end() {
		return ErrNotRegistered
	}
	defer close(r.done)

	var remoteErr error
	if r.unregister != nil {
		remoteErr = r.unregister(ctx, r.path)
	}
	localErr := r.t.Unexport(r.path, r.iface)
	if localErr != nil {
		localErr = &TransportError{Op: "unexport " + string(r.path), Err: localErr}
	}
	r.log.Debug("unregistered")
	return errors.Join(remoteErr, localErr)
}

// Released ends the registration after the remote service dropped it. Only the
// local object is removed.
func (r *Registration) Released() {
	if !r.end() {
		return
	}
	defer close(r.done)
	if err := r.t.Unexport(r.path, r.iface); err != nil {
		r.log.WithError(err).Warn("unexport after release failed")
	}
	r.log.Debug("released by remote service")
}
