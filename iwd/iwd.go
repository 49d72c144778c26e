// Package iwd is a typed client for the net.connman.iwd D-Bus service.
//
// Objects are found through a Session, which takes a catalog of everything the
// daemon exposes. Wrappers such as Station and Network are thin value types over
// a bus.Handle; every accessor is one round trip and nothing is cached.
package iwd

import (
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// Service is the well-known bus name of the daemon.
const Service = "net.connman.iwd"

// ManagerPath hosts the agent manager and the daemon interface.
const ManagerPath = dbus.ObjectPath("/net/connman/iwd")

const (
	AdapterIface               = Service + ".Adapter"
	DeviceIface                = Service + ".Device"
	StationIface               = Service + ".Station"
	StationDiagnosticIface     = Service + ".StationDiagnostic"
	NetworkIface               = Service + ".Network"
	KnownNetworkIface          = Service + ".KnownNetwork"
	AccessPointIface           = Service + ".AccessPoint"
	AccessPointDiagnosticIface = Service + ".AccessPointDiagnostic"
	DaemonIface                = Service + ".Daemon"
	AgentManagerIface          = Service + ".AgentManager"
	AgentIface                 = Service + ".Agent"
	SignalLevelAgentIface      = Service + ".SignalLevelAgent"
)

const (
	DefaultNamespace    = "/iwdctl"
	DefaultAgentTimeout = 2 * time.Minute
)

type options struct {
	log       logrus.FieldLogger
	service   string
	namespace string
	timeout   time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		log:       logrus.StandardLogger(),
		service:   Service,
		namespace: DefaultNamespace,
		timeout:   DefaultAgentTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger used for agent dispatch.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithService talks to a daemon owning another bus name.
func WithService(name string) Option {
	return func(o *options) {
		if name != "" {
			o.service = name
		}
	}
}

// WithNamespace sets the path prefix under which agents are exported.
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithAgentTimeout bounds how long a single agent request may take. Zero disables
// the bound.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}
