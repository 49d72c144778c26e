package bus

import (
	"fmt"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"
)

const defaultSystemBus = "unix:path=/var/run/dbus/system_bus_socket"

// SystemBusAddress returns the system bus address, honouring DBUS_SYSTEM_BUS_ADDRESS.
func SystemBusAddress() string {
	if s := os.Getenv("DBUS_SYSTEM_BUS_ADDRESS"); s != "" {
		return s
	}
	return defaultSystemBus
}

// ConnectSystemBus opens a private connection to the system bus.
func ConnectSystemBus(opts ...Option) (*Conn, error) {
	return Connect(SystemBusAddress(), opts...)
}

// Connect dials address, authenticates and sends Hello. An empty address means the
// system bus.
func Connect(address string, opts ...Option) (*Conn, error) {
	if address == "" {
		address = SystemBusAddress()
	}
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	conn, err := dbus.Connect(address)
	if err != nil {
		return nil, &TransportError{Op: "connect", Err: err}
	}
	return NewConn(conn, opts...), nil
}

// checkAddress rejects addresses godbus cannot dial before any socket is opened.
// Multiple addresses separated by ';' are accepted when each one is well formed.
func checkAddress(address string) error {
	for _, addr := range strings.Split(address, ";") {
		transport, params, ok := strings.Cut(addr, ":")
		if !ok || params == "" {
			return fmt.Errorf("bus: malformed address %q", addr)
		}
		switch transport {
		case "unix", "tcp", "nonce-tcp", "unixexec", "launchd":
		default:
			return fmt.Errorf("bus: unsupported transport %q in address %q", transport, addr)
		}
	}
	return nil
}
