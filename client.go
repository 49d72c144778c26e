package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"iwdctl/bus"
	"iwdctl/iwd"
)

// client is what every command works with: a bus connection, a discovered
// session, and a context that ends on SIGINT or SIGTERM.
type client struct {
	cfg     *Config
	log     logrus.FieldLogger
	conn    io.Closer
	session *iwd.Session
	ctx     context.Context
	stop    context.CancelFunc
}

func openClient(cmd *cobra.Command) (*client, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)

	conn, err := bus.Connect(cfg.BusAddress, bus.WithLogger(log))
	if err != nil {
		stop()
		return nil, fmt.Errorf("dbus: %w", err)
	}
	session, err := iwd.NewSession(ctx, conn, cfg.sessionOptions(log)...)
	if err != nil {
		conn.Close()
		stop()
		return nil, err
	}
	log.WithField("service", cfg.Service).Debug("session ready")
	return &client{cfg: cfg, log: log, conn: conn, session: session, ctx: ctx, stop: stop}, nil
}

func (c *client) Close() {
	c.stop()
	if err := c.conn.Close(); err != nil {
		c.log.WithError(err).Debug("close bus connection")
	}
}

// station returns the first station, which is what every example of the
// daemon's own client does.
func (c *client) station() (iwd.Station, error) {
	st, ok := c.session.Station()
	if !ok {
		return iwd.Station{}, fmt.Errorf("no device in station mode")
	}
	return st, nil
}

// cleanupContext outlives the signal context so teardown calls still reach the
// daemon after Ctrl+C.
func cleanupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cleanupTimeout)
}
