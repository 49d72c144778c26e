package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"iwdctl/bus"
	"iwdctl/iwd"
)

const cleanupTimeout = 5 * time.Second

func connectCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "connect <ssid>",
		Short: "Connect the first station to a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			var agent iwd.Agent = &promptAgent{ssid: args[0], term: stdinTerminal}
			if cmd.Flags().Changed("passphrase") {
				agent = iwd.PassphraseAgent{Passphrase: passphrase}
			}
			return runConnect(c, args[0], agent)
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase to answer with (default: prompt)")
	return cmd
}

func runConnect(c *client, ssid string, agent iwd.Agent) error {
	st, err := c.station()
	if err != nil {
		return err
	}
	reg, err := c.session.RegisterAgent(c.ctx, agent)
	if err != nil {
		if reg == nil {
			return fmt.Errorf("RegisterAgent: %w", err)
		}
		c.log.WithError(err).Warn("agent registered but not exported")
	}
	defer func() {
		ctx, cancel := cleanupContext()
		defer cancel()
		if err := reg.Unregister(ctx); err != nil && !errors.Is(err, bus.ErrNotRegistered) {
			c.log.WithError(err).Warn("unregister agent")
		}
	}()

	network, found, err := findNetwork(c.ctx, st, ssid)
	if err != nil {
		return err
	}
	if !found {
		c.log.WithField("ssid", ssid).Info("not in the last scan, scanning")
		if err := scanAndWait(c.ctx, st); err != nil {
			return err
		}
		if network, found, err = findNetwork(c.ctx, st, ssid); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("network %q not found", ssid)
	}

	if err := network.Connect(c.ctx); err != nil {
		return fmt.Errorf("Connect: %w", err)
	}
	fmt.Printf("Connected to %s\n", ssid)
	return nil
}

func findNetwork(ctx context.Context, st iwd.Station, ssid string) (iwd.Network, bool, error) {
	nets, err := st.OrderedNetworks(ctx)
	if err != nil {
		return iwd.Network{}, false, fmt.Errorf("GetOrderedNetworks: %w", err)
	}
	for _, n := range nets {
		name, err := n.Network.Name(ctx)
		if err != nil {
			return iwd.Network{}, false, err
		}
		if name == ssid {
			return n.Network, true, nil
		}
	}
	return iwd.Network{}, false, nil
}

// scanAndWait starts a scan, or joins the one in progress, and returns once a
// change of the Scanning property reads false.
func scanAndWait(ctx context.Context, st iwd.Station) error {
	scanning, err := st.ScanningStream(ctx)
	if err != nil {
		return err
	}
	defer scanning.Close()

	if err := st.Scan(ctx); err != nil && !errors.Is(err, iwd.ReasonBusy) {
		return fmt.Errorf("Scan: %w", err)
	}
	initial := true
	for on, err := range scanning.All(ctx) {
		if err != nil {
			return err
		}
		if initial {
			initial = false
			continue
		}
		if !on {
			return nil
		}
	}
	return ctx.Err()
}

// promptAgent asks for credentials on the terminal.
type promptAgent struct {
	iwd.BaseAgent
	ssid string
	term *terminal
}

func (a *promptAgent) RequestPassphrase(ctx context.Context, _ iwd.Network) (string, error) {
	return a.term.prompt(ctx, fmt.Sprintf("Passphrase for %s: ", a.ssid))
}

func (a *promptAgent) RequestUserNameAndPassword(ctx context.Context, _ iwd.Network) (string, string, error) {
	user, err := a.term.prompt(ctx, fmt.Sprintf("User name for %s: ", a.ssid))
	if err != nil {
		return "", "", err
	}
	pass, err := a.term.prompt(ctx, "Password: ")
	return user, pass, err
}

func (a *promptAgent) RequestUserPassword(ctx context.Context, _ iwd.Network, user string) (string, error) {
	return a.term.prompt(ctx, fmt.Sprintf("Password for %s: ", user))
}

func (a *promptAgent) Cancel(reason iwd.CancelReason) {
	fmt.Fprintf(a.term.out, "\r\033[K[System]: request canceled (%s)\n", reason)
}

// terminal reads input lines from a single goroutine, so a prompt abandoned on
// cancellation leaves the next line to the next prompt.
type terminal struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan string
}

var stdinTerminal = newTerminal(os.Stdin, os.Stdout)

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out, lines: make(chan string)}
}

func (t *terminal) read() {
	defer close(t.lines)
	for {
		s, err := t.in.ReadString('\n')
		if s != "" {
			t.lines <- strings.TrimSpace(s)
		}
		if err != nil {
			return
		}
	}
}

func (t *terminal) prompt(ctx context.Context, label string) (string, error) {
	t.once.Do(func() { go t.read() })
	fmt.Fprint(t.out, label)
	select {
	case s, ok := <-t.lines:
		if !ok || s == "" {
			return "", iwd.ErrCanceled
		}
		return s, nil
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return "", context.Cause(ctx)
	}
}
