package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"iwdctl/bus"
	"iwdctl/iwd"
)

func monitorSignalCmd() *cobra.Command {
	var levels []int
	cmd := &cobra.Command{
		Use:   "monitor-signal",
		Short: "Print the signal level range of the first station as it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			thresholds := c.cfg.SignalLevels
			if cmd.Flags().Changed("levels") {
				thresholds = thresholds[:0:0]
				for _, l := range levels {
					if l < -32768 || l > 32767 {
						return fmt.Errorf("level %d out of range", l)
					}
					thresholds = append(thresholds, int16(l))
				}
			}
			return runMonitorSignal(c, thresholds)
		},
	}
	cmd.Flags().IntSliceVar(&levels, "levels", nil, "thresholds in dBm (default from config)")
	return cmd
}

func runMonitorSignal(c *client, levels []int16) error {
	st, err := c.station()
	if err != nil {
		return err
	}
	reg, err := c.session.RegisterSignalLevelAgent(c.ctx, st, levels, iwd.SignalLevelFunc(
		func(_ context.Context, st iwd.Station, r iwd.LevelRange) {
			fmt.Printf("%s  %s  %s\n", time.Now().Format(time.TimeOnly), st.Path(), r)
		}))
	if err != nil {
		if reg == nil {
			return fmt.Errorf("RegisterSignalLevelAgent: %w", err)
		}
		c.log.WithError(err).Warn("signal level agent registered but not exported")
	}
	c.log.WithField("levels", reg.Thresholds.Levels()).Info("monitoring signal level")

	select {
	case <-c.ctx.Done():
	case <-reg.Done():
		c.log.Info("signal level agent released by daemon")
		return nil
	}
	ctx, cancel := cleanupContext()
	defer cancel()
	if err := reg.Unregister(ctx); err != nil && !errors.Is(err, bus.ErrNotRegistered) {
		return fmt.Errorf("UnregisterSignalLevelAgent: %w", err)
	}
	return nil
}

func monitorStationCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "monitor-station",
		Short: "Follow state and scanning of the first station",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			err = runMonitorStation(c, interval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "how often to print link diagnostics")
	return cmd
}

func runMonitorStation(c *client, interval time.Duration) error {
	st, err := c.station()
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(c.ctx)

	g.Go(func() error {
		states, err := st.StateStream(ctx)
		if err != nil {
			return err
		}
		defer states.Close()
		for state, err := range states.All(ctx) {
			if err != nil {
				if errors.Is(err, bus.ErrSubscriptionClosed) || ctx.Err() != nil {
					return err
				}
				c.log.WithError(err).Warn("read State")
				continue
			}
			fmt.Printf("state: %s\n", state)
		}
		return ctx.Err()
	})

	g.Go(func() error {
		scanning, err := st.ScanningStream(ctx)
		if err != nil {
			return err
		}
		defer scanning.Close()
		for on, err := range scanning.All(ctx) {
			if err != nil {
				if errors.Is(err, bus.ErrSubscriptionClosed) || ctx.Err() != nil {
					return err
				}
				c.log.WithError(err).Warn("read Scanning")
				continue
			}
			fmt.Printf("scanning: %t\n", on)
		}
		return ctx.Err()
	})

	g.Go(func() error {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
			printDiagnostics(ctx, c, st)
		}
	})

	return g.Wait()
}

func printDiagnostics(ctx context.Context, c *client, st iwd.Station) {
	n, ok, err := st.ConnectedNetwork(ctx)
	if err != nil || !ok {
		return
	}
	name, err := n.Name(ctx)
	if err != nil {
		c.log.WithError(err).Warn("read network name")
		return
	}
	d, err := st.Diagnostics().GetDiagnostics(ctx)
	if err != nil {
		c.log.WithError(err).Debug("GetDiagnostics")
		return
	}
	line := fmt.Sprintf("%s via %s on %d MHz (channel %d, %s)", name, d.ConnectedBss, d.Frequency, d.Channel, d.Security)
	if d.RSSI != nil {
		line += fmt.Sprintf(", %d dBm", *d.RSSI)
	}
	if d.RxRateKbps != nil {
		line += fmt.Sprintf(", rx %d kbit/s", *d.RxRateKbps)
	}
	if d.TxRateKbps != nil {
		line += fmt.Sprintf(", tx %d kbit/s", *d.TxRateKbps)
	}
	fmt.Println(line)
}
