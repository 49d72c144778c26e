package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the networks of the last scan, best first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			st, err := c.station()
			if err != nil {
				return err
			}
			nets, err := st.OrderedNetworks(c.ctx)
			if err != nil {
				return fmt.Errorf("GetOrderedNetworks: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SSID\tTYPE\tSIGNAL\tKNOWN\tCONNECTED")
			for _, n := range nets {
				name, err := n.Network.Name(c.ctx)
				if err != nil {
					return err
				}
				typ, err := n.Network.Type(c.ctx)
				if err != nil {
					return err
				}
				_, known, err := n.Network.KnownNetwork(c.ctx)
				if err != nil {
					return err
				}
				connected, err := n.Network.Connected(c.ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%.0f dBm\t%s\t%s\n", name, typ, n.DBm(), yesNo(known), yesNo(connected))
			}
			return w.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
