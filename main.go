package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Shared flags.
var (
	cfgFile    string
	busAddress string
	logLevel   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "iwdctl",
		Short:         "iwdctl - talk to the iwd wireless daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+DefaultConfigPath()+")")
	root.PersistentFlags().StringVar(&busAddress, "bus-address", "", "D-Bus address (default: system bus)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(connectCmd())
	root.AddCommand(networksCmd())
	root.AddCommand(monitorSignalCmd())
	root.AddCommand(monitorStationCmd())

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w (see %s --help)", err, cmd.CommandPath())
	})
	return root
}

// loadConfig reads the config file and applies the global flags.
func loadConfig(cmd *cobra.Command) (*Config, logrus.FieldLogger, error) {
	path, explicit := cfgFile, cfgFile != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	cfg, err := LoadConfig(path, explicit)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("bus-address") {
		cfg.BusAddress = busAddress
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}
