package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hipsterbrown/chassis-comm/commdev"
	"github.com/hipsterbrown/chassis-comm/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// dispatcher is kept open across commands by the shell.
	dispatcher *commdev.Dispatcher
	inShell    bool

	// openTransport replaces the serial opener when set.
	openTransport commdev.TransportOpener
)

var rootCmd = &cobra.Command{
	Use:   "chassisctl",
	Short: "Chassis device communication tool",
	Long: `Send requests to chassis devices through the port dispatcher.

Examples:
  chassisctl -c chassis.yaml send --type fan --id 1 --fc 0x01
  chassisctl -c chassis.yaml send --type power --id 3 --fc 0x02
  chassisctl -c chassis.yaml ports
  chassisctl -c chassis.yaml shell`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if inShell || dispatcher == nil {
			return nil
		}
		err := dispatcher.Release()
		dispatcher = nil
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "chassis.yaml",
		"path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// openDispatcher loads the configuration and initializes every port, or
// returns the dispatcher already open in this process.
func openDispatcher(ctx context.Context) (*commdev.Dispatcher, error) {
	if dispatcher != nil {
		return dispatcher, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	dc := cfg.ToCommdev(logrus.StandardLogger())
	dc.Opener = openTransport

	d := commdev.New(dc)
	if err := d.Init(ctx); err != nil {
		return nil, err
	}
	dispatcher = d
	return d, nil
}
