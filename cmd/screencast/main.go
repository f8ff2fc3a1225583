// Command screencast mirrors an Android device (or a local display) into a
// window, records it and relays it to remote viewers.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/junsooki/screencast/internal/config"
	"github.com/junsooki/screencast/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "screencast",
		Short:         "Mirror, annotate and record a device screen",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runHost(ctx, cfg)
		},
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a TOML configuration file")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newDevicesCmd(&configFile))
	return cmd
}

func loadConfig(path string, cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return cfg, fmt.Errorf("configuration: %w", err)
	}
	logging.Setup(cfg.Logging)
	return cfg, nil
}
