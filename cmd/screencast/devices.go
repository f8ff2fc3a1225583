package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/junsooki/screencast/internal/capture"
)

func newDevicesCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices known to the adb server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configFile, cmd)
			if err != nil {
				return err
			}
			src := capture.NewADBSource(cfg.Device.ADBAddr, time.Duration(cfg.Device.Timeout))
			devices, err := src.Devices(cmd.Context())
			if err != nil {
				return fmt.Errorf("list devices: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERIAL\tSTATE")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\n", d.Serial, d.State)
			}
			return w.Flush()
		},
	}
}
