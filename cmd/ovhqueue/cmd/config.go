package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arturoibarra/ovh-fleet/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved server configuration",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cobraCmd.OutOrStdout()
			fmt.Fprintf(out, "server.port:                 %s\n", cfg.Server.Port)
			fmt.Fprintf(out, "auth.enabled:                %v\n", cfg.Auth.Enabled)
			fmt.Fprintf(out, "log.level:                   %s\n", cfg.Log.Level)
			fmt.Fprintf(out, "log.pretty:                  %v\n", cfg.Log.Pretty)
			fmt.Fprintf(out, "scheduler.tickSeconds:       %d\n", cfg.Scheduler.TickSeconds)
			fmt.Fprintf(out, "scheduler.workers:           %d (0 = derived from account count)\n", cfg.Scheduler.Workers)
			fmt.Fprintf(out, "monitor.tickSeconds:         %d\n", cfg.Monitor.TickSeconds)
			fmt.Fprintf(out, "ovh.httpTimeoutSeconds:      %d\n", cfg.OVH.HTTPTimeoutSeconds)
			fmt.Fprintf(out, "paths.dataDir:               %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "paths.cacheDir:              %s\n", cfg.Paths.CacheDir)
			fmt.Fprintf(out, "paths.logDir:                %s\n", cfg.Paths.LogDir)
			return nil
		},
	}
}
