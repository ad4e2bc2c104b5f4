package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vzahanych/forecast-client-demo/internal/config"
)

// version is overridden at build time with -ldflags "-X .../cmd.version=...".
var version = ""

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := version
			if v == "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				v = cfg.Version
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	}
}
