package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TechXTT/torq/pkg/runtime"
)

// NewPingCmd builds the `ping` command.
func NewPingCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := runtime.Open(cfg.Pool())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			cmd.Println("ok")
			return nil
		},
	}
}
