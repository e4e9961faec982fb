package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TechXTT/torq/pkg/config"
	"github.com/TechXTT/torq/pkg/runtime"
)

func version() string {
	return "v0.1.0"
}

// NewVersionCmd builds the `version` command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version())
		},
	}
}

// NewRootCmd builds the top-level `torq` command.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "torq",
		Short:         "torq renders and runs PostgreSQL statements",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version(),
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to torq.yaml (default ./torq.yaml)")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}
	root.AddCommand(NewVersionCmd())
	root.AddCommand(NewRenderCmd())
	root.AddCommand(NewQueryCmd(load))
	root.AddCommand(NewPingCmd(load))
	return root
}

type loader func() (*config.Config, error)

// openSession connects with cfg and returns a session logging through
// cmd's error stream.
func openSession(cmd *cobra.Command, cfg *config.Config, dryRun bool) (*sql.DB, *runtime.Session, error) {
	opts := cfg.SessionOptions()
	opts.DryRun = opts.DryRun || dryRun
	opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

	if opts.DryRun {
		return nil, runtime.NewSession(nopPool{}, opts), nil
	}
	db, err := runtime.Open(cfg.Pool())
	if err != nil {
		return nil, nil, err
	}
	return db, runtime.NewSession(runtime.NewDBPool(db), opts), nil
}

// nopPool backs dry-run sessions, which never acquire a connection.
type nopPool struct{}

func (nopPool) Acquire(context.Context) (runtime.Conn, error) {
	return nil, fmt.Errorf("dry-run session cannot acquire a connection")
}

func (nopPool) Release(runtime.Conn) error { return nil }

func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}
