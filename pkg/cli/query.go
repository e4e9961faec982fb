package cli

import (
	"github.com/spf13/cobra"

	"github.com/TechXTT/torq/pkg/runtime"
)

// NewQueryCmd builds the `query` command. Rows are printed as YAML; with
// --dry-run the session log is printed instead.
func NewQueryCmd(load loader) *cobra.Command {
	var (
		params []string
		dryRun bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "query SQL",
		Short:   "Run a SELECT through a session",
		Example: `  torq query 'SELECT * FROM users WHERE id = $1' --param 7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, s, err := openSession(cmd, cfg, dryRun)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}
			defer func() { _ = s.Release() }()

			bound := make([]any, len(params))
			for i, p := range params {
				bound[i] = p
			}
			rows, err := s.Select(cmd.Context(), runtime.SelectQuery{Query: args[0], Params: bound, Limit: limit})
			if err != nil {
				return err
			}
			if s.Options().DryRun {
				return writeYAML(cmd, s.Logs())
			}
			return writeYAML(cmd, rows)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "positional parameter, repeat for $2, $3, ...")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement instead of running it")
	cmd.Flags().IntVar(&limit, "limit", 0, "append LIMIT")
	return cmd
}
