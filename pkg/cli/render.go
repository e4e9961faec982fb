package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TechXTT/torq/internal/core"
)

type rendered struct {
	SQL    string `yaml:"sql"`
	Params []any  `yaml:"params,omitempty"`
}

// NewRenderCmd builds the `render` command, which prints a SELECT built from
// a filter document without connecting.
func NewRenderCmd() *cobra.Command {
	var (
		from    string
		fields  []string
		filter  string
		inline  bool
		anyOf   bool
		orderBy string
		desc    bool
		limit   int
		offset  int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a SELECT statement from a filter document",
		Example: `  torq render --from users --fields id,firstName --filter filter.yaml --limit 10
  echo '{age: {op: ">", value: 18}}' | torq render --from users --filter -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			qb := core.Select(from, fields...)
			if filter != "" {
				data, err := readFilter(cmd, filter)
				if err != nil {
					return err
				}
				groups, err := core.ParseGroups(data)
				if err != nil {
					return err
				}
				opts := core.WhereOptions{Inline: inline}
				if anyOf {
					opts.InterOp = core.Or
				}
				qb = qb.WhereWith(opts, groups...)
			}
			if orderBy != "" {
				dir := core.Asc
				if desc {
					dir = core.Desc
				}
				qb = qb.OrderBy(orderBy, dir)
			}
			if limit > 0 {
				qb = qb.Limit(limit)
			}
			if offset > 0 {
				qb = qb.Offset(offset)
			}

			sql, params, err := qb.Generate()
			if err != nil {
				return err
			}
			return writeYAML(cmd, rendered{SQL: sql, Params: params})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "table or FROM expression")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "comma separated field list (default *)")
	cmd.Flags().StringVar(&filter, "filter", "", "YAML or JSON filter document, - for stdin")
	cmd.Flags().BoolVar(&inline, "inline", false, "render literals instead of $n placeholders")
	cmd.Flags().BoolVar(&anyOf, "any", false, "join filter groups with OR")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "field to order by")
	cmd.Flags().BoolVar(&desc, "desc", false, "order descending")
	cmd.Flags().IntVar(&limit, "limit", 0, "LIMIT")
	cmd.Flags().IntVar(&offset, "offset", 0, "OFFSET")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func readFilter(cmd *cobra.Command, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read filter: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter: %w", err)
	}
	return data, nil
}
