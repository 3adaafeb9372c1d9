package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/statbank/internal/cli/output"
	"github.com/leapstack-labs/statbank/pkg/core"
	"github.com/leapstack-labs/statbank/pkg/query"
	"github.com/spf13/cobra"
)

// NewValuesCommand creates the values command.
func NewValuesCommand() *cobra.Command {
	var match string

	cmd := &cobra.Command{
		Use:   "values <table> <dimension>",
		Short: "List the values of a dimension",
		Long: `List the value ids and labels one dimension of a table can take.

Use --match to narrow the list with a case-insensitive regular expression
over ids and labels. The ids shown are what --set expects.`,
		Example: `  # All regions of FOLK1A
  statbank values FOLK1A OMRÅDE

  # Only quarters of 2024
  statbank values FOLK1A Tid --match '^2024'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValues(cmd, strings.ToUpper(args[0]), args[1], match)
		},
	}

	cmd.Flags().StringVar(&match, "match", "", "Regular expression over value ids and labels")
	return cmd
}

func runValues(cmd *cobra.Command, table, dimension, match string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	b, err := cmdCtx.Client.NewBuilder(cmd.Context(), table, query.WithLogger(cmdCtx.Logger))
	if err != nil {
		return err
	}
	d, err := b.Dimension(dimension)
	if err != nil {
		return err
	}

	values := d.Values().Values()
	if match != "" {
		if values, err = d.Values().Match(match); err != nil {
			return err
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if values == nil {
			values = []core.Value{}
		}
		return r.JSON(values)
	}

	r.Header(2, fmt.Sprintf("%s %s: %s (%d of %d values)", table, d.ID(), d.Text(), len(values), d.Values().Len()))
	cells := make([][]string, len(values))
	for i, v := range values {
		cells[i] = []string{v.ID, v.Text}
	}
	r.Table([]string{"ID", "Text"}, cells)
	return nil
}
