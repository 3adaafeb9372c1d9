package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/statbank/internal/cli/output"
	"github.com/leapstack-labs/statbank/pkg/query"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// TableSummary is the info command's view of one table.
type TableSummary struct {
	Table      string              `json:"table"`
	Text       string              `json:"text"`
	Unit       string              `json:"unit,omitempty"`
	Updated    string              `json:"updated,omitempty"`
	Link       string              `json:"link"`
	Dimensions []query.Description `json:"dimensions"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <table>...",
		Short: "Show the dimensions of one or more tables",
		Long: `Fetch table metadata and list each dimension with its value count.

A dimension marked mandatory cannot be eliminated: it is always broken out
in the result, whether or not values are selected for it. Several tables are
fetched concurrently (see the concurrency setting).`,
		Example: `  # Dimensions of FOLK1A
  statbank info FOLK1A

  # Several tables as JSON
  statbank info FOLK1A FOLK3 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args)
		},
	}
}

func runInfo(cmd *cobra.Command, tables []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	summaries := make([]TableSummary, len(tables))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(cmdCtx.Cfg.Concurrency)

	for i, id := range tables {
		id := strings.ToUpper(id)
		g.Go(func() error {
			info, err := cmdCtx.Client.TableInfo(ctx, id)
			if err != nil {
				return fmt.Errorf("table %s: %w", id, err)
			}
			b, err := query.NewBuilder(id, info, query.WithLogger(cmdCtx.Logger))
			if err != nil {
				return err
			}

			s := TableSummary{
				Table:   id,
				Text:    info.Text,
				Unit:    info.Unit,
				Updated: info.Updated,
				Link:    b.Link(),
			}
			for _, d := range b.Dimensions() {
				s.Dimensions = append(s.Dimensions, d.Describe())
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(summaries)
	}
	for _, s := range summaries {
		renderSummary(r, s)
	}
	return nil
}

func renderSummary(r *output.Renderer, s TableSummary) {
	r.Header(2, s.Table+": "+s.Text)
	if s.Unit != "" {
		r.KeyValue("Unit", s.Unit)
	}
	if s.Updated != "" {
		r.KeyValue("Updated", s.Updated)
	}
	r.KeyValue("Link", s.Link)
	r.Println("")

	cells := make([][]string, len(s.Dimensions))
	for i, d := range s.Dimensions {
		kind := "optional"
		if !d.Eliminable {
			kind = "mandatory"
		}
		if d.Time {
			kind += ", time"
		}
		cells[i] = []string{d.ID, d.Text, kind, strconv.Itoa(d.TotalValues)}
	}
	r.Table([]string{"Dimension", "Text", "Kind", "Values"}, cells)
	r.Println("")
}
