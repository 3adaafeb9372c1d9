package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/statbank/internal/cli/output"
	"github.com/leapstack-labs/statbank/pkg/catalog"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
)

// CatalogOptions holds filters shared by the catalog views.
type CatalogOptions struct {
	Search   string
	Category string
	Table    string
}

// NewCatalogCommand creates the catalog command and its views.
func NewCatalogCommand() *cobra.Command {
	opts := &CatalogOptions{}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the subject catalog",
		Long: `Fetch the portal's subject tree and show one of its normalized views.

Views:
  categories  One row per (level 1, level 2, level 3, table) path
  tables      One row per table
  variables   One row per (table, variable)

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown tables (agent-friendly)

Use --output json for machine-readable rows.`,
		Example: `  # Tables whose id or title mentions population
  statbank catalog tables --search population

  # Everything filed under subject 3401
  statbank catalog categories --category 3401

  # Variables of one table as JSON
  statbank catalog variables --table FOLK1A -o json`,
	}

	cmd.PersistentFlags().StringVar(&opts.Search, "search", "", "Only tables whose id or title contains this text")
	cmd.PersistentFlags().StringVar(&opts.Category, "category", "", "Only entries under this subject id (any level)")

	variables := newCatalogViewCommand("variables", "List table variables", opts)
	variables.Flags().StringVar(&opts.Table, "table", "", "Only variables of this table")

	cmd.AddCommand(
		newCatalogViewCommand("categories", "List the category hierarchy", opts),
		newCatalogViewCommand("tables", "List tables", opts),
		variables,
	)
	return cmd
}

func newCatalogViewCommand(view, short string, opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:   view,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd, view, opts)
		},
	}
}

func runCatalog(cmd *cobra.Command, view string, opts *CatalogOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	cat, err := cmdCtx.Client.Catalog(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	switch view {
	case "categories":
		rows := filterCategories(cat, opts)
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(rows)
		}
		renderCategories(r, rows)
	case "tables":
		rows := filterTables(cat, opts)
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(rows)
		}
		renderTables(r, rows)
	default:
		rows := filterVariables(cat, opts)
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(rows)
		}
		renderVariables(r, rows)
	}
	return nil
}

func filterTables(cat *catalog.Catalog, opts *CatalogOptions) []catalog.TableRow {
	rows := cat.Tables
	if opts.Category != "" {
		rows = cat.InCategory(opts.Category)
	}
	if opts.Search == "" {
		return rows
	}

	matched := make(map[string]bool)
	for _, t := range cat.Search(opts.Search) {
		matched[t.TableID] = true
	}
	out := make([]catalog.TableRow, 0, len(rows))
	for _, t := range rows {
		if matched[t.TableID] {
			out = append(out, t)
		}
	}
	return out
}

func filterCategories(cat *catalog.Catalog, opts *CatalogOptions) []catalog.CategoryRow {
	fold := cases.Fold()
	needle := fold.String(opts.Search)

	out := make([]catalog.CategoryRow, 0, len(cat.Categories))
	for _, c := range cat.Categories {
		if opts.Category != "" && c.Lvl1ID != opts.Category && c.Lvl2ID != opts.Category && c.Lvl3ID != opts.Category {
			continue
		}
		if needle != "" {
			text := fold.String(strings.Join([]string{c.Lvl1Desc, c.Lvl2Desc, c.Lvl3Desc, c.TableID}, " "))
			if !strings.Contains(text, needle) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func filterVariables(cat *catalog.Catalog, opts *CatalogOptions) []catalog.VariableRow {
	var tables map[string]bool
	if opts.Search != "" || opts.Category != "" {
		tables = make(map[string]bool)
		for _, t := range filterTables(cat, opts) {
			tables[t.TableID] = true
		}
	}

	out := make([]catalog.VariableRow, 0, len(cat.Variables))
	for _, v := range cat.Variables {
		if opts.Table != "" && !strings.EqualFold(v.TableID, opts.Table) {
			continue
		}
		if tables != nil && !tables[v.TableID] {
			continue
		}
		out = append(out, v)
	}
	return out
}

func renderCategories(r *output.Renderer, rows []catalog.CategoryRow) {
	r.Header(1, fmt.Sprintf("Categories (%d rows)", len(rows)))
	cells := make([][]string, len(rows))
	for i, c := range rows {
		cells[i] = []string{c.Lvl1ID, c.Lvl1Desc, c.Lvl2ID, c.Lvl2Desc, c.Lvl3ID, c.Lvl3Desc, c.TableID}
	}
	r.Table([]string{"Lvl1", "Subject", "Lvl2", "Subject", "Lvl3", "Subject", "Table"}, cells)
}

func renderTables(r *output.Renderer, rows []catalog.TableRow) {
	r.Header(1, fmt.Sprintf("Tables (%d total)", len(rows)))
	cells := make([][]string, len(rows))
	for i, t := range rows {
		cells[i] = []string{
			t.TableID,
			t.Name,
			t.Lvl3Desc,
			t.FirstPeriod + " - " + t.LatestPeriod,
			strings.Join(t.Variables, ", "),
		}
	}
	r.Table([]string{"Table", "Name", "Subject", "Periods", "Variables"}, cells)
}

func renderVariables(r *output.Renderer, rows []catalog.VariableRow) {
	r.Header(1, fmt.Sprintf("Variables (%d rows)", len(rows)))
	cells := make([][]string, len(rows))
	for i, v := range rows {
		cells[i] = []string{v.TableID, strconv.Itoa(v.Position), v.Variable, v.Lvl3Desc}
	}
	r.Table([]string{"Table", "#", "Variable", "Subject"}, cells)
}
