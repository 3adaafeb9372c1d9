package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/statbank/internal/cli/output"
	"github.com/leapstack-labs/statbank/internal/cli/prompt"
	"github.com/leapstack-labs/statbank/pkg/query"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Sets   []string
	All    bool
	Spec   string
	Accept bool
	Format string
	DryRun bool
	Out    string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [table]",
		Short: "Build and run an extraction",
		Long: `Select values per dimension and fetch the matching data.

Selections are applied in order: --all, then the spec file, then each --set.
A selection is a comma-separated list of value ids, a single id, "*" or
"all" for every value, or "none" to clear the dimension. Dimensions left
without values are eliminated (aggregated) by the portal where allowed.

Pulls estimated above the safety threshold switch to BULK and ask for
confirmation. Use --accept (or auto_accept_large) to skip the prompt.
A declined pull exits with status 2.`,
		Example: `  # Two regions, every quarter
  statbank query FOLK1A --set OMRÅDE=000,101 --set Tid='*'

  # Show the request without sending it
  statbank query FOLK1A --set Tid=2024K1 --dry-run

  # Replay a saved selection and store the raw result
  statbank query --spec folk.yaml --out folk.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "Selection DIM=VALUES (repeatable)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Select every value of every dimension")
	cmd.Flags().StringVar(&opts.Spec, "spec", "", "Read table and selections from a YAML file")
	cmd.Flags().BoolVar(&opts.Accept, "accept", false, "Accept pulls above the safety threshold without asking")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Override the extraction format (CSV, BULK, JSONSTAT, XLSX, PX)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the request and estimates instead of fetching")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Write the raw response to this file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(query.Formats))
		for i, f := range query.Formats {
			names[i] = string(f)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	var spec *QuerySpec
	if opts.Spec != "" {
		var err error
		if spec, err = LoadQuerySpec(opts.Spec); err != nil {
			return err
		}
	}

	table, err := queryTable(args, spec)
	if err != nil {
		return err
	}

	format := ""
	if spec != nil {
		format = spec.Format
	}
	if opts.Format != "" {
		format = opts.Format
	}
	var buildOpts []query.BuildOption
	if format != "" {
		f, err := query.ParseFormat(format)
		if err != nil {
			return err
		}
		buildOpts = append(buildOpts, query.WithFormat(f))
	}

	accept := opts.Accept || (spec != nil && spec.Accept)
	confirmer := prompt.For(cmd.InOrStdin(), cmd.ErrOrStderr())
	b, err := cmdCtx.Client.NewBuilder(ctx, table, cmdCtx.BuilderOptions(confirmer, accept)...)
	if err != nil {
		return err
	}

	if err := applySelections(b, opts, spec); err != nil {
		return err
	}
	for _, d := range b.Dimensions() {
		if unknown := d.Unknown(); len(unknown) > 0 {
			r.Warning(fmt.Sprintf("%s: unknown value ids %s", d.ID(), strings.Join(unknown, ", ")))
		}
	}

	req, err := b.BuildRequest(ctx, buildOpts...)
	if err != nil {
		return err
	}

	if opts.DryRun {
		return renderDryRun(r, b, req)
	}
	return fetchAndRender(ctx, cmdCtx, req, opts.Out)
}

func queryTable(args []string, spec *QuerySpec) (string, error) {
	if len(args) == 1 {
		return strings.ToUpper(args[0]), nil
	}
	if spec != nil && spec.Table != "" {
		return strings.ToUpper(spec.Table), nil
	}
	return "", fmt.Errorf("a table id is required\nHint: pass it as an argument or set table: in the --spec file")
}

func applySelections(b *query.Builder, opts *QueryOptions, spec *QuerySpec) error {
	if opts.All {
		b.SelectAll()
	}
	if spec != nil {
		if err := b.Apply(spec.Selections); err != nil {
			return err
		}
	}
	for _, s := range opts.Sets {
		dim, sel, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(dim) == "" {
			return fmt.Errorf("invalid --set %q\nHint: use DIMENSION=VALUES, e.g. --set Tid=2024K1,2024K2", s)
		}
		if err := b.Set(strings.TrimSpace(dim), query.ParseSelection(sel)); err != nil {
			return err
		}
	}
	return nil
}

// dryRun is the JSON form of a dry run.
type dryRun struct {
	Link    string         `json:"link"`
	Rows    int64          `json:"rows"`
	Columns int            `json:"columns"`
	Size    int64          `json:"size"`
	Request *query.Request `json:"request"`
}

func renderDryRun(r *output.Renderer, b *query.Builder, req *query.Request) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(dryRun{
			Link:    b.Link(),
			Rows:    b.RowEstimate(),
			Columns: b.ColumnEstimate(),
			Size:    b.SizeEstimate(),
			Request: req,
		})
	}

	body, err := req.JSON()
	if err != nil {
		return err
	}
	r.Header(2, "Request for "+b.TableID())
	renderEstimates(r, b)
	r.KeyValue("Format", string(req.Format))
	r.Println("")
	r.Println(string(body))
	return nil
}

func renderEstimates(r *output.Renderer, b *query.Builder) {
	r.KeyValue("Rows", fmt.Sprintf("%d", b.RowEstimate()))
	r.KeyValue("Columns", fmt.Sprintf("%d", b.ColumnEstimate()))
	r.KeyValue("Size", fmt.Sprintf("%d", b.SizeEstimate()))
	r.KeyValue("Link", b.Link())
}

// fetchAndRender runs the extraction. With an output path the raw body is
// saved, and the file is removed again if the pull fails; otherwise
// delimited results are rendered as a table.
func fetchAndRender(ctx context.Context, cmdCtx *CommandContext, req *query.Request, out string) error {
	r := cmdCtx.Renderer

	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		n, err := cmdCtx.Client.DataTo(ctx, req, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(out)
			return err
		}
		r.Success(fmt.Sprintf("Wrote %d bytes of %s %s to %s", n, req.Table, req.Format, out))
		return nil
	}

	if !req.Format.Delimited() {
		_, err := cmdCtx.Client.DataTo(ctx, req, r.Writer())
		return err
	}

	f, err := cmdCtx.Client.Data(ctx, req)
	if err != nil {
		return err
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(f)
	}
	r.Table(f.Columns, f.Rows)
	r.Muted(fmt.Sprintf("(%d rows)", f.Len()))
	return nil
}
