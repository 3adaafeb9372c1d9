package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/statbank/internal/cli/output"
	"github.com/leapstack-labs/statbank/internal/cli/prompt"
	"github.com/leapstack-labs/statbank/pkg/query"
	"github.com/spf13/cobra"
)

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

// NewShellCommand creates the interactive selection shell.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <table>",
		Short: "Interactively select dimensions and fetch data",
		Long: `Open a prompt for one table. Choose values per dimension, watch the
size estimates, preview the request and fetch or save it.

Type help inside the shell for the list of commands.`,
		Example: `  statbank shell FOLK1A`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, strings.ToUpper(args[0]))
		},
	}
}

// shellSession is the state behind one shell: a builder and its I/O.
type shellSession struct {
	cmdCtx  *CommandContext
	builder *query.Builder
	r       *output.Renderer
}

func runShell(cmd *cobra.Command, table string) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)

	// The gate prompt reads through the shell's readline instance.
	var confirmer *prompt.ReadlineConfirmer
	confirm := query.ConfirmFunc(func(ctx context.Context, p string) (bool, error) {
		return confirmer.Confirm(ctx, p)
	})
	b, err := cmdCtx.Client.NewBuilder(ctx, table, cmdCtx.BuilderOptions(confirm, false)...)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          strings.ToLower(table) + "> ",
		HistoryFile:     shellHistoryFile(),
		AutoComplete:    newShellCompleter(b),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()
	confirmer = prompt.NewReadlineConfirmer(rl)

	s := &shellSession{cmdCtx: cmdCtx, builder: b, r: cmdCtx.Renderer}
	s.r.Printf("statbank shell for %s (%s)\n", table, b.Link())
	s.r.Println("Type help for commands, quit to exit")
	s.r.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if err := s.exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			s.r.Error(err.Error())
		}
	}
	return nil
}

func shellHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "statbank")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "shell_history")
}

// exec runs one shell line.
func (s *shellSession) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "quit", "exit":
		return errQuit
	case "help":
		printShellHelp(s.r.Writer())
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: set <dimension> <values>")
		}
		if err := s.builder.Set(args[0], query.ParseSelection(strings.Join(args[1:], ","))); err != nil {
			return err
		}
		s.estimate()
	case "all":
		s.builder.SelectAll()
		s.estimate()
	case "clear":
		if len(args) == 0 {
			for _, d := range s.builder.Dimensions() {
				d.SetSelection(query.None())
			}
		} else if err := s.builder.Set(args[0], query.None()); err != nil {
			return err
		}
		s.estimate()
	case "dims":
		s.dims()
	case "values":
		if len(args) == 0 {
			return fmt.Errorf("usage: values <dimension> [pattern]")
		}
		return s.values(args[0], strings.Join(args[1:], " "))
	case "estimate":
		renderEstimates(s.r, s.builder)
	case "request":
		req, err := s.builder.BuildRequest(ctx)
		if err != nil {
			return err
		}
		body, err := req.JSON()
		if err != nil {
			return err
		}
		s.r.Println(string(body))
	case "fetch":
		req, err := s.builder.BuildRequest(ctx)
		if err != nil {
			return err
		}
		out := ""
		if len(args) > 0 {
			out = args[0]
		}
		return fetchAndRender(ctx, s.cmdCtx, req, out)
	case "save":
		if len(args) != 1 {
			return fmt.Errorf("usage: save <file>")
		}
		if err := SaveQuerySpec(args[0], s.builder, ""); err != nil {
			return err
		}
		s.r.Success("Saved selections to " + args[0])
	default:
		return fmt.Errorf("unknown command: %s (type help for commands)", command)
	}
	return nil
}

func (s *shellSession) estimate() {
	s.r.Muted(fmt.Sprintf("rows %d, columns %d", s.builder.RowEstimate(), s.builder.ColumnEstimate()))
}

func (s *shellSession) dims() {
	cells := make([][]string, 0)
	for _, d := range s.builder.Dimensions() {
		desc := d.Describe()
		kind := "optional"
		if !desc.Eliminable {
			kind = "mandatory"
		}
		cells = append(cells, []string{
			desc.ID,
			desc.Text,
			kind,
			fmt.Sprintf("%d/%d", desc.SelectedCount, desc.TotalValues),
		})
	}
	s.r.Table([]string{"Dimension", "Text", "Kind", "Selected"}, cells)
}

func (s *shellSession) values(dimension, pattern string) error {
	d, err := s.builder.Dimension(dimension)
	if err != nil {
		return err
	}
	values := d.Values().Values()
	if pattern != "" {
		if values, err = d.Values().Match(pattern); err != nil {
			return err
		}
	}

	chosen := make(map[string]bool)
	for _, id := range d.Chosen() {
		chosen[id] = true
	}
	cells := make([][]string, len(values))
	for i, v := range values {
		mark := ""
		if chosen[v.ID] {
			mark = "*"
		}
		cells[i] = []string{mark, v.ID, v.Text}
	}
	s.r.Table([]string{"", "ID", "Text"}, cells)
	return nil
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  set <dim> <values>   Select values (ids separated by commas or spaces, * for all, none to clear)
  all                  Select every value of every dimension
  clear [dim]          Clear one dimension, or all of them
  dims                 Show dimensions and selection counts
  values <dim> [re]    List a dimension's values, optionally filtered
  estimate             Show row, column and size estimates
  request              Print the request body
  fetch [file]         Fetch the data, optionally saving the raw body
  save <file>          Save the selections as a query spec file
  help                 Show this help message
  quit / exit          Leave the shell
`
	_, _ = fmt.Fprintln(w, help)
}

// newShellCompleter completes commands and dimension ids.
func newShellCompleter(b *query.Builder) *readline.PrefixCompleter {
	dims := make([]readline.PrefixCompleterInterface, 0)
	for _, d := range b.Dimensions() {
		dims = append(dims, readline.PcItem(d.ID()))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("set", dims...),
		readline.PcItem("clear", dims...),
		readline.PcItem("values", dims...),
		readline.PcItem("all"),
		readline.PcItem("dims"),
		readline.PcItem("estimate"),
		readline.PcItem("request"),
		readline.PcItem("fetch"),
		readline.PcItem("save"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}
