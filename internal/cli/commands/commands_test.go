package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/statbank/internal/cli/config"
	clitest "github.com/leapstack-labs/statbank/internal/cli/testutil"
	"github.com/leapstack-labs/statbank/internal/testutil"
	"github.com/leapstack-labs/statbank/pkg/api"
	"github.com/leapstack-labs/statbank/pkg/catalog"
	"github.com/leapstack-labs/statbank/pkg/query"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPortal starts a fake portal and loads a config pointing at it.
// env holds extra KEY=VALUE pairs to set before loading.
func setupPortal(t *testing.T, env ...string) *testutil.Portal {
	t.Helper()
	portal := testutil.NewPortal(t)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("STATBANK_BASE_URL", portal.BaseURL())
	for _, kv := range env {
		key, value, _ := strings.Cut(kv, "=")
		t.Setenv(key, value)
	}

	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	return portal
}

type result struct {
	Out    string
	ErrOut string
}

// execute runs cmd with args; stdin is the given answer text.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (result, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(context.Background())
	return result{Out: out.String(), ErrOut: errOut.String()}, err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewCatalogCommand(), use: "catalog", flags: []string{"search", "category"}},
		{cmd: NewInfoCommand(), use: "info <table>..."},
		{cmd: NewValuesCommand(), use: "values <table> <dimension>", flags: []string{"match"}},
		{cmd: NewQueryCommand(), use: "query [table]", flags: []string{"set", "all", "spec", "accept", "format", "dry-run", "out"}},
		{cmd: NewShellCommand(), use: "shell <table>"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				found := tt.cmd.Flags().Lookup(flag) != nil || tt.cmd.PersistentFlags().Lookup(flag) != nil
				assert.True(t, found, "flag %q should exist", flag)
			}
		})
	}

	var views []string
	for _, sub := range NewCatalogCommand().Commands() {
		views = append(views, sub.Name())
	}
	assert.ElementsMatch(t, []string{"categories", "tables", "variables"}, views)
}

func TestCatalogTables(t *testing.T) {
	setupPortal(t)

	res, err := execute(t, NewCatalogCommand(), "", "tables")
	require.NoError(t, err)
	clitest.AssertNoANSI(t, res.Out)
	clitest.AssertValidMarkdown(t, res.Out)
	assert.Contains(t, res.Out, "# Tables (3 total)")
	assert.Contains(t, res.Out, "| FOLK1A |")
	assert.Contains(t, res.Out, "AKU100")

	res, err = execute(t, NewCatalogCommand(), "", "tables", "--search", "POPULATION")
	require.NoError(t, err)
	assert.Contains(t, res.Out, "FOLK3")
	assert.NotContains(t, res.Out, "AKU100")
}

func TestCatalogJSON(t *testing.T) {
	setupPortal(t, "STATBANK_OUTPUT=json")

	res, err := execute(t, NewCatalogCommand(), "", "categories", "--category", "3402")
	require.NoError(t, err)
	var cats []catalog.CategoryRow
	require.NoError(t, json.Unmarshal([]byte(res.Out), &cats))
	require.Len(t, cats, 1)
	assert.Equal(t, "20031", cats[0].Lvl3ID)
	assert.Equal(t, "FOLK1A", cats[0].TableID)

	res, err = execute(t, NewCatalogCommand(), "", "variables", "--table", "folk1a")
	require.NoError(t, err)
	var vars []catalog.VariableRow
	require.NoError(t, json.Unmarshal([]byte(res.Out), &vars))
	require.Len(t, vars, 5)
	for i, v := range vars {
		assert.Equal(t, i, v.Position)
	}

	res, err = execute(t, NewCatalogCommand(), "", "tables", "--category", "2")
	require.NoError(t, err)
	var tables []catalog.TableRow
	require.NoError(t, json.Unmarshal([]byte(res.Out), &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, "AKU100", tables[0].TableID)
}

func TestInfo(t *testing.T) {
	setupPortal(t)

	res, err := execute(t, NewInfoCommand(), "", "folk1a")
	require.NoError(t, err)
	assert.Contains(t, res.Out, "## FOLK1A: Population on the first day of the quarter")
	assert.Contains(t, res.Out, "https://www.statistikbanken.dk/FOLK1A")
	assert.Contains(t, res.Out, "| Tid | time | mandatory, time | 2 |")
	assert.Contains(t, res.Out, "| OMRÅDE | region | optional | 3 |")
}

func TestInfo_JSONAndFailure(t *testing.T) {
	setupPortal(t, "STATBANK_OUTPUT=json", "STATBANK_CONCURRENCY=2")

	res, err := execute(t, NewInfoCommand(), "", "FOLK1A", "FOLK1A")
	require.NoError(t, err)
	var summaries []TableSummary
	require.NoError(t, json.Unmarshal([]byte(res.Out), &summaries))
	require.Len(t, summaries, 2)
	require.Len(t, summaries[0].Dimensions, 4)
	assert.False(t, summaries[0].Dimensions[3].Eliminable)

	_, err = execute(t, NewInfoCommand(), "", "FOLK1A", "NOPE")
	require.Error(t, err)
	assert.True(t, api.IsRemoteFailure(err))
	assert.Contains(t, err.Error(), "NOPE")
}

func TestValues(t *testing.T) {
	setupPortal(t)

	res, err := execute(t, NewValuesCommand(), "", "FOLK1A", "OMRÅDE", "--match", "copen")
	require.NoError(t, err)
	assert.Contains(t, res.Out, "(1 of 3 values)")
	assert.Contains(t, res.Out, "| 101 | Copenhagen |")
	assert.NotContains(t, res.Out, "Frederiksberg")

	_, err = execute(t, NewValuesCommand(), "", "FOLK1A", "BOGUS")
	var unknown *query.UnknownDimensionError
	require.True(t, errors.As(err, &unknown))
	assert.Contains(t, err.Error(), "Available dimensions: OMRÅDE, KØN, ALDER, Tid")
}

func TestValues_JSON(t *testing.T) {
	setupPortal(t, "STATBANK_OUTPUT=json")

	res, err := execute(t, NewValuesCommand(), "", "FOLK1A", "KØN", "--match", "^zzz")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, res.Out)

	res, err = execute(t, NewValuesCommand(), "", "FOLK1A", "KØN")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"TOT","text":"Total"},{"id":"1","text":"Men"},{"id":"2","text":"Women"}]`, res.Out)
}

func TestMain(m *testing.M) {
	// Commands read the package-level config; keep stray STATBANK_ variables
	// from the developer's shell out of the tests.
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "STATBANK_") {
			_ = os.Unsetenv(name)
		}
	}
	os.Exit(m.Run())
}
