package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/leapstack-labs/statbank/internal/testutil"
	"github.com/leapstack-labs/statbank/pkg/core"
	"github.com/leapstack-labs/statbank/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func folk1aInfo(t *testing.T) *core.TableInfo {
	t.Helper()
	var info core.TableInfo
	require.NoError(t, json.Unmarshal(testutil.Fixture(t, "folk1a.json"), &info))
	return &info
}

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadQuerySpec(t *testing.T) {
	path := writeSpec(t, `table: FOLK1A
format: BULK
accept: true
selections:
  OMRÅDE: ["000", "101"]
  KØN: "*"
  ALDER: none
  Tid: 2024K1
  area.code: 7
  flag: true
`)

	spec, err := LoadQuerySpec(path)
	require.NoError(t, err)
	assert.Equal(t, "FOLK1A", spec.Table)
	assert.Equal(t, "BULK", spec.Format)
	assert.True(t, spec.Accept)

	tests := []struct {
		dim  string
		kind query.SelectionKind
		ids  []string
	}{
		{dim: "OMRÅDE", kind: query.KindMany, ids: []string{"000", "101"}},
		{dim: "KØN", kind: query.KindAll},
		{dim: "ALDER", kind: query.KindNone},
		{dim: "Tid", kind: query.KindSingle, ids: []string{"2024K1"}},
		{dim: "area.code", kind: query.KindSingle, ids: []string{"7"}},
		{dim: "flag", kind: query.KindAll},
	}
	require.Len(t, spec.Selections, len(tests))
	for _, tt := range tests {
		t.Run(tt.dim, func(t *testing.T) {
			sel, ok := spec.Selections[tt.dim]
			require.True(t, ok)
			assert.Equal(t, tt.kind, sel.Kind())
			if tt.ids != nil {
				assert.Equal(t, tt.ids, sel.IDs())
			}
		})
	}
}

func TestLoadQuerySpec_LeadingZeros(t *testing.T) {
	spec, err := LoadQuerySpec(writeSpec(t, `table: FOLK1A
selections:
  quoted: ["000", "101"]
  bare: [000, 101]
  scalar: "000"
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"000", "101"}, spec.Selections["quoted"].IDs())
	assert.Equal(t, []string{"0", "101"}, spec.Selections["bare"].IDs(), "unquoted ids are read as numbers")
	assert.Equal(t, []string{"000"}, spec.Selections["scalar"].IDs())
}

func TestLoadQuerySpec_Errors(t *testing.T) {
	_, err := LoadQuerySpec(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading query spec")

	_, err = LoadQuerySpec(writeSpec(t, "table: [unclosed"))
	require.Error(t, err)

	_, err = LoadQuerySpec(writeSpec(t, "table: FOLK1A\nselections:\n  Tid:\n    nested: map\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query spec")
}

func TestSelectionHook(t *testing.T) {
	to := reflect.TypeOf(query.Selection{})
	str := reflect.TypeOf("")

	out, err := selectionHook(str, str, "untouched")
	require.NoError(t, err)
	assert.Equal(t, "untouched", out)

	out, err = selectionHook(str, to, nil)
	require.NoError(t, err)
	assert.Equal(t, query.KindNone, out.(query.Selection).Kind())

	out, err = selectionHook(str, to, int64(12))
	require.NoError(t, err)
	assert.Equal(t, []string{"12"}, out.(query.Selection).IDs())

	out, err = selectionHook(str, to, 2.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"2.5"}, out.(query.Selection).IDs())

	_, err = selectionHook(str, to, struct{}{})
	assert.Error(t, err)
}

func TestSaveQuerySpec(t *testing.T) {
	b, err := query.NewBuilder("FOLK1A", folk1aInfo(t))
	require.NoError(t, err)
	require.NoError(t, b.Set("KØN", query.Many("1", "2")))
	require.NoError(t, b.Set("Tid", query.All()))

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, SaveQuerySpec(path, b, query.FormatXLSX))

	spec, err := LoadQuerySpec(path)
	require.NoError(t, err)
	assert.Equal(t, "FOLK1A", spec.Table)
	assert.Equal(t, "XLSX", spec.Format)
	assert.Equal(t, []string{"1", "2"}, spec.Selections["KØN"].IDs())
	assert.Equal(t, []string{"2024K1", "2024K2"}, spec.Selections["Tid"].IDs())

	// A saved spec replays into the same request.
	replay, err := query.NewBuilder("FOLK1A", folk1aInfo(t))
	require.NoError(t, err)
	require.NoError(t, replay.Apply(spec.Selections))
	assert.Equal(t, b.Selections(), replay.Selections())

	assert.Error(t, SaveQuerySpec(filepath.Join(t.TempDir(), "no", "such", "dir.yaml"), b, ""))
}
