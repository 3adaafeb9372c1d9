package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/statbank/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "subjects.json"))
	require.NoError(t, err)

	c, err := NormalizeJSON(data)
	require.NoError(t, err)
	return c
}

func TestNormalizeJSON_Views(t *testing.T) {
	c := loadFixture(t)

	assert.Len(t, c.Categories, 6)
	assert.Equal(t, []string{"FOLK1A", "FOLK3", "AKU100"}, c.TableIDs())
	assert.Len(t, c.Variables, 9)
}

func TestNormalizeJSON_TablesAppearOnce(t *testing.T) {
	c := loadFixture(t)

	counts := make(map[string]int)
	for _, row := range c.Tables {
		counts[row.TableID]++
	}
	for id, n := range counts {
		assert.Equal(t, 1, n, "table %s should appear exactly once", id)
	}

	folk, ok := c.Table("FOLK1A")
	require.True(t, ok)
	assert.Equal(t, "20021", folk.Lvl3ID, "first occurrence wins")
	assert.Equal(t, "Population figures", folk.Lvl3Desc)
	assert.Equal(t, "2008K1", folk.FirstPeriod)
	assert.Equal(t, "2024K2", folk.LatestPeriod)
	assert.Equal(t, []string{"region", "sex", "age", "marital status", "time"}, folk.Variables)

	updated, err := folk.UpdatedTime()
	require.NoError(t, err)
	assert.Equal(t, 2024, updated.Year())
}

func TestNormalizeJSON_TablelessSubjectsKeptInCategories(t *testing.T) {
	c := loadFixture(t)

	var tableless []string
	for _, row := range c.Categories {
		if row.TableID == "" {
			tableless = append(tableless, row.Lvl3ID)
		}
	}
	assert.ElementsMatch(t, []string{"20022", "20023"}, tableless)

	for _, row := range c.Tables {
		assert.NotEqual(t, "20022", row.Lvl3ID)
		assert.NotEqual(t, "20023", row.Lvl3ID)
	}
}

func TestNormalizeJSON_CategoryRowsCarryAllLevels(t *testing.T) {
	c := loadFixture(t)

	var municipal *CategoryRow
	for i := range c.Categories {
		if c.Categories[i].Lvl3ID == "20031" {
			municipal = &c.Categories[i]
		}
	}
	require.NotNil(t, municipal, "numeric lvl3 id is coerced to a string")
	assert.Equal(t, CategoryRow{
		Lvl1ID: "1", Lvl1Desc: "People", Lvl1Active: true,
		Lvl2ID: "3402", Lvl2Desc: "Regions", Lvl2Active: true,
		Lvl3ID: "20031", Lvl3Desc: "Municipal figures", Lvl3Active: true,
		TableID: "FOLK1A",
	}, *municipal)
}

func TestNormalizeJSON_VariableOrderPreserved(t *testing.T) {
	c := loadFixture(t)

	rows := c.VariablesOf("FOLK3")
	require.Len(t, rows, 4)
	for i, row := range rows {
		assert.Equal(t, i, row.Position)
		assert.Equal(t, "FOLK3", row.TableID)
	}
	assert.Equal(t, "day of birth", rows[0].Variable)
	assert.Equal(t, "time", rows[3].Variable)

	assert.Empty(t, c.VariablesOf("AKU100"), "table without variables has no variable rows")
	_, ok := c.Table("AKU100")
	assert.True(t, ok)
}

func TestNormalize_Errors(t *testing.T) {
	leaf := core.Subject{ID: "30", Description: "leaf"}

	tests := []struct {
		name      string
		tree      []core.Subject
		wantLevel Level
	}{
		{
			name:      "lvl1 missing subjects",
			tree:      []core.Subject{{ID: "1"}},
			wantLevel: LevelOne,
		},
		{
			name:      "lvl1 missing id",
			tree:      []core.Subject{{Subjects: []core.Subject{}}},
			wantLevel: LevelOne,
		},
		{
			name:      "lvl2 missing subjects",
			tree:      []core.Subject{{ID: "1", Subjects: []core.Subject{{ID: "2"}}}},
			wantLevel: LevelTwo,
		},
		{
			name: "lvl3 missing id",
			tree: []core.Subject{{ID: "1", Subjects: []core.Subject{{ID: "2", Subjects: []core.Subject{
				{Description: "anonymous"},
			}}}}},
			wantLevel: LevelThree,
		},
		{
			name: "table missing id",
			tree: []core.Subject{{ID: "1", Subjects: []core.Subject{{ID: "2", Subjects: []core.Subject{
				{ID: "3", Tables: []core.TableRef{{Text: "no id"}}},
			}}}}},
			wantLevel: LevelTable,
		},
		{
			name: "lvl3 without tables is fine",
			tree: []core.Subject{{ID: "1", Subjects: []core.Subject{{ID: "2", Subjects: []core.Subject{leaf}}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Normalize(tt.tree)
			if tt.wantLevel == "" {
				require.NoError(t, err)
				assert.Len(t, c.Categories, 1)
				assert.Empty(t, c.Tables)
				return
			}

			require.Error(t, err)
			var formatErr *CatalogFormatError
			require.True(t, errors.As(err, &formatErr), "error should be a CatalogFormatError")
			assert.Equal(t, tt.wantLevel, formatErr.Level)
			assert.Contains(t, err.Error(), string(tt.wantLevel))
		})
	}
}

func TestNormalizeJSON_DecodeErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLevel Level
	}{
		{name: "not an array", body: `{"id": "1"}`, wantLevel: LevelRoot},
		{name: "lvl1 not an object", body: `["x"]`, wantLevel: LevelOne},
		{
			name:      "lvl2 bad id",
			body:      `[{"id": "1", "subjects": [{"id": {"nested": true}, "subjects": []}]}]`,
			wantLevel: LevelTwo,
		},
		{
			name:      "table not an object",
			body:      `[{"id": "1", "subjects": [{"id": "2", "subjects": [{"id": "3", "tables": [42]}]}]}]`,
			wantLevel: LevelTable,
		},
		{
			name:      "lvl2 subjects null",
			body:      `[{"id": "1", "subjects": [{"id": "2", "subjects": null}]}]`,
			wantLevel: LevelTwo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeJSON([]byte(tt.body))
			require.Error(t, err)

			var formatErr *CatalogFormatError
			require.True(t, errors.As(err, &formatErr))
			assert.Equal(t, tt.wantLevel, formatErr.Level)
		})
	}
}

func TestNormalizeJSON_IgnoresSubjectsBelowLevelThree(t *testing.T) {
	body := `[{"id": "1", "subjects": [{"id": "2", "subjects": [
		{"id": "3", "subjects": [{"id": "4", "subjects": []}], "tables": [{"id": "T1", "variables": ["a"]}]}
	]}]}]`

	c, err := NormalizeJSON([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, c.TableIDs())
	assert.Len(t, c.Categories, 1)
}

func TestCatalog_Search(t *testing.T) {
	c := loadFixture(t)

	tests := []struct {
		term string
		want []string
	}{
		{term: "folk", want: []string{"FOLK1A", "FOLK3"}},
		{term: "POPULATION", want: []string{"FOLK1A", "FOLK3"}},
		{term: "labour", want: []string{"AKU100"}},
		{term: "nothing here", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			var got []string
			for _, row := range c.Search(tt.term) {
				got = append(got, row.TableID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_InCategory(t *testing.T) {
	c := loadFixture(t)

	ids := func(rows []TableRow) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.TableID)
		}
		return out
	}

	assert.Equal(t, []string{"FOLK1A", "FOLK3"}, ids(c.InCategory("1")))
	assert.Equal(t, []string{"FOLK1A"}, ids(c.InCategory("3402")))
	assert.Equal(t, []string{"AKU100"}, ids(c.InCategory("20110")))
	assert.Empty(t, c.InCategory("20022"))
}
