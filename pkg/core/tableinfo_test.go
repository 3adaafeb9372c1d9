package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableInfo_Unmarshal(t *testing.T) {
	body := `{
		"id": "FOLK1A",
		"text": "Population at the first day of the quarter",
		"unit": "number",
		"updated": "2024-05-10T08:00:00",
		"active": true,
		"variables": [
			{
				"id": "OMRÅDE",
				"text": "region",
				"elimination": true,
				"map": "denmark_municipality_07",
				"values": [{"id": "000", "text": "All Denmark"}, {"id": 101, "text": "Copenhagen"}]
			},
			{
				"id": "Tid",
				"text": "time",
				"elimination": false,
				"time": true,
				"values": [{"id": "2024K1", "text": "2024Q1"}]
			}
		]
	}`

	var info TableInfo
	require.NoError(t, json.Unmarshal([]byte(body), &info))

	assert.Equal(t, "FOLK1A", info.ID)
	require.Len(t, info.Variables, 2)

	region := info.Variables[0]
	assert.Equal(t, "OMRÅDE", region.ID)
	assert.True(t, region.Elimination)
	assert.Equal(t, "denmark_municipality_07", region.Map)
	require.Len(t, region.Values, 2)
	assert.Equal(t, "000", region.Values[0].IDVar())
	assert.Equal(t, "101", region.Values[1].ID, "numeric value ids are coerced to strings")

	tid, ok := info.Variable("Tid")
	require.True(t, ok)
	assert.False(t, tid.Elimination)
	assert.True(t, tid.Time)

	_, ok = info.Variable("KØN")
	assert.False(t, ok)
}

func TestVariable_UnmarshalBareName(t *testing.T) {
	var vars []Variable
	require.NoError(t, json.Unmarshal([]byte(`["område", {"id": "tid", "elimination": false}]`), &vars))

	require.Len(t, vars, 2)
	assert.Equal(t, Variable{ID: "område", Text: "område"}, vars[0])
	assert.Equal(t, "tid", vars[1].ID)
}

func TestSubject_UnmarshalPresence(t *testing.T) {
	var subjects []Subject
	body := `[
		{"id": 1, "description": "People", "active": true, "subjects": []},
		{"id": "2", "description": "Labour", "active": "true"}
	]`
	require.NoError(t, json.Unmarshal([]byte(body), &subjects))

	require.Len(t, subjects, 2)
	assert.Equal(t, "1", subjects[0].ID)
	assert.NotNil(t, subjects[0].Subjects, "[] decodes to an empty, non-nil slice")
	assert.Nil(t, subjects[1].Subjects, "absent field stays nil")
	assert.True(t, subjects[1].Active)
}
