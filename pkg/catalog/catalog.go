// Package catalog flattens the portal's nested subject hierarchy into
// relational views.
//
// The subjects endpoint returns a tree three subject levels deep whose
// leaves are tables. Normalize turns it into:
//
//   - Categories: one row per (lvl1, lvl2, lvl3, table), plus one row per
//     level-three subject without tables
//   - Tables: one row per distinct table, indexed by table id
//   - Variables: one row per (table, variable), in the table's variable order
package catalog

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// CategoryRow is one entry of the category hierarchy view.
// TableID is empty for level-three subjects that publish no tables.
type CategoryRow struct {
	Lvl1ID     string `json:"lvl1_id"`
	Lvl1Desc   string `json:"lvl1_desc"`
	Lvl1Active bool   `json:"lvl1_active"`
	Lvl2ID     string `json:"lvl2_id"`
	Lvl2Desc   string `json:"lvl2_desc"`
	Lvl2Active bool   `json:"lvl2_active"`
	Lvl3ID     string `json:"lvl3_id"`
	Lvl3Desc   string `json:"lvl3_desc"`
	Lvl3Active bool   `json:"lvl3_active"`
	TableID    string `json:"tableid,omitempty"`
}

// TableRow is one entry of the table index.
type TableRow struct {
	TableID      string   `json:"tableid"`
	Name         string   `json:"name"`
	Unit         string   `json:"unit,omitempty"`
	Lvl1ID       string   `json:"lvl1_id"`
	Lvl2ID       string   `json:"lvl2_id"`
	Lvl3ID       string   `json:"lvl3_id"`
	Lvl3Desc     string   `json:"lvl3_desc"`
	FirstPeriod  string   `json:"firstPeriod"`
	LatestPeriod string   `json:"latestPeriod"`
	Updated      string   `json:"updated"`
	Active       bool     `json:"active"`
	Variables    []string `json:"variables"`
}

// updatedLayout is the timestamp layout used by the portal.
const updatedLayout = "2006-01-02T15:04:05"

// UpdatedTime parses the portal's last-updated timestamp.
func (t TableRow) UpdatedTime() (time.Time, error) {
	return time.Parse(updatedLayout, t.Updated)
}

// VariableRow is one entry of the table-variable index.
type VariableRow struct {
	TableID      string `json:"tableid"`
	Lvl3Desc     string `json:"lvl3_desc"`
	FirstPeriod  string `json:"firstPeriod"`
	LatestPeriod string `json:"latestPeriod"`
	Updated      string `json:"updated"`
	Active       bool   `json:"active"`
	Variable     string `json:"variable"`
	Position     int    `json:"position"`
}

// Catalog holds the three normalized views of the subject tree.
type Catalog struct {
	Categories []CategoryRow `json:"categories"`
	Tables     []TableRow    `json:"tables"`
	Variables  []VariableRow `json:"variables"`

	index map[string]int
}

func newCatalog() *Catalog {
	return &Catalog{
		Categories: []CategoryRow{},
		Tables:     []TableRow{},
		Variables:  []VariableRow{},
		index:      make(map[string]int),
	}
}

// Table returns the table with the given id.
func (c *Catalog) Table(id string) (TableRow, bool) {
	i, ok := c.index[id]
	if !ok {
		return TableRow{}, false
	}
	return c.Tables[i], true
}

// TableIDs returns all table ids in catalog order.
func (c *Catalog) TableIDs() []string {
	ids := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		ids[i] = t.TableID
	}
	return ids
}

// VariablesOf returns the variable rows of one table, in variable order.
func (c *Catalog) VariablesOf(tableID string) []VariableRow {
	var rows []VariableRow
	for _, v := range c.Variables {
		if v.TableID == tableID {
			rows = append(rows, v)
		}
	}
	return rows
}

// Search returns the tables whose id or name contains term.
// Matching uses Unicode case folding.
func (c *Catalog) Search(term string) []TableRow {
	fold := cases.Fold()
	needle := fold.String(term)

	var rows []TableRow
	for _, t := range c.Tables {
		if strings.Contains(fold.String(t.TableID), needle) || strings.Contains(fold.String(t.Name), needle) {
			rows = append(rows, t)
		}
	}
	return rows
}

// InCategory returns the tables filed under the subject with the given id,
// at any level.
func (c *Catalog) InCategory(subjectID string) []TableRow {
	seen := make(map[string]bool)
	var rows []TableRow
	for _, cat := range c.Categories {
		if cat.TableID == "" || seen[cat.TableID] {
			continue
		}
		if cat.Lvl1ID == subjectID || cat.Lvl2ID == subjectID || cat.Lvl3ID == subjectID {
			seen[cat.TableID] = true
			if t, ok := c.Table(cat.TableID); ok {
				rows = append(rows, t)
			}
		}
	}
	return rows
}
