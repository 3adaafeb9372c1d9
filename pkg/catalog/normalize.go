package catalog

import (
	"github.com/leapstack-labs/statbank/pkg/core"
)

// NormalizeJSON decodes the subjects endpoint's response and flattens it.
func NormalizeJSON(data []byte) (*Catalog, error) {
	tree, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Normalize(tree)
}

// Normalize flattens the subject tree into the three catalog views.
//
// The walk is depth-first and emits one table row per (lvl1, lvl2, lvl3,
// table) leaf. A level-three subject without tables contributes a single
// category row and nothing else. Tables are indexed by id; a table listed
// under more than one subject keeps its first occurrence in the table and
// variable views, while every occurrence is kept in the category view.
func Normalize(tree []core.Subject) (*Catalog, error) {
	c := newCatalog()

	for i1, l1 := range tree {
		p1 := nodePath("", LevelOne, i1, l1.ID)
		if err := checkBranch(l1, LevelOne, p1); err != nil {
			return nil, err
		}

		for i2, l2 := range l1.Subjects {
			p2 := nodePath(p1, LevelTwo, i2, l2.ID)
			if err := checkBranch(l2, LevelTwo, p2); err != nil {
				return nil, err
			}

			for i3, l3 := range l2.Subjects {
				p3 := nodePath(p2, LevelThree, i3, l3.ID)
				if l3.ID == "" {
					return nil, formatErr(LevelThree, p3, "missing id")
				}

				category := CategoryRow{
					Lvl1ID: l1.ID, Lvl1Desc: l1.Description, Lvl1Active: l1.Active,
					Lvl2ID: l2.ID, Lvl2Desc: l2.Description, Lvl2Active: l2.Active,
					Lvl3ID: l3.ID, Lvl3Desc: l3.Description, Lvl3Active: l3.Active,
				}

				if len(l3.Tables) == 0 {
					c.Categories = append(c.Categories, category)
					continue
				}

				for it, t := range l3.Tables {
					if t.ID == "" {
						return nil, formatErr(LevelTable, nodePath(p3, LevelTable, it, ""), "missing id")
					}

					row := category
					row.TableID = t.ID
					c.Categories = append(c.Categories, row)

					c.addTable(category, t)
				}
			}
		}
	}

	return c, nil
}

// checkBranch validates a level-one or level-two subject, which must carry
// children to be part of a well-formed tree.
func checkBranch(s core.Subject, level Level, path string) error {
	if s.ID == "" {
		return formatErr(level, path, "missing id")
	}
	if s.Subjects == nil {
		return formatErr(level, path, `missing "subjects" field`)
	}
	return nil
}

// addTable records a table and explodes its variables, ignoring repeats.
func (c *Catalog) addTable(category CategoryRow, t core.TableRef) {
	if _, seen := c.index[t.ID]; seen {
		return
	}

	names := make([]string, len(t.Variables))
	for i, v := range t.Variables {
		names[i] = v.ID
	}

	c.index[t.ID] = len(c.Tables)
	c.Tables = append(c.Tables, TableRow{
		TableID:      t.ID,
		Name:         t.Text,
		Unit:         t.Unit,
		Lvl1ID:       category.Lvl1ID,
		Lvl2ID:       category.Lvl2ID,
		Lvl3ID:       category.Lvl3ID,
		Lvl3Desc:     category.Lvl3Desc,
		FirstPeriod:  t.FirstPeriod,
		LatestPeriod: t.LatestPeriod,
		Updated:      t.Updated,
		Active:       t.Active,
		Variables:    names,
	})

	for i, name := range names {
		c.Variables = append(c.Variables, VariableRow{
			TableID:      t.ID,
			Lvl3Desc:     category.Lvl3Desc,
			FirstPeriod:  t.FirstPeriod,
			LatestPeriod: t.LatestPeriod,
			Updated:      t.Updated,
			Active:       t.Active,
			Variable:     name,
			Position:     i,
		})
	}
}
