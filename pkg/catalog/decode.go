package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/statbank/pkg/core"
)

// maxDepth is the number of subject levels above the tables.
const maxDepth = 3

// rawSubject is a subject node with its children left undecoded, so that a
// decoding failure can be attributed to the level it happened at.
type rawSubject struct {
	ID          json.RawMessage   `json:"id"`
	Description string            `json:"description"`
	Active      json.RawMessage   `json:"active"`
	HasSubjects bool              `json:"hasSubjects"`
	Subjects    []json.RawMessage `json:"subjects"`
	Tables      []json.RawMessage `json:"tables"`
}

// Decode parses the subjects endpoint's response into a typed tree.
//
// Every node is decoded into canonical named fields. Members the tree does
// not define below level three (the portal repeats an empty "subjects"
// array on leaf subjects) are dropped. Whether "subjects" and "tables" were
// present is preserved as nil versus non-nil slices, for Normalize to check.
func Decode(data []byte) ([]core.Subject, error) {
	var roots []json.RawMessage
	if err := json.Unmarshal(data, &roots); err != nil {
		return nil, &CatalogFormatError{Level: LevelRoot, Reason: "expected an array of subjects", Err: err}
	}
	return decodeSubjects(roots, 1, "")
}

func decodeSubjects(raws []json.RawMessage, depth int, parent string) ([]core.Subject, error) {
	level := levelAt(depth)
	subjects := make([]core.Subject, 0, len(raws))

	for i, raw := range raws {
		path := nodePath(parent, level, i, "")

		var rs rawSubject
		if err := json.Unmarshal(raw, &rs); err != nil {
			return nil, &CatalogFormatError{Level: level, Path: path, Reason: "expected a subject object", Err: err}
		}

		id, err := core.FlexibleString(rs.ID)
		if err != nil {
			return nil, &CatalogFormatError{Level: level, Path: path, Reason: "invalid id", Err: err}
		}
		active, err := core.FlexibleBool(rs.Active)
		if err != nil {
			return nil, &CatalogFormatError{Level: level, Path: path, Reason: "invalid active flag", Err: err}
		}
		path = nodePath(parent, level, i, id)

		s := core.Subject{
			ID:          id,
			Description: rs.Description,
			Active:      active,
			HasSubjects: rs.HasSubjects,
		}

		if depth < maxDepth {
			if rs.Subjects != nil {
				if s.Subjects, err = decodeSubjects(rs.Subjects, depth+1, path); err != nil {
					return nil, err
				}
			}
		} else if rs.Tables != nil {
			s.Tables = make([]core.TableRef, 0, len(rs.Tables))
			for j, rt := range rs.Tables {
				var t core.TableRef
				if err := json.Unmarshal(rt, &t); err != nil {
					return nil, &CatalogFormatError{
						Level:  LevelTable,
						Path:   nodePath(path, LevelTable, j, ""),
						Reason: "expected a table object",
						Err:    err,
					}
				}
				s.Tables = append(s.Tables, t)
			}
		}

		subjects = append(subjects, s)
	}

	return subjects, nil
}

// nodePath renders a node's location as "lvl1[0]=1/lvl2[2]=3401".
func nodePath(parent string, level Level, index int, id string) string {
	seg := fmt.Sprintf("%s[%d]", level, index)
	if id != "" {
		seg += "=" + id
	}
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}
