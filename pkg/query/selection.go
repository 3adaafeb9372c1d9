package query

import (
	"strconv"
	"strings"
)

// SelectionKind tags the variant held by a Selection.
type SelectionKind int

// Selection variants.
const (
	KindNone SelectionKind = iota
	KindSingle
	KindMany
	KindAll
	KindFromRows
)

func (k SelectionKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMany:
		return "many"
	case KindAll:
		return "all"
	case KindFromRows:
		return "rows"
	default:
		return "none"
	}
}

// Selection describes which values of a dimension to pull.
// The zero value selects nothing.
type Selection struct {
	kind SelectionKind
	ids  []string
}

// Row is anything that carries a value id, such as a core.Value or a
// record of a previously fetched frame.
type Row interface {
	IDVar() string
}

// None clears a dimension's selection.
func None() Selection { return Selection{kind: KindNone} }

// All selects every known value of a dimension, in portal order.
func All() Selection { return Selection{kind: KindAll} }

// Single selects exactly one value.
func Single(id string) Selection { return Selection{kind: KindSingle, ids: []string{id}} }

// SingleInt selects exactly one value given as a number.
func SingleInt(id int) Selection { return Single(strconv.Itoa(id)) }

// Many selects exactly the given values. An empty list clears the selection.
func Many(ids ...string) Selection {
	if len(ids) == 0 {
		return None()
	}
	return Selection{kind: KindMany, ids: append([]string(nil), ids...)}
}

// Bool selects everything for true and nothing for false.
func Bool(all bool) Selection {
	if all {
		return All()
	}
	return None()
}

// FromRows selects the value ids carried by rows, typically the output of
// ValueSet.Filter or ValueSet.Match.
func FromRows[R Row](rows []R) Selection {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.IDVar()
	}
	if len(ids) == 0 {
		return None()
	}
	return Selection{kind: KindFromRows, ids: ids}
}

// Kind returns the selection's variant.
func (s Selection) Kind() SelectionKind { return s.kind }

// IDs returns the explicit ids of a Single, Many or FromRows selection.
func (s Selection) IDs() []string { return append([]string(nil), s.ids...) }

func (s Selection) String() string {
	switch s.kind {
	case KindAll:
		return "*"
	case KindNone:
		return ""
	default:
		return strings.Join(s.ids, ",")
	}
}

// resolve returns the concrete ids the selection stands for.
func (s Selection) resolve(values *ValueSet) []string {
	switch s.kind {
	case KindAll:
		return values.IDs()
	case KindSingle, KindMany, KindFromRows:
		return dedupe(s.ids)
	default:
		return nil
	}
}

// ParseSelection reads a selection from command-line text.
//
//	"*", "all", "true"      every value
//	"", "none", "false"     nothing
//	"a,b,c"                 exactly those values
//	"a"                     exactly one value
func ParseSelection(text string) Selection {
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "*", "all", "true":
		return All()
	case "", "none", "false":
		return None()
	}

	parts := strings.Split(text, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	if len(ids) == 1 {
		return Single(ids[0])
	}
	return Many(ids...)
}

// dedupe drops repeated ids, keeping first-occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
