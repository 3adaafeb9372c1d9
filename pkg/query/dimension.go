package query

import (
	"fmt"

	"github.com/leapstack-labs/statbank/pkg/core"
)

// Dimension is one queryable dimension of a table together with the values
// currently chosen for extraction.
type Dimension struct {
	id         string
	text       string
	time       bool
	eliminable bool
	values     *ValueSet
	chosen     []string
	touched    bool
}

func newDimension(v core.Variable) *Dimension {
	return &Dimension{
		id:         v.ID,
		text:       v.Text,
		time:       v.Time,
		eliminable: v.Elimination,
		values:     NewValueSet(v.Values),
	}
}

// Description is a read-only summary of a dimension for display.
type Description struct {
	ID            string `json:"id"`
	Text          string `json:"text,omitempty"`
	Eliminable    bool   `json:"eliminable"`
	Time          bool   `json:"time,omitempty"`
	TotalValues   int    `json:"total_values"`
	SelectedCount int    `json:"selected_count"`
}

// ID returns the dimension code.
func (d *Dimension) ID() string { return d.id }

// Text returns the dimension's display name.
func (d *Dimension) Text() string { return d.text }

// Eliminable reports whether the dimension may be left out of the result.
// A non-eliminable dimension is always broken out, selected or not.
func (d *Dimension) Eliminable() bool { return d.eliminable }

// Values returns the dimension's known values.
func (d *Dimension) Values() *ValueSet { return d.values }

// Chosen returns a copy of the currently selected value ids.
func (d *Dimension) Chosen() []string { return append([]string(nil), d.chosen...) }

// Describe summarizes the dimension.
func (d *Dimension) Describe() Description {
	return Description{
		ID:            d.id,
		Text:          d.text,
		Eliminable:    d.eliminable,
		Time:          d.time,
		TotalValues:   d.values.Len(),
		SelectedCount: len(d.chosen),
	}
}

// SetSelection replaces the chosen values. Ids are not checked against the
// known values; the portal rejects unknown ids when the query runs.
func (d *Dimension) SetSelection(sel Selection) {
	d.chosen = sel.resolve(d.values)
	d.touched = true
}

// Unknown returns chosen ids that are not among the dimension's known values.
func (d *Dimension) Unknown() []string {
	var out []string
	for _, id := range d.chosen {
		if !d.values.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// QueryFragment returns the dimension's part of an extraction request.
// It is returned even when nothing is chosen.
func (d *Dimension) QueryFragment() Fragment {
	values := d.Chosen()
	if values == nil {
		values = []string{}
	}
	return Fragment{Code: d.id, Values: values}
}

func (d *Dimension) String() string {
	permanent := ""
	if !d.eliminable {
		permanent = " PERMANENT"
	}
	return fmt.Sprintf("<Var: %s, chosen: %d, total: %d%s>", d.id, len(d.chosen), d.values.Len(), permanent)
}
