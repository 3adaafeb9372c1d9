package core

import (
	"encoding/json"
	"fmt"
)

// TableInfo is the per-table metadata returned by the tableinfo endpoint.
type TableInfo struct {
	// ID is the table identifier
	ID string `json:"id"`
	// Text is the table's display name
	Text string `json:"text"`
	// Description is the long-form table title
	Description string `json:"description,omitempty"`
	// Unit is the unit of the measured value
	Unit string `json:"unit,omitempty"`
	// Updated is the portal's last-updated timestamp, verbatim
	Updated string `json:"updated,omitempty"`
	// Active reports whether the table is currently published
	Active bool `json:"active"`
	// Variables are the table's dimensions, in portal order
	Variables []Variable `json:"variables"`
}

// Variable describes one dimension of a table.
type Variable struct {
	// ID is the dimension code used in extraction requests
	ID string `json:"id"`
	// Text is the dimension's display name
	Text string `json:"text,omitempty"`
	// Elimination reports whether the dimension may be left out of a pull.
	// False means the portal always breaks results out by this dimension.
	Elimination bool `json:"elimination"`
	// Time marks the table's time dimension
	Time bool `json:"time,omitempty"`
	// Map names the geographic map the dimension can be drawn on, if any
	Map string `json:"map,omitempty"`
	// Values are the dimension's enumerable values, in portal order
	Values []Value `json:"values,omitempty"`
}

// UnmarshalJSON accepts either a bare variable name (as sent inside the
// subject hierarchy) or a full variable descriptor (as sent by tableinfo).
func (v *Variable) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*v = Variable{ID: name, Text: name}
		return nil
	}

	type plain Variable
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := FlexibleString(aux.ID)
	if err != nil {
		return fmt.Errorf("variable id: %w", err)
	}
	*v = Variable(aux.plain)
	v.ID = id
	return nil
}

// Value is one enumerable value of a dimension.
type Value struct {
	// ID is the value code used in extraction requests (the id_var)
	ID string `json:"id"`
	// Text is the value's display label
	Text string `json:"text"`
}

// IDVar returns the value code. It lets a slice of values be used directly
// as a row source for selections.
func (v Value) IDVar() string { return v.ID }

// UnmarshalJSON decodes a value, coercing a numeric id to a string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID   json.RawMessage `json:"id"`
		Text string          `json:"text"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := FlexibleString(aux.ID)
	if err != nil {
		return fmt.Errorf("value id: %w", err)
	}
	v.ID = id
	v.Text = aux.Text
	return nil
}

// Variable returns the table's variable with the given id.
func (t *TableInfo) Variable(id string) (Variable, bool) {
	for _, v := range t.Variables {
		if v.ID == id {
			return v, true
		}
	}
	return Variable{}, false
}
