package core

import (
	"encoding/json"
	"fmt"
)

// Subject is one node of the portal's subject hierarchy.
// The hierarchy is three levels deep; only level-three subjects carry tables.
type Subject struct {
	// ID is the subject identifier, coerced to a string
	ID string `json:"id"`
	// Description is the human-readable subject name
	Description string `json:"description"`
	// Active reports whether the subject is currently published
	Active bool `json:"active"`
	// HasSubjects is the portal's own hint that Subjects is non-empty
	HasSubjects bool `json:"hasSubjects"`
	// Subjects are the child subjects. Nil means the field was absent or null,
	// an empty non-nil slice means the portal sent [].
	Subjects []Subject `json:"subjects"`
	// Tables are the tables published directly under this subject.
	// Nil means the field was absent or null.
	Tables []TableRef `json:"tables"`
}

// UnmarshalJSON decodes a subject, coercing a numeric id to a string.
func (s *Subject) UnmarshalJSON(data []byte) error {
	type plain Subject
	var aux struct {
		plain
		ID     json.RawMessage `json:"id"`
		Active json.RawMessage `json:"active"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := FlexibleString(aux.ID)
	if err != nil {
		return fmt.Errorf("subject id: %w", err)
	}
	active, err := FlexibleBool(aux.Active)
	if err != nil {
		return fmt.Errorf("subject %s active: %w", id, err)
	}
	*s = Subject(aux.plain)
	s.ID = id
	s.Active = active
	return nil
}

// TableRef is a table as it appears inside the subject hierarchy.
type TableRef struct {
	// ID is the table identifier (e.g., "FOLK1A")
	ID string `json:"id"`
	// Text is the table's display name
	Text string `json:"text"`
	// Unit is the unit of the measured value
	Unit string `json:"unit,omitempty"`
	// Updated is the portal's last-updated timestamp, verbatim
	Updated string `json:"updated"`
	// FirstPeriod is the earliest period covered by the table
	FirstPeriod string `json:"firstPeriod"`
	// LatestPeriod is the most recent period covered by the table
	LatestPeriod string `json:"latestPeriod"`
	// Active reports whether the table is currently published
	Active bool `json:"active"`
	// Variables are the table's dimensions. The subjects endpoint sends bare
	// names; Variable decodes both names and full descriptors.
	Variables []Variable `json:"variables"`
}

// UnmarshalJSON decodes a table reference, coercing a numeric id to a string.
func (t *TableRef) UnmarshalJSON(data []byte) error {
	type plain TableRef
	var aux struct {
		plain
		ID     json.RawMessage `json:"id"`
		Active json.RawMessage `json:"active"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := FlexibleString(aux.ID)
	if err != nil {
		return fmt.Errorf("table id: %w", err)
	}
	active, err := FlexibleBool(aux.Active)
	if err != nil {
		return fmt.Errorf("table %s active: %w", id, err)
	}
	*t = TableRef(aux.plain)
	t.ID = id
	t.Active = active
	return nil
}
