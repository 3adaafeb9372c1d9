package query

import (
	"fmt"
	"regexp"

	"github.com/leapstack-labs/statbank/pkg/core"
)

// ValueSet is the ordered set of values one dimension can take,
// addressable by value id.
type ValueSet struct {
	values []core.Value
	index  map[string]int
}

// NewValueSet builds a value set from the portal's value list.
// If an id repeats, the first occurrence is kept.
func NewValueSet(values []core.Value) *ValueSet {
	s := &ValueSet{
		values: make([]core.Value, 0, len(values)),
		index:  make(map[string]int, len(values)),
	}
	for _, v := range values {
		if _, dup := s.index[v.ID]; dup {
			continue
		}
		s.index[v.ID] = len(s.values)
		s.values = append(s.values, v)
	}
	return s
}

// Len returns the number of known values.
func (s *ValueSet) Len() int { return len(s.values) }

// Values returns a copy of all values in portal order.
func (s *ValueSet) Values() []core.Value {
	out := make([]core.Value, len(s.values))
	copy(out, s.values)
	return out
}

// IDs returns every value id in portal order.
func (s *ValueSet) IDs() []string {
	ids := make([]string, len(s.values))
	for i, v := range s.values {
		ids[i] = v.ID
	}
	return ids
}

// Get returns the value with the given id.
func (s *ValueSet) Get(id string) (core.Value, bool) {
	i, ok := s.index[id]
	if !ok {
		return core.Value{}, false
	}
	return s.values[i], true
}

// Contains reports whether id is a known value.
func (s *ValueSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Filter returns the values for which keep returns true, in portal order.
// The result can be passed to FromRows to select exactly those values.
func (s *ValueSet) Filter(keep func(core.Value) bool) []core.Value {
	var out []core.Value
	for _, v := range s.values {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Match returns the values whose id or text matches pattern.
// Matching is case-insensitive.
func (s *ValueSet) Match(pattern string) ([]core.Value, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid value pattern %q: %w", pattern, err)
	}
	return s.Filter(func(v core.Value) bool {
		return re.MatchString(v.ID) || re.MatchString(v.Text)
	}), nil
}
