// Package query models a table's queryable dimensions and builds extraction
// requests for the data endpoint.
//
// A Builder is created from a table's metadata and owns one Dimension per
// variable. Callers choose values per dimension with Selections; the builder
// estimates the size of the result, applies the safety gate for oversized
// pulls and emits the Request to send.
//
// Builders are owned by a single caller and are not safe for concurrent use.
// Independent builders share no state.
package query

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/leapstack-labs/statbank/pkg/core"
)

// DefaultSafetyRowThreshold is the estimated row count above which a pull
// switches to bulk extraction and requires confirmation.
const DefaultSafetyRowThreshold int64 = 2_000_000

// portalTableURL is the human-facing page of a table.
const portalTableURL = "https://www.statistikbanken.dk/"

// State is the builder's configuration state.
type State int

// Builder states. Building a request is possible in either state.
const (
	StateUnconfigured State = iota
	StatePartiallySelected
)

func (s State) String() string {
	if s == StatePartiallySelected {
		return "partially-selected"
	}
	return "unconfigured"
}

// Builder assembles an extraction request for one table.
type Builder struct {
	tableID    string
	dims       []*Dimension
	index      map[string]*Dimension
	threshold  int64
	autoAccept bool
	confirmer  Confirmer
	logger     *slog.Logger

	// confirmedRows is the largest row estimate approved at the gate.
	confirmedRows int64
}

// Option configures a Builder.
type Option func(*Builder)

// WithAutoAccept skips the confirmation step for pulls above the threshold.
func WithAutoAccept(accept bool) Option {
	return func(b *Builder) { b.autoAccept = accept }
}

// WithConfirmer sets the capability used to confirm oversized pulls.
func WithConfirmer(c Confirmer) Option {
	return func(b *Builder) { b.confirmer = c }
}

// WithSafetyThreshold overrides DefaultSafetyRowThreshold.
// Non-positive values are ignored.
func WithSafetyThreshold(rows int64) Option {
	return func(b *Builder) {
		if rows > 0 {
			b.threshold = rows
		}
	}
}

// WithLogger sets the builder's logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a builder for tableID from the table's metadata.
// Every variable becomes a dimension with an empty selection.
func NewBuilder(tableID string, info *core.TableInfo, opts ...Option) (*Builder, error) {
	if tableID == "" {
		return nil, fmt.Errorf("table id is required")
	}
	if info == nil {
		return nil, fmt.Errorf("table %s: metadata is required", tableID)
	}

	b := &Builder{
		tableID:   tableID,
		dims:      make([]*Dimension, 0, len(info.Variables)),
		index:     make(map[string]*Dimension, len(info.Variables)),
		threshold: DefaultSafetyRowThreshold,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}

	for i, v := range info.Variables {
		if v.ID == "" {
			return nil, fmt.Errorf("table %s: variable %d has no id", tableID, i)
		}
		if _, dup := b.index[v.ID]; dup {
			return nil, fmt.Errorf("table %s: duplicate variable %q", tableID, v.ID)
		}
		d := newDimension(v)
		b.dims = append(b.dims, d)
		b.index[v.ID] = d
	}

	b.logger.Debug("created query builder",
		"table", tableID,
		"dimensions", len(b.dims),
		"threshold", b.threshold,
		"auto_accept", b.autoAccept)

	return b, nil
}

// TableID returns the table the builder queries.
func (b *Builder) TableID() string { return b.tableID }

// Link returns the table's page on the portal.
func (b *Builder) Link() string { return portalTableURL + b.tableID }

// SafetyThreshold returns the row estimate above which the gate applies.
func (b *Builder) SafetyThreshold() int64 { return b.threshold }

// Dimensions returns the table's dimensions in metadata order.
func (b *Builder) Dimensions() []*Dimension {
	return append([]*Dimension(nil), b.dims...)
}

// Dimension returns the dimension with the given id.
func (b *Builder) Dimension(id string) (*Dimension, error) {
	d, ok := b.index[id]
	if !ok {
		return nil, b.unknown(id)
	}
	return d, nil
}

// Set replaces the selection of one dimension.
func (b *Builder) Set(id string, sel Selection) error {
	d, err := b.Dimension(id)
	if err != nil {
		return err
	}
	d.SetSelection(sel)
	return nil
}

// Apply sets several selections at once. Unknown ids fail the whole call
// before any selection is changed.
func (b *Builder) Apply(selections map[string]Selection) error {
	ids := make([]string, 0, len(selections))
	for id := range selections {
		if _, ok := b.index[id]; !ok {
			return b.unknown(id)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.index[id].SetSelection(selections[id])
	}
	return nil
}

// SelectAll selects every known value of every dimension.
func (b *Builder) SelectAll() {
	for _, d := range b.dims {
		d.SetSelection(All())
	}
}

// Selections returns the chosen ids of every dimension with a non-empty
// selection.
func (b *Builder) Selections() map[string][]string {
	out := make(map[string][]string)
	for _, d := range b.dims {
		if len(d.chosen) > 0 {
			out[d.id] = d.Chosen()
		}
	}
	return out
}

// State reports whether any selection has been made yet.
func (b *Builder) State() State {
	for _, d := range b.dims {
		if d.touched {
			return StatePartiallySelected
		}
	}
	return StateUnconfigured
}

// ColumnEstimate returns the number of columns the result will have: one per
// dimension that is selected or non-eliminable, plus the value column.
func (b *Builder) ColumnEstimate() int {
	cols := 1
	for _, d := range b.dims {
		if len(d.chosen) > 0 || !d.eliminable {
			cols++
		}
	}
	return cols
}

// RowEstimate returns the product of the selection sizes of all dimensions
// with a non-empty selection. With nothing selected the estimate is 1.
// The product saturates at math.MaxInt64.
func (b *Builder) RowEstimate() int64 {
	rows := int64(1)
	for _, d := range b.dims {
		if n := int64(len(d.chosen)); n > 0 {
			rows = mulSaturating(rows, n)
		}
	}
	return rows
}

// SizeEstimate is RowEstimate times ColumnEstimate, a rough proxy for the
// payload size.
func (b *Builder) SizeEstimate() int64 {
	return mulSaturating(b.RowEstimate(), int64(b.ColumnEstimate()))
}

func (b *Builder) unknown(id string) error {
	available := make([]string, len(b.dims))
	for i, d := range b.dims {
		available[i] = d.id
	}
	return &UnknownDimensionError{Table: b.tableID, Dimension: id, Available: available}
}

func mulSaturating(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
