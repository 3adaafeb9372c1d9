// Package frame holds tabular extraction results returned by the data
// endpoint's delimited formats.
package frame

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultDelimiter is the field separator of the portal's CSV and BULK output.
const DefaultDelimiter = ';'

const utf8BOM = "\ufeff"

// Frame is a parsed result table. Every row has one cell per column.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// Parse reads a delimited result whose first record is the header.
// A leading byte order mark is dropped. An empty input is an error.
func Parse(r io.Reader, delim rune) (*Frame, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty result: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	f := &Frame{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(f.Rows)+1, err)
		}
		f.Rows = append(f.Rows, rec)
	}
	return f, nil
}

// ParseString is Parse over an in-memory body with the default delimiter.
func ParseString(s string) (*Frame, error) {
	return Parse(strings.NewReader(s), DefaultDelimiter)
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Rows) }

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every cell of the named column.
func (f *Frame) Column(name string) ([]string, bool) {
	i := f.ColumnIndex(name)
	if i < 0 {
		return nil, false
	}
	out := make([]string, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out, true
}

// Record is one row of a frame keyed by column name.
type Record struct {
	frame *Frame
	row   int
	id    int
}

// Get returns the cell in the named column.
func (r Record) Get(column string) string {
	i := r.frame.ColumnIndex(column)
	if i < 0 {
		return ""
	}
	return r.frame.Rows[r.row][i]
}

// IDVar returns the cell in the record's id column. Records can therefore
// feed a dimension selection directly.
func (r Record) IDVar() string { return r.frame.Rows[r.row][r.id] }

// Records returns the frame's rows with idColumn as their id.
func (f *Frame) Records(idColumn string) ([]Record, error) {
	id := f.ColumnIndex(idColumn)
	if id < 0 {
		return nil, fmt.Errorf("no column %q (have %s)", idColumn, strings.Join(f.Columns, ", "))
	}
	out := make([]Record, len(f.Rows))
	for i := range f.Rows {
		out[i] = Record{frame: f, row: i, id: id}
	}
	return out, nil
}

// WriteCSV writes the frame, header first, with the given delimiter.
func (f *Frame) WriteCSV(w io.Writer, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(f.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(f.Rows); err != nil {
		return err
	}
	return cw.Error()
}

type frameJSON struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// MarshalJSON encodes the frame as {"columns": [...], "rows": [[...]]}.
func (f *Frame) MarshalJSON() ([]byte, error) {
	rows := f.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return json.Marshal(frameJSON{Columns: f.Columns, Rows: rows})
}

// UnmarshalJSON decodes the MarshalJSON form. Rows must match the header width.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw frameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, row := range raw.Rows {
		if len(row) != len(raw.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(raw.Columns))
		}
	}
	f.Columns = raw.Columns
	f.Rows = raw.Rows
	return nil
}
