package data

import (
	"errors"
	"fmt"
)

// ColumnType is the inferred type of a whole column.
type ColumnType uint8

const (
	Numeric ColumnType = iota
	Categorical
)

func (t ColumnType) String() string {
	if t == Numeric {
		return "numeric"
	}
	return "categorical"
}

var ErrMissingColumn = errors.New("data: column not found")

// Dataset is an ordered collection of records sharing one set of columns.
// Every row holds exactly len(Columns) values.
type Dataset struct {
	Columns []string
	Types   []ColumnType
	Rows    [][]Value

	index map[string]int
}

// New returns an empty dataset with the given header. Types may be nil, in
// which case every column is numeric.
func New(columns []string, types []ColumnType) *Dataset {
	if types == nil {
		types = make([]ColumnType, len(columns))
	}
	d := &Dataset{
		Columns: append([]string(nil), columns...),
		Types:   append([]ColumnType(nil), types...),
	}
	d.reindex()
	return d
}

func (d *Dataset) reindex() {
	d.index = make(map[string]int, len(d.Columns))
	for i, c := range d.Columns {
		d.index[c] = i
	}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// ColumnIndex returns the position of a column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	if d.index == nil {
		d.reindex()
	}
	i, ok := d.index[name]
	return i, ok
}

// Has reports whether the dataset declares the column.
func (d *Dataset) Has(name string) bool {
	_, ok := d.ColumnIndex(name)
	return ok
}

// TypeOf returns the inferred type of a column.
func (d *Dataset) TypeOf(name string) (ColumnType, error) {
	i, ok := d.ColumnIndex(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return d.Types[i], nil
}

// Append adds a row. The row must match the header length.
func (d *Dataset) Append(row []Value) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("data: row has %d values, header has %d columns", len(row), len(d.Columns))
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// Column returns a copy of one column's values.
func (d *Dataset) Column(name string) ([]Value, error) {
	i, ok := d.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	out := make([]Value, len(d.Rows))
	for r, row := range d.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Select returns a dataset holding the given rows, in the given order.
// Row slices are shared with d.
func (d *Dataset) Select(rows []int) *Dataset {
	out := New(d.Columns, d.Types)
	out.Rows = make([][]Value, len(rows))
	for i, r := range rows {
		out.Rows[i] = d.Rows[r]
	}
	return out
}

// Drop returns a copy of d without the named columns. Unknown names are ignored.
func (d *Dataset) Drop(names ...string) *Dataset {
	skip := make(map[int]struct{}, len(names))
	for _, n := range names {
		if i, ok := d.ColumnIndex(n); ok {
			skip[i] = struct{}{}
		}
	}
	var cols []string
	var types []ColumnType
	keep := make([]int, 0, len(d.Columns))
	for i, c := range d.Columns {
		if _, ok := skip[i]; ok {
			continue
		}
		cols = append(cols, c)
		types = append(types, d.Types[i])
		keep = append(keep, i)
	}
	out := New(cols, types)
	out.Rows = make([][]Value, len(d.Rows))
	for r, row := range d.Rows {
		nr := make([]Value, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		out.Rows[r] = nr
	}
	return out
}

// Record returns row i as a column-name keyed map.
func (d *Dataset) Record(i int) map[string]Value {
	rec := make(map[string]Value, len(d.Columns))
	for j, c := range d.Columns {
		rec[c] = d.Rows[i][j]
	}
	return rec
}
