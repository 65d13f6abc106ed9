package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

type readOptions struct {
	text map[string]struct{}
}

// ReadOption tweaks CSV loading.
type ReadOption func(*readOptions)

// WithTextColumns forces the named columns to be read as categorical text even
// when every value parses as a number. Used when re-reading a partition whose
// schema was decided on the full dataset.
func WithTextColumns(names ...string) ReadOption {
	return func(o *readOptions) {
		for _, n := range names {
			o.text[n] = struct{}{}
		}
	}
}

// ReadCSV loads a headered CSV. Column types follow detectType; cells of a
// categorical column are kept as text.
func ReadCSV(r io.Reader, opts ...ReadOption) (*Dataset, error) {
	o := &readOptions{text: map[string]struct{}{}}
	for _, opt := range opts {
		opt(o)
	}

	reader := csv.NewReader(bufio.NewReader(r))
	header, err := reader.Read()
	if err == io.EOF {
		return New(nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("data: read header: %w", err)
	}

	var raw [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("data: read row %d: %w", len(raw)+1, err)
		}
		raw = append(raw, rec)
	}

	types := make([]ColumnType, len(header))
	boolean := make([]bool, len(header))
	for c, name := range header {
		if _, forced := o.text[name]; forced {
			types[c] = Categorical
			continue
		}
		types[c], boolean[c] = detectType(raw, c)
	}

	ds := New(header, types)
	ds.Rows = make([][]Value, len(raw))
	for r, rec := range raw {
		row := make([]Value, len(header))
		for c, s := range rec {
			switch {
			case IsMissingMarker(s):
				row[c] = Null
			case boolean[c]:
				b, _ := parseBool(s)
				row[c] = Num(b)
			case types[c] == Numeric:
				f, _ := strconv.ParseFloat(s, 64)
				row[c] = Num(f)
			default:
				row[c] = Str(s)
			}
		}
		ds.Rows[r] = row
	}
	return ds, nil
}

// detectType types column c. A column is numeric when every non-missing cell
// parses as a float, or when every one is a boolean spelling; booleans load as
// 1 and 0.
func detectType(raw [][]string, c int) (t ColumnType, boolean bool) {
	numbers, bools, seen := true, true, false
	for _, rec := range raw {
		s := rec[c]
		if IsMissingMarker(s) {
			continue
		}
		seen = true
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			numbers = false
		}
		if _, ok := parseBool(s); !ok {
			bools = false
		}
		if !numbers && !bools {
			return Categorical, false
		}
	}
	if numbers || !seen {
		return Numeric, false
	}
	return Numeric, true
}

// parseBool accepts the spellings a CSV reader in the tabular ecosystem
// treats as booleans.
func parseBool(s string) (float64, bool) {
	switch s {
	case "True", "TRUE", "true":
		return 1, true
	case "False", "FALSE", "false":
		return 0, true
	}
	return 0, false
}

// ReadCSVFile opens path and loads it with ReadCSV. A missing file surfaces as
// an error wrapping os.ErrNotExist.
func ReadCSVFile(path string, opts ...ReadOption) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := ReadCSV(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// WriteCSV writes the dataset with a header row. Missing values are empty cells.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return err
	}
	rec := make([]string, len(d.Columns))
	for _, row := range d.Rows {
		for i, v := range row {
			rec[i] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLabels writes a single-column CSV of integer class labels.
func WriteLabels(w io.Writer, name string, labels []int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{name}); err != nil {
		return err
	}
	for _, y := range labels {
		if err := cw.Write([]string{strconv.Itoa(y)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLabelsFile reads a file written by WriteLabels.
func ReadLabelsFile(path string) ([]int, error) {
	ds, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	if len(ds.Columns) != 1 {
		return nil, fmt.Errorf("data: %s: expected one label column, found %d", path, len(ds.Columns))
	}
	out := make([]int, ds.Len())
	for i, row := range ds.Rows {
		f, ok := row[0].Float()
		if !ok {
			return nil, fmt.Errorf("data: %s: row %d: label %q is not an integer", path, i+1, row[0].String())
		}
		out[i] = int(f)
	}
	return out, nil
}

// IsNotExist reports whether err comes from a missing input file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
