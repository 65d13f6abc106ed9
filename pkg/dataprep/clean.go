package dataprep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
)

// DropDuplicates removes exact duplicate rows, keeping the first occurrence.
func DropDuplicates(ds *data.Dataset) *data.Dataset {
	seen := make(map[string]struct{}, ds.Len())
	keep := make([]int, 0, ds.Len())
	for i, row := range ds.Rows {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	return ds.Select(keep)
}

// rowKey builds a string that is equal for two rows iff every cell has the
// same kind and the same content.
func rowKey(row []data.Value) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteByte(byte('0' + v.Kind))
		switch v.Kind {
		case data.Number:
			b.WriteString(strconv.FormatFloat(v.Num, 'g', -1, 64))
		case data.Text:
			b.WriteString(strconv.Quote(v.Str))
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// DropMissingLabel removes rows whose label cell is missing.
func DropMissingLabel(ds *data.Dataset, label string) (*data.Dataset, error) {
	li, ok := ds.ColumnIndex(label)
	if !ok {
		return nil, fmt.Errorf("%w: label %q", data.ErrMissingColumn, label)
	}
	keep := make([]int, 0, ds.Len())
	for i, row := range ds.Rows {
		if !row[li].IsMissing() {
			keep = append(keep, i)
		}
	}
	return ds.Select(keep), nil
}

// CoerceLabel turns the label column into integer classes. Numbers are
// truncated toward zero; text must parse as a number.
func CoerceLabel(ds *data.Dataset, label string) ([]int, error) {
	col, err := ds.Column(label)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(col))
	for i, v := range col {
		f, ok := v.Float()
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("dataprep: row %d: cannot convert label %q to an integer", i+1, v.String())
		}
		out[i] = int(f)
	}
	return out, nil
}

// Clean applies the fixed cleaning sequence: drop duplicates, drop rows with a
// missing label, coerce the label. It returns the feature columns and labels.
func Clean(ds *data.Dataset, label string) (*data.Dataset, []int, error) {
	if !ds.Has(label) {
		return nil, nil, fmt.Errorf("%w: target column %q not found in dataset columns %v", data.ErrMissingColumn, label, ds.Columns)
	}
	ds = DropDuplicates(ds)
	ds, err := DropMissingLabel(ds, label)
	if err != nil {
		return nil, nil, err
	}
	y, err := CoerceLabel(ds, label)
	if err != nil {
		return nil, nil, err
	}
	return ds.Drop(label), y, nil
}
