package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/dataprep"
)

// ErrAlreadyFitted is returned by a second call to Fit.
var ErrAlreadyFitted = errors.New("pipeline: preprocessor already fitted")

// ErrNotFitted is returned when Transform runs before Fit.
var ErrNotFitted = errors.New("pipeline: preprocessor not fitted")

// Transformer is the fit/transform pattern over raw tables.
type Transformer interface {
	Fit(ds *data.Dataset) error
	Transform(ds *data.Dataset) ([][]float64, error)
}

// Preprocessor turns raw records into fixed-length feature vectors. Numeric
// columns are median imputed. Categorical columns are mode imputed and then
// one-hot encoded. Columns in neither list are dropped.
//
// A Preprocessor is fitted once and is read-only afterwards, so a fitted
// instance is safe for concurrent use.
type Preprocessor struct {
	NumericCols     []string                  `msgpack:"numeric_cols"`
	CategoricalCols []string                  `msgpack:"categorical_cols"`
	Medians         []dataprep.MedianImputer  `msgpack:"medians"`
	Modes           []dataprep.ModeImputer    `msgpack:"modes"`
	Encoders        []*dataprep.OneHotEncoder `msgpack:"encoders"`
	Fitted          bool                      `msgpack:"fitted"`
}

var _ Transformer = (*Preprocessor)(nil)

// NewPreprocessor builds an unfitted preprocessor. Both column lists are
// copied and sorted.
func NewPreprocessor(numeric, categorical []string) *Preprocessor {
	num := append([]string(nil), numeric...)
	cat := append([]string(nil), categorical...)
	sort.Strings(num)
	sort.Strings(cat)
	return &Preprocessor{NumericCols: num, CategoricalCols: cat}
}

// FromMeta builds an unfitted preprocessor for the columns of m.
func FromMeta(m Meta) *Preprocessor {
	return NewPreprocessor(m.NumericCols, m.CategoricalCols)
}

// Fit learns imputation statistics and category vocabularies from ds, which
// must be the training partition.
func (p *Preprocessor) Fit(ds *data.Dataset) error {
	if p.Fitted {
		return ErrAlreadyFitted
	}
	p.Medians = make([]dataprep.MedianImputer, len(p.NumericCols))
	for i, c := range p.NumericCols {
		col, err := ds.Column(c)
		if err != nil {
			return err
		}
		if err := checkNumeric(c, col); err != nil {
			return err
		}
		p.Medians[i] = dataprep.FitMedian(col)
	}

	p.Modes = make([]dataprep.ModeImputer, len(p.CategoricalCols))
	p.Encoders = make([]*dataprep.OneHotEncoder, len(p.CategoricalCols))
	for i, c := range p.CategoricalCols {
		col, err := ds.Column(c)
		if err != nil {
			return err
		}
		p.Modes[i] = dataprep.FitMode(col)
		imputed := make([]string, len(col))
		for r, v := range col {
			imputed[r] = p.Modes[i].Transform(v)
		}
		p.Encoders[i] = dataprep.FitOneHot(imputed)
	}
	p.Fitted = true

	log.Debug().Int("rows", ds.Len()).Int("features", p.NumFeatures()).Msg("Fitted preprocessor")
	return nil
}

func checkNumeric(col string, vals []data.Value) error {
	for r, v := range vals {
		if v.Kind != data.Text {
			continue
		}
		if _, ok := v.Float(); !ok {
			return fmt.Errorf("pipeline: column %q row %d: cannot convert %q to a number", col, r+1, v.Str)
		}
	}
	return nil
}

// Reindex restores lookup tables after the preprocessor has been decoded.
func (p *Preprocessor) Reindex() {
	for _, e := range p.Encoders {
		e.Reindex()
	}
}

// NumFeatures is the length of every transformed vector.
func (p *Preprocessor) NumFeatures() int {
	n := len(p.NumericCols)
	for _, e := range p.Encoders {
		n += e.Width()
	}
	return n
}

// FeatureNames names the output columns: the column itself for numeric
// features, col_category for indicators.
func (p *Preprocessor) FeatureNames() []string {
	out := make([]string, 0, p.NumFeatures())
	out = append(out, p.NumericCols...)
	for i, c := range p.CategoricalCols {
		for _, cat := range p.Encoders[i].Categories {
			out = append(out, c+"_"+cat)
		}
	}
	return out
}

// Transform maps every row of ds to a feature vector. Declared columns absent
// from ds are treated as missing.
func (p *Preprocessor) Transform(ds *data.Dataset) ([][]float64, error) {
	if !p.Fitted {
		return nil, ErrNotFitted
	}
	numIdx := lookup(ds, p.NumericCols)
	catIdx := lookup(ds, p.CategoricalCols)

	out := make([][]float64, ds.Len())
	for r, row := range ds.Rows {
		vec := make([]float64, p.NumFeatures())
		cell := func(idx int) data.Value {
			if idx < 0 {
				return data.Null
			}
			return row[idx]
		}
		if err := p.encode(vec, func(i int) data.Value { return cell(numIdx[i]) }, func(i int) data.Value { return cell(catIdx[i]) }); err != nil {
			return nil, fmt.Errorf("row %d: %w", r+1, err)
		}
		out[r] = vec
	}
	return out, nil
}

// TransformRecord maps a single record keyed by column name.
func (p *Preprocessor) TransformRecord(rec map[string]data.Value) ([]float64, error) {
	if !p.Fitted {
		return nil, ErrNotFitted
	}
	get := func(name string) data.Value {
		v, ok := rec[name]
		if !ok {
			return data.Null
		}
		return v
	}
	vec := make([]float64, p.NumFeatures())
	err := p.encode(vec,
		func(i int) data.Value { return get(p.NumericCols[i]) },
		func(i int) data.Value { return get(p.CategoricalCols[i]) },
	)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (p *Preprocessor) encode(dst []float64, num, cat func(int) data.Value) error {
	for i, c := range p.NumericCols {
		v := num(i)
		if v.Kind == data.Text {
			if _, ok := v.Float(); !ok {
				return fmt.Errorf("pipeline: column %q: cannot convert %q to a number", c, v.Str)
			}
		}
		dst[i] = p.Medians[i].Transform(v)
	}
	off := len(p.NumericCols)
	for i := range p.CategoricalCols {
		w := p.Encoders[i].Width()
		p.Encoders[i].EncodeInto(dst[off:off+w], p.Modes[i].Transform(cat(i)))
		off += w
	}
	return nil
}

func lookup(ds *data.Dataset, cols []string) []int {
	idx := make([]int, len(cols))
	for i, c := range cols {
		j, ok := ds.ColumnIndex(c)
		if !ok {
			j = -1
		}
		idx[i] = j
	}
	return idx
}
