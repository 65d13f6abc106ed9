package pipeline

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Meta describes the columns a fitted pipeline expects. The prepare stage
// writes it next to the preprocessor; the train stage copies it into the
// model bundle together with the winning candidate.
type Meta struct {
	Target          string   `msgpack:"target" json:"target"`
	NumericCols     []string `msgpack:"numeric_cols" json:"numeric_cols"`
	CategoricalCols []string `msgpack:"categorical_cols" json:"categorical_cols"`

	// set only in the model bundle
	Model     string             `msgpack:"model,omitempty" json:"model,omitempty"`
	Metrics   map[string]float64 `msgpack:"metrics,omitempty" json:"-"`
	BundleID  string             `msgpack:"bundle_id,omitempty" json:"bundle_id,omitempty"`
	CreatedAt time.Time          `msgpack:"created_at,omitempty" json:"created_at,omitempty"`
}

// Columns returns every feature column, numeric first, in the order the
// transform consumes them.
func (m Meta) Columns() []string {
	out := make([]string, 0, len(m.NumericCols)+len(m.CategoricalCols))
	out = append(out, m.NumericCols...)
	return append(out, m.CategoricalCols...)
}

// IsNumeric reports whether name is one of the numeric columns.
func (m Meta) IsNumeric(name string) bool {
	for _, c := range m.NumericCols {
		if c == name {
			return true
		}
	}
	return false
}

// Validate checks the column sets are disjoint and exclude the target.
func (m Meta) Validate() error {
	num := mapset.NewSet(m.NumericCols...)
	cat := mapset.NewSet(m.CategoricalCols...)
	if both := num.Intersect(cat); both.Cardinality() > 0 {
		return fmt.Errorf("pipeline: columns both numeric and categorical: %v", both.ToSlice())
	}
	if num.Contains(m.Target) || cat.Contains(m.Target) {
		return fmt.Errorf("pipeline: target %q listed as a feature", m.Target)
	}
	return nil
}
