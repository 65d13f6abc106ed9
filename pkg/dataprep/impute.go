package dataprep

import (
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/stats"
)

// ---------- Simple Imputation Methods ----------

// MedianImputer fills missing numeric cells with the median learned at fit time.
type MedianImputer struct {
	Median float64 `msgpack:"median"`
}

// FitMedian learns the median of the numeric cells of a column. A column with
// no numeric cells imputes 0.
func FitMedian(col []data.Value) MedianImputer {
	nums := make([]float64, 0, len(col))
	for _, v := range col {
		if f, ok := v.Float(); ok && stats.IsFinite(f) {
			nums = append(nums, f)
		}
	}
	return MedianImputer{Median: stats.Median(nums)}
}

// Transform returns the cell as a number, or the learned median when the cell
// is missing or not numeric.
func (m MedianImputer) Transform(v data.Value) float64 {
	if f, ok := v.Float(); ok && stats.IsFinite(f) {
		return f
	}
	return m.Median
}

// ModeImputer fills missing categorical cells with the most frequent value.
type ModeImputer struct {
	Mode string `msgpack:"mode"`
}

// FitMode learns the most frequent non-missing text of a column.
func FitMode(col []data.Value) ModeImputer {
	vals := make([]string, 0, len(col))
	for _, v := range col {
		if !v.IsMissing() {
			vals = append(vals, v.String())
		}
	}
	return ModeImputer{Mode: stats.MostFrequent(vals)}
}

// Transform returns the cell as text, or the learned mode when it is missing.
func (m ModeImputer) Transform(v data.Value) string {
	if v.IsMissing() {
		return m.Mode
	}
	return v.String()
}
