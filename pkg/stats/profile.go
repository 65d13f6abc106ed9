package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Profile summarises the observed values of one numeric column.
type Profile struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	P25     float64 `json:"p25"`
	Median  float64 `json:"median"`
	P75     float64 `json:"p75"`
	Max     float64 `json:"max"`
}

// Describe profiles x. Std is the sample standard deviation and is 0 below
// two observations. An empty x gives a zero profile.
func Describe(x []float64, missing int) Profile {
	p := Profile{Count: len(x), Missing: missing}
	if len(x) == 0 {
		return p
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	p.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		p.Std = stat.StdDev(sorted, nil)
	}
	p.Min = floats.Min(sorted)
	p.Max = floats.Max(sorted)
	p.P25 = Percentile(sorted, 25)
	p.Median = Percentile(sorted, 50)
	p.P75 = Percentile(sorted, 75)
	return p
}

// Percentile returns the q-th percentile (0..100) of sorted, interpolating
// linearly between the closest ranks. sorted must be ascending.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
