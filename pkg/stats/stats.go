package stats

import (
	"math"
	"sort"
)

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(n)
}

// Median returns the median value of the slice (allocates a copy).
// Even-length input averages the middle pair. Empty input yields 0.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	mid := n >> 1
	if n&1 == 0 {
		return (cp[mid-1] + cp[mid]) * 0.5
	}
	return cp[mid]
}

// MostFrequent returns the most common string. Ties go to the
// lexicographically smallest candidate, so the result does not depend on
// input order. Empty input yields "".
func MostFrequent(x []string) string {
	if len(x) == 0 {
		return ""
	}
	counts := make(map[string]int, len(x))
	for _, v := range x {
		counts[v]++
	}
	best, bestCount := "", -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

// Proportions returns, for each distinct int label, its share of the slice.
func Proportions(y []int) map[int]float64 {
	out := make(map[int]float64)
	if len(y) == 0 {
		return out
	}
	for _, v := range y {
		out[v]++
	}
	for k := range out {
		out[k] /= float64(len(y))
	}
	return out
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
