package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"odd", []float64{5, 1, 3}, 3},
		{"even averages middle pair", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.in))
		})
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestMostFrequent(t *testing.T) {
	assert.Equal(t, "", MostFrequent(nil))
	assert.Equal(t, "b", MostFrequent([]string{"a", "b", "b", "c"}))
	// tie between "z" and "a" resolves to the smaller value regardless of order
	assert.Equal(t, "a", MostFrequent([]string{"z", "z", "a", "a"}))
	assert.Equal(t, "a", MostFrequent([]string{"a", "z", "a", "z"}))
}

func TestProportions(t *testing.T) {
	p := Proportions([]int{0, 0, 0, 1})
	assert.InDelta(t, 0.75, p[0], 1e-12)
	assert.InDelta(t, 0.25, p[1], 1e-12)
	assert.Empty(t, Proportions(nil))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1.5))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}

func TestDescribe(t *testing.T) {
	p := Describe([]float64{4, 1, 3, 2}, 2)
	assert.Equal(t, 4, p.Count)
	assert.Equal(t, 2, p.Missing)
	assert.InDelta(t, 2.5, p.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), p.Std, 1e-12)
	assert.Equal(t, 1.0, p.Min)
	assert.Equal(t, 4.0, p.Max)
	assert.InDelta(t, 1.75, p.P25, 1e-12)
	assert.InDelta(t, 2.5, p.Median, 1e-12)
	assert.InDelta(t, 3.25, p.P75, 1e-12)

	assert.Equal(t, Profile{Missing: 3}, Describe(nil, 3))
	single := Describe([]float64{7}, 0)
	assert.Equal(t, 0.0, single.Std)
	assert.Equal(t, 7.0, single.P75)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30}
	assert.Equal(t, 10.0, Percentile(sorted, 0))
	assert.Equal(t, 15.0, Percentile(sorted, 25))
	assert.Equal(t, 30.0, Percentile(sorted, 100))
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}
