package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
)

const trainCSV = `Age,Gender,Occupation,MonthlyIncome,Extra
30,Male,Salaried,100,z
,Female,Small Business,300,z
50,Male,,200,z
40,,Salaried,,z
`

func fitted(t *testing.T) (*Preprocessor, *data.Dataset) {
	t.Helper()
	ds, err := data.ReadCSV(strings.NewReader(trainCSV))
	require.NoError(t, err)
	p := NewPreprocessor([]string{"MonthlyIncome", "Age"}, []string{"Occupation", "Gender"})
	require.NoError(t, p.Fit(ds))
	return p, ds
}

func TestPreprocessorFeatureLayout(t *testing.T) {
	p, _ := fitted(t)
	assert.Equal(t, []string{"Age", "MonthlyIncome"}, p.NumericCols)
	assert.Equal(t, []string{
		"Age", "MonthlyIncome",
		"Gender_Male", "Gender_Female",
		"Occupation_Salaried", "Occupation_Small Business",
	}, p.FeatureNames())
	assert.Equal(t, 6, p.NumFeatures())
}

func TestPreprocessorTransformImputes(t *testing.T) {
	p, ds := fitted(t)
	X, err := p.Transform(ds)
	require.NoError(t, err)
	require.Len(t, X, 4)

	// Age median of 30,50,40 is 40; income median of 100,300,200 is 200
	assert.Equal(t, []float64{30, 100, 1, 0, 1, 0}, X[0])
	assert.Equal(t, []float64{40, 300, 0, 1, 0, 1}, X[1])
	// missing occupation takes the mode, Salaried
	assert.Equal(t, []float64{50, 200, 1, 0, 1, 0}, X[2])
	// missing gender takes the mode, Male
	assert.Equal(t, []float64{40, 200, 1, 0, 1, 0}, X[3])
	for _, row := range X {
		assert.Len(t, row, p.NumFeatures())
	}
}

func TestPreprocessorUnseenCategory(t *testing.T) {
	p, _ := fitted(t)
	vec, err := p.TransformRecord(map[string]data.Value{
		"Age":           data.Num(33),
		"MonthlyIncome": data.Str("150"),
		"Gender":        data.Str("Fe Male"),
		"Occupation":    data.Str("Salaried"),
		"Unknown":       data.Str("ignored"),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{33, 150, 0, 0, 1, 0}, vec)
}

func TestPreprocessorMissingDeclaredColumn(t *testing.T) {
	p, _ := fitted(t)
	vec, err := p.TransformRecord(map[string]data.Value{"Gender": data.Str("Female")})
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 200, 0, 1, 1, 0}, vec)

	ds := data.New([]string{"Age"}, nil)
	require.NoError(t, ds.Append([]data.Value{data.Num(60)}))
	X, err := p.Transform(ds)
	require.NoError(t, err)
	assert.Equal(t, []float64{60, 200, 1, 0, 1, 0}, X[0])
}

func TestPreprocessorRejectsTextInNumericColumn(t *testing.T) {
	p, _ := fitted(t)
	_, err := p.TransformRecord(map[string]data.Value{"Age": data.Str("forty")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Age")
}

func TestPreprocessorFitOnce(t *testing.T) {
	p, ds := fitted(t)
	assert.ErrorIs(t, p.Fit(ds), ErrAlreadyFitted)

	fresh := NewPreprocessor([]string{"Age"}, nil)
	_, err := fresh.Transform(ds)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestPreprocessorFitMissingColumn(t *testing.T) {
	ds, err := data.ReadCSV(strings.NewReader(trainCSV))
	require.NoError(t, err)
	p := NewPreprocessor([]string{"Duration"}, nil)
	assert.ErrorIs(t, p.Fit(ds), data.ErrMissingColumn)
}

func TestMetaValidate(t *testing.T) {
	m := Meta{Target: "ProdTaken", NumericCols: []string{"Age"}, CategoricalCols: []string{"Gender"}}
	require.NoError(t, m.Validate())
	assert.Equal(t, []string{"Age", "Gender"}, m.Columns())
	assert.True(t, m.IsNumeric("Age"))
	assert.False(t, m.IsNumeric("Gender"))

	m.CategoricalCols = append(m.CategoricalCols, "Age")
	assert.Error(t, m.Validate())

	m = Meta{Target: "Age", NumericCols: []string{"Age"}}
	assert.Error(t, m.Validate())
}
