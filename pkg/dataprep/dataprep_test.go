package dataprep

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

const tourismCSV = `Age,Occupation,MonthlyIncome,Gender,ProdTaken
41,Salaried,20993,Female,1
49,Salaried,20130,Male,0
41,Salaried,20993,Female,1
37,Free Lancer,,Male,
33,Small Business,17909,,1.0
`

func readTourism(t *testing.T) *data.Dataset {
	t.Helper()
	ds, err := data.ReadCSV(strings.NewReader(tourismCSV))
	require.NoError(t, err)
	return ds
}

func TestInferColumnsSortedAndDisjoint(t *testing.T) {
	ds := readTourism(t)
	num, cat := InferColumns(ds, "ProdTaken")

	assert.Equal(t, []string{"Age", "MonthlyIncome"}, num)
	assert.Equal(t, []string{"Gender", "Occupation"}, cat)
	for _, c := range num {
		assert.NotContains(t, cat, c)
	}
	assert.Len(t, append(num, cat...), len(ds.Columns)-1, "every non-label column is classified")
}

func TestInferColumnsEmptyDataset(t *testing.T) {
	num, cat := InferColumns(data.New(nil, nil), "ProdTaken")
	assert.Empty(t, num)
	assert.Empty(t, cat)
	assert.NotNil(t, num)
	assert.NotNil(t, cat)
}

func TestDropDuplicatesKeepsFirst(t *testing.T) {
	ds := readTourism(t)
	out := DropDuplicates(ds)
	assert.Equal(t, 4, out.Len())
	assert.Equal(t, data.Num(49), out.Rows[1][0])
}

func TestDropDuplicatesDistinguishesKinds(t *testing.T) {
	ds := data.New([]string{"a"}, []data.ColumnType{data.Categorical})
	require.NoError(t, ds.Append([]data.Value{data.Str("1")}))
	require.NoError(t, ds.Append([]data.Value{data.Num(1)}))
	require.NoError(t, ds.Append([]data.Value{data.Null}))
	require.NoError(t, ds.Append([]data.Value{data.Str("")}))
	assert.Equal(t, 4, DropDuplicates(ds).Len())
}

func TestCleanPipeline(t *testing.T) {
	x, y, err := Clean(readTourism(t), "ProdTaken")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, y)
	assert.False(t, x.Has("ProdTaken"))
	assert.Equal(t, 3, x.Len())
}

func TestCleanMissingLabelColumn(t *testing.T) {
	_, _, err := Clean(readTourism(t), "Purchased")
	assert.ErrorIs(t, err, data.ErrMissingColumn)
}

func TestCoerceLabel(t *testing.T) {
	ds := data.New([]string{"y"}, []data.ColumnType{data.Categorical})
	require.NoError(t, ds.Append([]data.Value{data.Str("1")}))
	require.NoError(t, ds.Append([]data.Value{data.Num(0.9)}))
	y, err := CoerceLabel(ds, "y")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, y, "numbers truncate toward zero")

	require.NoError(t, ds.Append([]data.Value{data.Str("yes")}))
	_, err = CoerceLabel(ds, "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.Contains(t, err.Error(), "yes")
}

func TestMedianImputer(t *testing.T) {
	col := []data.Value{data.Num(1), data.Null, data.Num(4), data.Num(3), data.Num(2)}
	imp := FitMedian(col)
	assert.Equal(t, 2.5, imp.Median)
	assert.Equal(t, 2.5, imp.Transform(data.Null))
	assert.Equal(t, 7.0, imp.Transform(data.Num(7)))
	assert.Equal(t, 8.0, imp.Transform(data.Str("8")))

	assert.Equal(t, 0.0, FitMedian([]data.Value{data.Null, data.Null}).Median)
}

func TestModeImputer(t *testing.T) {
	col := []data.Value{data.Str("b"), data.Str("a"), data.Null, data.Str("b"), data.Str("a")}
	imp := FitMode(col)
	assert.Equal(t, "a", imp.Mode, "ties resolve to the smaller category")
	assert.Equal(t, "a", imp.Transform(data.Null))
	assert.Equal(t, "c", imp.Transform(data.Str("c")))
	assert.Equal(t, "3.5", imp.Transform(data.Num(3.5)))

	assert.Equal(t, "", FitMode(nil).Mode)
}

func TestOneHotEncoderFirstSeenOrder(t *testing.T) {
	enc := FitOneHot([]string{"Male", "Female", "Male", "Fe Male"})
	assert.Equal(t, []string{"Male", "Female", "Fe Male"}, enc.Categories)
	assert.Equal(t, 3, enc.Width())
	assert.Equal(t, []float64{0, 1, 0}, enc.Encode("Female"))
	assert.Equal(t, []float64{0, 0, 0}, enc.Encode("Other"), "unseen category encodes as zeros")
}

func TestOneHotEncoderWithoutIndex(t *testing.T) {
	enc := &OneHotEncoder{Categories: []string{"x", "y"}}
	assert.Equal(t, []float64{0, 1}, enc.Encode("y"))
	enc.Reindex()
	assert.Equal(t, []float64{1, 0}, enc.Encode("x"))
}
