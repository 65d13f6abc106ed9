package data

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Age,TypeofContact,CityTier,Gender,ProdTaken
41,Self Enquiry,3,Female,1
,Company Invited,1,Male,0
37,NA,1,,1
`

func TestReadCSVInfersColumnTypes(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Age", "TypeofContact", "CityTier", "Gender", "ProdTaken"}, ds.Columns)
	assert.Equal(t, []ColumnType{Numeric, Categorical, Numeric, Categorical, Numeric}, ds.Types)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, Num(41), ds.Rows[0][0])
	assert.True(t, ds.Rows[1][0].IsMissing(), "empty numeric cell is missing")
	assert.True(t, ds.Rows[2][1].IsMissing(), "NA is missing")
	assert.True(t, ds.Rows[2][3].IsMissing())
	assert.Equal(t, Str("Company Invited"), ds.Rows[1][1])
}

func TestReadCSVForcedTextColumns(t *testing.T) {
	in := "code,y\n1,0\n2,1\n"
	ds, err := ReadCSV(strings.NewReader(in), WithTextColumns("code"))
	require.NoError(t, err)
	typ, err := ds.TypeOf("code")
	require.NoError(t, err)
	assert.Equal(t, Categorical, typ)
	assert.Equal(t, Str("1"), ds.Rows[0][0])
}

func TestReadCSVAllMissingColumnIsNumeric(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("a,b\n,x\n,y\n"))
	require.NoError(t, err)
	assert.Equal(t, Numeric, ds.Types[0])
	assert.Equal(t, Categorical, ds.Types[1])
}

func TestReadCSVBooleanColumnIsNumeric(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("Passport,Mixed,Flag\nTrue,True,1\nfalse,2,\nTRUE,x,0\n"))
	require.NoError(t, err)
	assert.Equal(t, []ColumnType{Numeric, Categorical, Numeric}, ds.Types)
	col, err := ds.Column("Passport")
	require.NoError(t, err)
	assert.Equal(t, []Value{Num(1), Num(0), Num(1)}, col)
	mixed, err := ds.Column("Mixed")
	require.NoError(t, err)
	assert.Equal(t, Str("True"), mixed[0])

	forced, err := ReadCSV(strings.NewReader("Passport\nTrue\n"), WithTextColumns("Passport"))
	require.NoError(t, err)
	assert.Equal(t, Str("True"), forced.Rows[0][0])
}

func TestReadCSVEmptyInput(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, ds.Columns)
	assert.Equal(t, 0, ds.Len())
}

func TestReadCSVRaggedRow(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1\n"))
	assert.Error(t, err)
}

func TestWriteCSVThenReadKeepsValues(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))
	assert.True(t, strings.HasPrefix(buf.String(), "Age,TypeofContact,CityTier,Gender,ProdTaken\n41,Self Enquiry,3,Female,1\n,Company Invited"))

	again, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds.Rows, again.Rows)
}

func TestLabelsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "y.csv")
	var buf bytes.Buffer
	require.NoError(t, WriteLabels(&buf, "ProdTaken", []int{1, 0, 1}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	y, err := ReadLabelsFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, y)

	_, err = ReadLabelsFile(filepath.Join(dir, "absent.csv"))
	assert.True(t, IsNotExist(err))
}

func TestDatasetDropAndSelect(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	x := ds.Drop("ProdTaken")
	assert.False(t, x.Has("ProdTaken"))
	assert.Len(t, x.Rows[0], 4)
	assert.Len(t, ds.Rows[0], 5, "drop does not touch the source")

	sub := ds.Select([]int{2, 0})
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, Num(37), sub.Rows[0][0])

	_, err = ds.Column("nope")
	assert.ErrorIs(t, err, ErrMissingColumn)
}
