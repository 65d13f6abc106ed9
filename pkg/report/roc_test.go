package report

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestROCPlotPNG(t *testing.T) {
	b, err := ROCPlot("logreg", []float64{0, 0, 0.5, 1}, []float64{0, 0.5, 1, 1}, 0.875)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestROCPlotRejectsBadInput(t *testing.T) {
	_, err := ROCPlot("rf", []float64{0, 1}, []float64{0}, 0.5)
	assert.Error(t, err)
	_, err = ROCPlot("rf", nil, nil, 0.5)
	assert.Error(t, err)
}
