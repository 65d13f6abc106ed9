package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Size of the rendered curve on each side.
const Size = 4 * vg.Inch

// ROCPlot renders an ROC curve as PNG. fpr and tpr are the points returned
// by model.ROCCurve, auc is printed in the title.
func ROCPlot(name string, fpr, tpr []float64, auc float64) ([]byte, error) {
	if len(fpr) != len(tpr) {
		return nil, fmt.Errorf("report: %d fpr points for %d tpr points", len(fpr), len(tpr))
	}
	if len(fpr) == 0 {
		return nil, fmt.Errorf("report: empty ROC curve for %s", name)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC %s (AUC %.3f)", name, auc)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(fpr))
	for i := range fpr {
		pts[i].X = fpr[i]
		pts[i].Y = tpr[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	curve.Color = color.RGBA{R: 255, A: 255}
	curve.LineStyle.Width = vg.Points(2)
	p.Add(curve)

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	chance.Color = color.RGBA{B: 255, A: 255}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(chance)
	p.Legend.Add(name, curve)
	p.Legend.Add("chance", chance)
	p.Legend.Left = false
	p.Legend.Top = false

	w, err := p.WriterTo(Size, Size, "png")
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return buf.Bytes(), nil
}
