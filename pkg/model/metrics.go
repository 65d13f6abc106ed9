package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Metric names.
const (
	MetricAccuracy  = "accuracy"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricF1        = "f1"
	MetricROCAUC    = "roc_auc"
)

// MetricOrder is the order metrics are reported in.
var MetricOrder = []string{MetricAccuracy, MetricPrecision, MetricRecall, MetricF1, MetricROCAUC}

// Metrics maps a metric name to its value. NaN marks an undefined metric.
type Metrics map[string]float64

// Score evaluates binary predictions. proba may be nil, in which case
// roc_auc is left out.
func Score(yTrue, yPred []int, proba []float64) Metrics {
	prec, rec, f1 := PrecisionRecallF1(yTrue, yPred)
	m := Metrics{
		MetricAccuracy:  Accuracy(yTrue, yPred),
		MetricPrecision: prec,
		MetricRecall:    rec,
		MetricF1:        f1,
	}
	if proba != nil {
		m[MetricROCAUC] = ROCAUC(yTrue, proba)
	}
	return m
}

// Keys returns the metric names present, in report order.
func (m Metrics) Keys() []string {
	out := make([]string, 0, len(m))
	for _, k := range MetricOrder {
		if _, ok := m[k]; ok {
			out = append(out, k)
		}
	}
	var extra []string
	for k := range m {
		if !contains(MetricOrder, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MarshalJSON writes NaN and infinities as strings, which plain JSON numbers
// cannot hold.
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = JSONFloat(v)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts numbers or the strings "NaN", "Infinity", "-Infinity".
func (m *Metrics) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = make(Metrics, len(raw))
	for k, v := range raw {
		f, err := ParseJSONFloat(v)
		if err != nil {
			return fmt.Errorf("metric %q: %w", k, err)
		}
		(*m)[k] = f
	}
	return nil
}

// JSONFloat returns v, or its string form when v is not finite.
func JSONFloat(v float64) any {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return v
}

// ParseJSONFloat reverses JSONFloat.
func ParseJSONFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		switch x {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

// Classification metrics (binary, labels 0/1)

// Accuracy is the share of matching labels; 0 for empty input.
func Accuracy(yTrue []int, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 treats 1 as the positive class. Zero denominators yield 0.
func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == 1 && yTrue[i] == 1 {
			tp++
		}
		if yPred[i] == 1 && yTrue[i] != 1 {
			fp++
		}
		if yPred[i] != 1 && yTrue[i] == 1 {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ROCCurve returns the false and true positive rates over every distinct
// score cutoff, both ascending from 0 to 1.
func ROCCurve(yTrue []int, scores []float64) (fpr, tpr []float64) {
	type scored struct {
		s   float64
		pos bool
	}
	pts := make([]scored, len(scores))
	for i := range scores {
		pts[i] = scored{scores[i], yTrue[i] == 1}
	}
	sort.SliceStable(pts, func(a, b int) bool { return pts[a].s < pts[b].s })
	y := make([]float64, len(pts))
	classes := make([]bool, len(pts))
	for i, p := range pts {
		y[i] = p.s
		classes[i] = p.pos
	}
	tpr, fpr, _ = stat.ROC(nil, y, classes, nil)
	return fpr, tpr
}

// ROCAUC is the area under the ROC curve, or NaN when yTrue holds a single
// class and the curve is undefined.
func ROCAUC(yTrue []int, scores []float64) float64 {
	pos, neg := 0, 0
	for _, v := range yTrue {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	fpr, tpr := ROCCurve(yTrue, scores)
	return integrate.Trapezoidal(fpr, tpr)
}
