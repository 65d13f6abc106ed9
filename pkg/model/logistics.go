package model

import (
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/optim"
)

// ClassWeightBalanced weights each sample by n / (nClasses * n_class).
const ClassWeightBalanced = "balanced"

// LogisticRegression is a binary L2-regularised logistic regression fitted
// with L-BFGS. The intercept is not penalised.
type LogisticRegression struct {
	C           float64 `msgpack:"c"` // inverse regularisation strength
	MaxIter     int     `msgpack:"max_iter"`
	ClassWeight string  `msgpack:"class_weight"` // "" or "balanced"

	W       []float64 `msgpack:"w"`
	B       float64   `msgpack:"b"`
	Classes []int     `msgpack:"classes"` // Classes[1] is the positive class
	NIter   int       `msgpack:"n_iter"`
}

// LogisticOption configures a LogisticRegression.
type LogisticOption func(*LogisticRegression)

func WithC(c float64) LogisticOption {
	return func(m *LogisticRegression) { m.C = c }
}

func WithMaxIter(n int) LogisticOption {
	return func(m *LogisticRegression) { m.MaxIter = n }
}

func WithClassWeight(w string) LogisticOption {
	return func(m *LogisticRegression) { m.ClassWeight = w }
}

// NewLogisticRegression returns an unfitted model with C=1 and 100 iterations.
func NewLogisticRegression(opts ...LogisticOption) *LogisticRegression {
	m := &LogisticRegression{C: 1.0, MaxIter: 100}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Fit minimises the weighted, regularised log loss starting from zero weights.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	p, err := checkXY("logreg", X, y)
	if err != nil {
		return err
	}
	classes := sortedClasses(y)
	if len(classes) != 2 {
		return errors.New("logreg: need exactly 2 classes in y")
	}
	if m.C <= 0 {
		return errors.New("logreg: C must be positive")
	}

	n := len(X)
	target := make([]float64, n)
	for i, v := range y {
		if v == classes[1] {
			target[i] = 1
		}
	}
	sw := m.sampleWeights(target)

	obj := optim.Objective{
		Func: func(theta []float64) float64 {
			w, b := theta[:p], theta[p]
			loss := 0.0
			for i, row := range X {
				loss += sw[i] * optim.LogLoss(target[i], floats.Dot(w, row)+b)
			}
			return 0.5*floats.Dot(w, w) + m.C*loss
		},
		Grad: func(grad, theta []float64) {
			w, b := theta[:p], theta[p]
			copy(grad[:p], w)
			grad[p] = 0
			for i, row := range X {
				d := m.C * sw[i] * (optim.Sigmoid(floats.Dot(w, row)+b) - target[i])
				floats.AddScaled(grad[:p], d, row)
				grad[p] += d
			}
		},
	}

	res, err := optim.NewLBFGS(m.MaxIter).Minimize(obj, make([]float64, p+1))
	if err != nil {
		return err
	}
	m.W = append([]float64(nil), res.X[:p]...)
	m.B = res.X[p]
	m.Classes = classes
	m.NIter = res.Iterations
	if !res.Converged {
		log.Warn().Int("max_iter", m.MaxIter).Msg("logreg: L-BFGS reached the iteration bound before converging")
	}
	return nil
}

func (m *LogisticRegression) sampleWeights(target []float64) []float64 {
	sw := make([]float64, len(target))
	for i := range sw {
		sw[i] = 1
	}
	if m.ClassWeight != ClassWeightBalanced {
		return sw
	}
	pos := floats.Sum(target)
	neg := float64(len(target)) - pos
	n := float64(len(target))
	for i, t := range target {
		if t == 1 {
			sw[i] = n / (2 * pos)
		} else {
			sw[i] = n / (2 * neg)
		}
	}
	return sw
}

// PredictProba returns p(y = Classes[1]) for each row in X.
// Rows are scored in parallel across GOMAXPROCS workers.
func (m *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	if m.Classes == nil {
		return nil, ErrNotFitted
	}
	if err := checkX("logreg", X, len(m.W)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	if len(X) == 0 {
		return out, nil
	}
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > len(X) {
			end = len(X)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = optim.Sigmoid(floats.Dot(m.W, X[i]) + m.B)
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

// Predict returns Classes[1] when the probability exceeds 0.5.
func (m *LogisticRegression) Predict(X [][]float64) ([]int, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p > 0.5 {
			out[i] = m.Classes[1]
		} else {
			out[i] = m.Classes[0]
		}
	}
	return out, nil
}
