package model

import (
	"errors"
	"sort"
)

// Classifier is a supervised model over dense feature rows and integer labels.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
}

// ProbabilisticClassifier also estimates the positive-class probability.
type ProbabilisticClassifier interface {
	Classifier
	// PredictProba returns p(y = positive class) for each row.
	PredictProba(X [][]float64) ([]float64, error)
}

// AsProbabilistic reports whether c can estimate probabilities.
func AsProbabilistic(c Classifier) (ProbabilisticClassifier, bool) {
	p, ok := c.(ProbabilisticClassifier)
	return p, ok
}

// ErrNotFitted is returned by Predict and PredictProba before Fit.
var ErrNotFitted = errors.New("model: not fitted")

// checkXY validates a training set.
func checkXY(prefix string, X [][]float64, y []int) (nFeatures int, err error) {
	if len(X) == 0 {
		return 0, errors.New(prefix + ": empty X")
	}
	if len(y) != len(X) {
		return 0, errors.New(prefix + ": X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, errors.New(prefix + ": inconsistent number of features in X rows")
		}
	}
	return p, nil
}

// checkX validates rows passed to a fitted model.
func checkX(prefix string, X [][]float64, nFeatures int) error {
	for i := range X {
		if len(X[i]) != nFeatures {
			return errors.New(prefix + ": feature count mismatch between model and input")
		}
	}
	return nil
}

// sortedClasses returns the distinct labels of y in ascending order.
func sortedClasses(y []int) []int {
	seen := map[int]struct{}{}
	out := []int{}
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
