package train

import (
	"strconv"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/model"
)

// Candidate names.
const (
	LogReg = "logreg"
	Forest = "rf"
)

// Candidate is one entry of the model menu.
type Candidate struct {
	Name string
	// Params are logged to the tracker, unprefixed.
	Params map[string]string
	New    func() model.Classifier
}

// DefaultCandidates is the menu, in evaluation order: a class-balanced
// logistic regression and a 200-tree random forest.
func DefaultCandidates(seed int64) []Candidate {
	return []Candidate{
		{
			Name: LogReg,
			Params: map[string]string{
				"C":            "1",
				"max_iter":     "200",
				"class_weight": model.ClassWeightBalanced,
				"penalty":      "l2",
			},
			New: func() model.Classifier {
				return model.NewLogisticRegression(
					model.WithMaxIter(200),
					model.WithClassWeight(model.ClassWeightBalanced),
				)
			},
		},
		{
			Name: Forest,
			Params: map[string]string{
				"n_estimators":      "200",
				"max_features":      "sqrt",
				"min_samples_split": "2",
				"bootstrap":         "true",
				"random_state":      strconv.FormatInt(seed, 10),
			},
			New: func() model.Classifier {
				return model.NewRandomForest(
					model.WithNEstimators(200),
					model.WithSeed(seed),
				)
			},
		},
	}
}
