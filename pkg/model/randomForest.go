package model

import (
	"errors"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int   `msgpack:"n_estimators"`
	MaxDepth        int   `msgpack:"max_depth"`
	MinSamplesSplit int   `msgpack:"min_samples_split"`
	MaxFeatures     int   `msgpack:"max_features"` // 0 => sqrt(p)
	Bootstrap       bool  `msgpack:"bootstrap"`
	RandomState     int64 `msgpack:"random_state"`

	// Internal state
	Trees     []*DecisionTreeClassifier `msgpack:"trees"`
	Classes   []int                     `msgpack:"classes"`
	NFeatures int                       `msgpack:"n_features"`
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.NEstimators = n }
}

func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForest) { rf.Bootstrap = b }
}

func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}

func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}

func WithSeed(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MaxFeatures:     0,
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the random forest. Trees are built concurrently, at most
// GOMAXPROCS at a time; each tree draws its bootstrap sample and feature
// order from its own seed, so the result does not depend on scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	p, err := checkXY("randomforest", X, y)
	if err != nil {
		return err
	}
	if rf.NEstimators < 1 {
		return errors.New("randomforest: need at least one estimator")
	}
	n := len(X)
	classes := sortedClasses(y)

	maxF := rf.MaxFeatures
	if maxF <= 0 {
		maxF = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
	}

	// seeds are drawn up front, in tree order
	master := rand.New(rand.NewSource(rf.RandomState))
	bootSeeds := make([]int64, rf.NEstimators)
	treeSeeds := make([]int64, rf.NEstimators)
	for i := range bootSeeds {
		bootSeeds[i] = master.Int63()
		treeSeeds[i] = master.Int63()
	}

	trees := make([]*DecisionTreeClassifier, rf.NEstimators)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < rf.NEstimators; i++ {
		i := i
		g.Go(func() error {
			sampleIndices := make([]int, n)
			if rf.Bootstrap {
				r := rand.New(rand.NewSource(bootSeeds[i]))
				for j := range sampleIndices {
					sampleIndices[j] = r.Intn(n)
				}
			} else {
				for j := range sampleIndices {
					sampleIndices[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMaxFeatures(maxF),
				WithRandomState(treeSeeds[i]),
			)
			if err := tree.FitIndices(X, y, sampleIndices, classes); err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rf.Trees = trees
	rf.Classes = classes
	rf.NFeatures = p
	return nil
}

// meanProba averages the leaf class frequencies of every tree. Rows are split
// across workers; each row sums trees in a fixed order.
func (rf *RandomForest) meanProba(X [][]float64) ([][]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkX("randomforest", X, rf.NFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	if len(X) == 0 {
		return out, nil
	}

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(X); start += rowsPerWorker {
		start := start
		end := min(start+rowsPerWorker, len(X))
		g.Go(func() error {
			inv := 1.0 / float64(len(rf.Trees))
			for i := start; i < end; i++ {
				acc := make([]float64, len(rf.Classes))
				for _, t := range rf.Trees {
					for c, v := range t.leafValue(X[i]) {
						acc[c] += v
					}
				}
				for c := range acc {
					acc[c] *= inv
				}
				out[i] = acc
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Predict returns the class with the highest mean probability. Ties go to
// the smaller class label.
func (rf *RandomForest) Predict(X [][]float64) ([]int, error) {
	proba, err := rf.meanProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = rf.Classes[argmaxFloat(p)]
	}
	return out, nil
}

// PredictProba returns the mean probability of Classes[1]. The forest must
// have been fitted on two classes.
func (rf *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if len(rf.Trees) > 0 && len(rf.Classes) != 2 {
		return nil, errors.New("randomforest: probabilities need exactly 2 classes")
	}
	proba, err := rf.meanProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(proba))
	for i, p := range proba {
		out[i] = p[1]
	}
	return out, nil
}
