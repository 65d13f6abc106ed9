package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier over dense numeric
// features. Nodes are stored in a flat slice so a fitted tree encodes
// without pointers.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     `msgpack:"max_depth"`         // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     `msgpack:"min_samples_split"` // minimum samples to attempt a split
	MinSamplesLeaf      int     `msgpack:"min_samples_leaf"`  // minimum samples required in each leaf
	Criterion           string  `msgpack:"criterion"`         // "gini" (default) or "entropy"
	MaxFeatures         int     `msgpack:"max_features"`      // 0 => all features, >0 => features sampled per split
	MinImpurityDecrease float64 `msgpack:"min_impurity_decrease"`
	RandomState         int64   `msgpack:"random_state"` // seed for feature subsampling

	// internals
	Nodes     []TreeNode `msgpack:"nodes"`
	Classes   []int      `msgpack:"classes"` // class labels, aligned with TreeNode.Value
	NFeatures int        `msgpack:"n_features"`
}

// TreeNode is one node of a fitted tree. Left is -1 for leaves.
type TreeNode struct {
	Feature   int       `msgpack:"f"`
	Threshold float64   `msgpack:"t"` // x <= Threshold goes left
	Left      int       `msgpack:"l"`
	Right     int       `msgpack:"r"`
	Value     []float64 `msgpack:"v,omitempty"` // class frequencies at a leaf
}

// IsLeaf reports whether the node has no children.
func (n TreeNode) IsLeaf() bool { return n.Left < 0 }

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option {
	return func(t *DecisionTreeClassifier) { t.MaxDepth = d }
}

func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}

func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}

func WithCriterion(c string) Option {
	return func(t *DecisionTreeClassifier) { t.Criterion = c }
}

func WithMaxFeatures(k int) Option {
	return func(t *DecisionTreeClassifier) { t.MaxFeatures = k }
}

func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}

func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0, // 0 => no explicit max (stopping by other criteria)
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		RandomState:         time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API: Fit / Predict / PredictProba
// ---------------------------

// Fit trains the decision tree on X (n x p) and y (n labels as ints).
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	if _, err := checkXY("dtree", X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(X, y, idx, sortedClasses(y))
}

// FitIndices trains on the rows of X named by idx, which may repeat (a
// bootstrap sample). classes fixes the label order of leaf frequencies so
// that trees of one forest stay aligned even when a sample misses a class.
func (t *DecisionTreeClassifier) FitIndices(X [][]float64, y []int, idx []int, classes []int) error {
	if len(idx) == 0 {
		return errors.New("dtree: empty sample")
	}
	if len(classes) == 0 {
		return errors.New("dtree: no classes in y")
	}
	p := len(X[0])
	classPos := make(map[int]int, len(classes))
	for i, c := range classes {
		classPos[c] = i
	}
	yc := make([]int, len(y))
	for i, v := range y {
		ci, ok := classPos[v]
		if !ok {
			return errors.New("dtree: label outside the given classes")
		}
		yc[i] = ci
	}

	impurity := giniFromCounts
	if t.Criterion == "entropy" {
		impurity = entropyFromCounts
	}

	b := &builder{
		t:        t,
		X:        X,
		y:        yc,
		p:        p,
		nClasses: len(classes),
		impurity: impurity,
		rnd:      rand.New(rand.NewSource(t.RandomState)),
		features: make([]int, p),
	}
	t.Nodes = t.Nodes[:0]
	t.Classes = append([]int(nil), classes...)
	t.NFeatures = p

	sample := append([]int(nil), idx...)
	b.build(sample, 0)
	return nil
}

// Predict returns predicted class labels aligned with the labels the tree was trained on.
func (t *DecisionTreeClassifier) Predict(X [][]float64) ([]int, error) {
	if len(t.Nodes) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkX("dtree", X, t.NFeatures); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i := range X {
		out[i] = t.Classes[argmaxFloat(t.leafValue(X[i]))]
	}
	return out, nil
}

// PredictProba returns the positive-class (Classes[1]) frequency of the leaf
// each row falls in. The tree must have been fitted on two classes.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, ErrNotFitted
	}
	if len(t.Classes) != 2 {
		return nil, errors.New("dtree: probabilities need exactly 2 classes")
	}
	if err := checkX("dtree", X, t.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i := range X {
		out[i] = t.leafValue(X[i])[1]
	}
	return out, nil
}

// Depth returns the length of the longest root-to-leaf path.
func (t *DecisionTreeClassifier) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

func (t *DecisionTreeClassifier) leafValue(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

type builder struct {
	t        *DecisionTreeClassifier
	X        [][]float64
	y        []int // class position per row of X
	p        int
	nClasses int
	impurity func(counts []int) float64
	rnd      *rand.Rand
	features []int
}

// A struct to hold the results of a single feature's best split search.
type splitResult struct {
	ok        bool
	gain      float64
	feature   int
	threshold float64
}

// pair is a named type for a value and its original index.
type pair struct {
	v float64
	i int
}

// build appends the subtree for idx and returns its node index.
func (b *builder) build(idx []int, depth int) int {
	t := b.t
	counts := make([]int, b.nClasses)
	for _, ii := range idx {
		counts[b.y[ii]]++
	}

	node := len(t.Nodes)
	t.Nodes = append(t.Nodes, TreeNode{Left: -1, Right: -1})

	// make leaf if pure or too few samples or depth reached
	if isPure(counts) ||
		len(idx) < t.MinSamplesSplit ||
		len(idx) < 2*t.MinSamplesLeaf ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) {
		t.Nodes[node].Value = countsToProbas(counts)
		return node
	}

	best := b.bestSplit(idx, counts)
	if !best.ok || best.gain < t.MinImpurityDecrease {
		t.Nodes[node].Value = countsToProbas(counts)
		return node
	}

	// partition idx in place: x <= threshold first
	l := 0
	for r := range idx {
		if b.X[idx[r]][best.feature] <= best.threshold {
			idx[l], idx[r] = idx[r], idx[l]
			l++
		}
	}
	left := b.build(idx[:l], depth+1)
	right := b.build(idx[l:], depth+1)
	t.Nodes[node].Feature = best.feature
	t.Nodes[node].Threshold = best.threshold
	t.Nodes[node].Left = left
	t.Nodes[node].Right = right
	return node
}

// bestSplit visits features in random order until MaxFeatures non-constant
// features have been evaluated.
func (b *builder) bestSplit(idx []int, counts []int) splitResult {
	for j := range b.features {
		b.features[j] = j
	}
	maxF := b.p
	if b.t.MaxFeatures > 0 && b.t.MaxFeatures < b.p {
		maxF = b.t.MaxFeatures
	}
	parent := b.impurity(counts)

	var best splitResult
	visited := 0
	for i := 0; i < b.p && visited < maxF; i++ {
		j := i + b.rnd.Intn(b.p-i)
		b.features[i], b.features[j] = b.features[j], b.features[i]
		res, constant := b.findBestSplitForFeature(idx, b.features[i], counts, parent)
		if constant {
			continue
		}
		visited++
		if res.ok && (!best.ok || res.gain > best.gain) {
			best = res
		}
	}
	return best
}

// findBestSplitForFeature sorts the sample on feature f and scans every
// boundary between distinct values, updating class counts incrementally.
func (b *builder) findBestSplitForFeature(idx []int, f int, counts []int, parent float64) (splitResult, bool) {
	vals := make([]pair, len(idx))
	for k, ii := range idx {
		vals[k] = pair{b.X[ii][f], ii}
	}
	sort.Slice(vals, func(a, c int) bool { return vals[a].v < vals[c].v })
	if vals[0].v == vals[len(vals)-1].v {
		return splitResult{}, true
	}

	n := len(vals)
	minLeaf := b.t.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	left := make([]int, b.nClasses)
	right := append([]int(nil), counts...)
	result := splitResult{feature: f}

	for s := 1; s < n; s++ {
		c := b.y[vals[s-1].i]
		left[c]++
		right[c]--
		if vals[s].v == vals[s-1].v {
			continue
		}
		if s < minLeaf || n-s < minLeaf {
			continue
		}
		weighted := (float64(s)/float64(n))*b.impurity(left) + (float64(n-s)/float64(n))*b.impurity(right)
		gain := parent - weighted
		if !result.ok || gain > result.gain {
			thr := (vals[s-1].v + vals[s].v) / 2.0
			if thr >= vals[s].v {
				thr = vals[s-1].v
			}
			result.ok = true
			result.gain = gain
			result.threshold = thr
		}
	}
	return result, false
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := float64(c) / n
		res -= p * p
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}
