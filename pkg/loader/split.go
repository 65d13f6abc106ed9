package loader

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
)

const (
	// DefaultSeed is the split seed used by the prepare stage.
	DefaultSeed int64 = 42
	// DefaultTestFraction is the share of rows held out for evaluation.
	DefaultTestFraction = 0.2
)

// ErrStratification is returned when the labels cannot be split while
// preserving class proportions.
var ErrStratification = errors.New("loader: stratified split impossible")

// Split holds the row indices of the two partitions.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions row indices so that each class keeps its share in
// the test partition up to rounding. The same labels, seed and fraction always
// yield the same split.
func StratifiedSplit(y []int, seed int64, testFrac float64) (Split, error) {
	n := len(y)
	if testFrac <= 0 || testFrac >= 1 {
		return Split{}, fmt.Errorf("%w: test fraction %v outside (0, 1)", ErrStratification, testFrac)
	}

	byClass := map[int][]int{}
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	if len(classes) < 2 {
		return Split{}, fmt.Errorf("%w: need at least 2 classes, got %d", ErrStratification, len(classes))
	}
	for _, c := range classes {
		if len(byClass[c]) < 2 {
			return Split{}, fmt.Errorf("%w: class %d has only %d member", ErrStratification, c, len(byClass[c]))
		}
	}

	nTest := int(math.Ceil(testFrac * float64(n)))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return Split{}, fmt.Errorf("%w: %d test and %d train rows cannot hold %d classes", ErrStratification, nTest, nTrain, len(classes))
	}

	alloc := allocate(classes, byClass, n, nTest)

	rng := rand.New(rand.NewSource(seed))
	var s Split
	s.Train = make([]int, 0, nTrain)
	s.Test = make([]int, 0, nTest)
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		s.Test = append(s.Test, idx[:alloc[c]]...)
		s.Train = append(s.Train, idx[alloc[c]:]...)
	}
	rng.Shuffle(len(s.Train), func(i, j int) { s.Train[i], s.Train[j] = s.Train[j], s.Train[i] })
	rng.Shuffle(len(s.Test), func(i, j int) { s.Test[i], s.Test[j] = s.Test[j], s.Test[i] })
	return s, nil
}

// allocate distributes nTest over the classes by largest remainder of
// count*nTest/n. Ties on the remainder go to the smaller class label. No class
// gets more than count-1 test rows, so every class keeps a training row;
// StratifiedSplit guarantees the caps leave room for nTest.
func allocate(classes []int, byClass map[int][]int, n, nTest int) map[int]int {
	type share struct {
		class int
		frac  float64
	}
	alloc := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	given := 0
	for _, c := range classes {
		exact := float64(len(byClass[c])) * float64(nTest) / float64(n)
		whole := int(math.Floor(exact))
		alloc[c] = whole
		given += whole
		shares = append(shares, share{c, exact - float64(whole)})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for given < nTest {
		for _, sh := range shares {
			if given == nTest {
				break
			}
			if alloc[sh.class] < len(byClass[sh.class])-1 {
				alloc[sh.class]++
				given++
			}
		}
	}
	return alloc
}

// SplitDataset applies a stratified split to a feature table and its labels.
func SplitDataset(x *data.Dataset, y []int, seed int64, testFrac float64) (xTrain, xTest *data.Dataset, yTrain, yTest []int, err error) {
	if x.Len() != len(y) {
		return nil, nil, nil, nil, fmt.Errorf("loader: %d feature rows but %d labels", x.Len(), len(y))
	}
	s, err := StratifiedSplit(y, seed, testFrac)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	pick := func(idx []int) []int {
		out := make([]int, len(idx))
		for i, j := range idx {
			out[i] = y[j]
		}
		return out
	}
	return x.Select(s.Train), x.Select(s.Test), pick(s.Train), pick(s.Test), nil
}
