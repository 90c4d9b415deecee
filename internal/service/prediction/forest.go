package prediction

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// treeNode is a leaf when feature is negative.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	// value holds the weighted class totals of the samples reaching the node.
	value    [2]float64
	samples  int
	impurity float64
}

func (n *treeNode) leaf() bool {
	return n.feature < 0
}

func (n *treeNode) proba() float64 {
	total := n.value[0] + n.value[1]
	if total == 0 {
		return 0
	}
	return n.value[1] / total
}

// Tree is one fitted CART classifier of a Forest.
type Tree struct {
	root *treeNode
}

func (t *Tree) proba(x []float64) float64 {
	n := t.root
	for !n.leaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.proba()
}

// Forest is a bagged ensemble of fully grown gini trees with balanced class
// weights. Fitting is deterministic for a given seed.
type Forest struct {
	trees   []*Tree
	columns []string
}

func fitForest(X [][]float64, y []int, columns []string, trees int, seed int64) (*Forest, error) {
	if len(X) == 0 {
		return nil, errors.New("empty training set")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%d samples but %d labels", len(X), len(y))
	}
	if trees < 1 {
		return nil, fmt.Errorf("invalid number of trees %d", trees)
	}
	for i, row := range X {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(row), len(columns))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("sample %d feature %s is not finite", i, columns[j])
			}
		}
	}

	classWeight, err := balancedWeights(y)
	if err != nil {
		return nil, err
	}

	b := &builder{
		X:           X,
		y:           y,
		maxFeatures: max(1, int(math.Sqrt(float64(len(columns))))),
		rng:         rand.New(rand.NewPCG(uint64(seed), uint64(seed))),
	}

	forest := &Forest{columns: columns}
	for range trees {
		b.weights = make([]float64, len(X))
		for range len(X) {
			b.weights[b.rng.IntN(len(X))]++
		}

		idx := make([]int, 0, len(X))
		for i, w := range b.weights {
			if w > 0 {
				b.weights[i] = w * classWeight[y[i]]
				idx = append(idx, i)
			}
		}
		forest.trees = append(forest.trees, &Tree{root: b.grow(idx)})
	}
	return forest, nil
}

// balancedWeights returns n / (classes * count) per class.
func balancedWeights(y []int) ([2]float64, error) {
	var counts [2]int
	for i, label := range y {
		if label != 0 && label != 1 {
			return [2]float64{}, fmt.Errorf("label %d at sample %d is not binary", label, i)
		}
		counts[label]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		return [2]float64{}, errors.New("training split contains a single class")
	}
	n := float64(len(y))
	return [2]float64{n / (2 * float64(counts[0])), n / (2 * float64(counts[1]))}, nil
}

type builder struct {
	X           [][]float64
	y           []int
	weights     []float64
	maxFeatures int
	rng         *rand.Rand
}

func (b *builder) grow(idx []int) *treeNode {
	n := &treeNode{feature: -1, samples: len(idx)}
	for _, i := range idx {
		n.value[b.y[i]] += b.weights[i]
	}
	n.impurity = gini(n.value)
	if n.impurity == 0 || len(idx) < 2 {
		return n
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return n
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	n.feature = feature
	n.threshold = threshold
	n.left = b.grow(left)
	n.right = b.grow(right)
	return n
}

// bestSplit draws features in random order until maxFeatures non-constant
// ones have been evaluated, and returns the split with the lowest weighted
// child impurity.
func (b *builder) bestSplit(idx []int) (int, float64, bool) {
	var (
		bestFeature   = -1
		bestThreshold float64
		bestScore     = math.Inf(1)
		evaluated     int
	)

	sorted := make([]int, len(idx))
	for _, f := range b.rng.Perm(len(b.X[0])) {
		if evaluated >= b.maxFeatures {
			break
		}

		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X[sorted[i]][f] < b.X[sorted[j]][f]
		})
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}
		evaluated++

		var total [2]float64
		for _, i := range sorted {
			total[b.y[i]] += b.weights[i]
		}

		var left [2]float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			left[b.y[i]] += b.weights[i]

			lo, hi := b.X[i][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}

			right := [2]float64{total[0] - left[0], total[1] - left[1]}
			wl, wr := left[0]+left[1], right[0]+right[1]
			score := wl*gini(left) + wr*gini(right)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(value [2]float64) float64 {
	total := value[0] + value[1]
	if total == 0 {
		return 0
	}
	p0, p1 := value[0]/total, value[1]/total
	return 1 - p0*p0 - p1*p1
}

// PredictProba returns the mean class-1 probability across trees.
func (f *Forest) PredictProba(x []float64) (float64, error) {
	if len(x) != len(f.columns) {
		return 0, fmt.Errorf("got %d features, model was trained on %d", len(x), len(f.columns))
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("feature %s is not finite", f.columns[i])
		}
	}

	var sum float64
	for _, t := range f.trees {
		sum += t.proba(x)
	}
	return sum / float64(len(f.trees)), nil
}

// Accuracy is the share of the given samples whose predicted class (p > 0.5)
// matches the label.
func (f *Forest) Accuracy(X [][]float64, y []int, idx []int) (float64, error) {
	if len(idx) == 0 {
		return 0, errors.New("empty evaluation set")
	}

	var correct int
	for _, i := range idx {
		p, err := f.PredictProba(X[i])
		if err != nil {
			return 0, err
		}
		predicted := 0
		if p > 0.5 {
			predicted = 1
		}
		if predicted == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(idx)), nil
}

// Tree returns the i-th estimator, nil when out of range.
func (f *Forest) Tree(i int) *Tree {
	if i < 0 || i >= len(f.trees) {
		return nil
	}
	return f.trees[i]
}

func (f *Forest) Columns() []string {
	return f.columns
}
