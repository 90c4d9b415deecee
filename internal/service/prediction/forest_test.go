package prediction

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

var testColumns = []string{"a", "b"}

func TestStratifiedSplit(t *testing.T) {
	y := []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1}

	train, test, err := stratifiedSplit(y, 0.2, 42)
	if err != nil {
		t.Fatalf("stratifiedSplit() error = %v", err)
	}
	if len(train)+len(test) != len(y) {
		t.Fatalf("split lost samples: %d + %d", len(train), len(test))
	}

	var testClasses [2]int
	for _, i := range test {
		testClasses[y[i]]++
	}
	if testClasses[0] == 0 || testClasses[1] == 0 {
		t.Errorf("test split %v is missing a class", test)
	}

	again, _, _ := stratifiedSplit(y, 0.2, 42)
	for i := range train {
		if train[i] != again[i] {
			t.Fatalf("same seed gave different splits: %v vs %v", train, again)
		}
	}
}

func TestStratifiedSplitErrors(t *testing.T) {
	tests := []struct {
		name     string
		y        []int
		fraction float64
	}{
		{"singleton class", []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, 0.2},
		{"test smaller than classes", []int{0, 0, 0, 1, 1}, 0.1},
		{"train smaller than classes", []int{0, 0, 1, 1}, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := stratifiedSplit(tt.y, tt.fraction, 42); err == nil {
				t.Error("stratifiedSplit() error = nil, want error")
			}
		})
	}
}

func TestFitForestErrors(t *testing.T) {
	tests := []struct {
		name  string
		X     [][]float64
		y     []int
		trees int
	}{
		{"empty", nil, nil, 10},
		{"single class", [][]float64{{1, 2}, {3, 4}}, []int{1, 1}, 10},
		{"ragged rows", [][]float64{{1, 2}, {3}}, []int{0, 1}, 10},
		{"label mismatch", [][]float64{{1, 2}}, []int{0, 1}, 10},
		{"non binary label", [][]float64{{1, 2}, {3, 4}}, []int{0, 2}, 10},
		{"no trees", [][]float64{{1, 2}, {3, 4}}, []int{0, 1}, 0},
		{"non finite feature", [][]float64{{1, math.NaN()}, {3, 4}}, []int{0, 1}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fitForest(tt.X, tt.y, testColumns, tt.trees, 42); err == nil {
				t.Error("fitForest() error = nil, want error")
			}
		})
	}
}

func TestForestSeparatesClasses(t *testing.T) {
	var (
		X [][]float64
		y []int
	)
	for i := range 30 {
		X = append(X, []float64{float64(i), 1})
		if i >= 15 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	f, err := fitForest(X, y, testColumns, 25, 42)
	if err != nil {
		t.Fatalf("fitForest() error = %v", err)
	}

	if p, _ := f.PredictProba([]float64{29, 1}); p <= 0.5 {
		t.Errorf("PredictProba(high) = %v, want > 0.5", p)
	}
	if p, _ := f.PredictProba([]float64{0, 1}); p >= 0.5 {
		t.Errorf("PredictProba(low) = %v, want < 0.5", p)
	}
	if _, err := f.PredictProba([]float64{1}); err == nil {
		t.Error("PredictProba() with wrong width succeeded")
	}
	if _, err := f.PredictProba([]float64{math.NaN(), 1}); err == nil {
		t.Error("PredictProba() with NaN succeeded")
	}

	acc, err := f.Accuracy(X, y, []int{0, 1, 28, 29})
	if err != nil || acc != 1 {
		t.Errorf("Accuracy() = %v, %v, want 1", acc, err)
	}
	if _, err := f.Accuracy(X, y, nil); err == nil {
		t.Error("Accuracy() on empty set succeeded")
	}
}

func TestBalancedWeights(t *testing.T) {
	w, err := balancedWeights([]int{0, 0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if w[0] != 4.0/6 || w[1] != 2 {
		t.Errorf("balancedWeights() = %v, want [0.667 2]", w)
	}
}

func TestGini(t *testing.T) {
	if g := gini([2]float64{5, 5}); g != 0.5 {
		t.Errorf("gini(even) = %v, want 0.5", g)
	}
	if g := gini([2]float64{3, 0}); g != 0 {
		t.Errorf("gini(pure) = %v, want 0", g)
	}
}

func TestWriteDOT(t *testing.T) {
	tree := &Tree{root: &treeNode{
		feature: 0, threshold: 2.5, samples: 4, impurity: 0.5, value: [2]float64{2, 2},
		left:  &treeNode{feature: -1, samples: 2, value: [2]float64{2, 0}},
		right: &treeNode{feature: -1, samples: 2, value: [2]float64{0, 2}},
	}}

	var buf bytes.Buffer
	if err := writeDOT(&buf, tree, testColumns, [2]string{"low", "high"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"digraph Tree {",
		`a <= 2.50\ngini = 0.50`,
		`0 -> 1 [labeldistance=2.5, labelangle=45, headlabel="True"] ;`,
		`0 -> 2 [labeldistance=2.5, labelangle=-45, headlabel="False"] ;`,
		`class = high`,
		`fillcolor="#e58139"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("DOT output is not closed")
	}
}

func TestModelCache(t *testing.T) {
	if c := newModelCache(0); c != nil {
		t.Fatal("size 0 should disable the cache")
	}
	var disabled *modelCache
	disabled.add(1, &trainedModel{})
	if _, ok := disabled.get(1); ok {
		t.Error("disabled cache returned a hit")
	}

	c := newModelCache(2)
	a, b, d := &trainedModel{}, &trainedModel{}, &trainedModel{}
	c.add(1, a)
	c.add(2, b)
	c.get(1)
	c.add(3, d)

	if _, ok := c.get(2); ok {
		t.Error("least recently used entry was not evicted")
	}
	if got, ok := c.get(1); !ok || got != a {
		t.Error("recently used entry was evicted")
	}
	if c.len() != 2 {
		t.Errorf("len() = %d, want 2", c.len())
	}
}

func TestFrameKey(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}}
	base := frameKey(testColumns, X, []int{0, 1}, 100, 42, 0.2)

	if frameKey(testColumns, X, []int{0, 1}, 100, 42, 0.2) != base {
		t.Error("frameKey is not stable")
	}
	if frameKey(testColumns, X, []int{1, 1}, 100, 42, 0.2) == base {
		t.Error("frameKey ignores labels")
	}
	if frameKey(testColumns, X, []int{0, 1}, 100, 7, 0.2) == base {
		t.Error("frameKey ignores the seed")
	}
}
