package prediction

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// stratifiedSplit partitions sample indices into train and test sets,
// preserving the label proportions in both. Every class needs at least two
// members so it can appear on both sides.
func stratifiedSplit(y []int, testFraction float64, seed int64) (train, test []int, err error) {
	n := len(y)
	nTest := int(math.Ceil(testFraction * float64(n)))
	nTrain := n - nTest

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	slices.Sort(classes)

	for _, c := range classes {
		if len(byClass[c]) < 2 {
			return nil, nil, fmt.Errorf("the least populated class has only %d member, which is too few; each class needs at least 2", len(byClass[c]))
		}
	}
	if nTest < len(classes) {
		return nil, nil, fmt.Errorf("test size %d is smaller than the number of classes %d", nTest, len(classes))
	}
	if nTrain < len(classes) {
		return nil, nil, fmt.Errorf("train size %d is smaller than the number of classes %d", nTrain, len(classes))
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for _, c := range classes {
		members := slices.Clone(byClass[c])
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})

		k := int(math.Round(float64(nTest) * float64(len(members)) / float64(n)))
		k = min(max(k, 1), len(members)-1)
		test = append(test, members[:k]...)
		train = append(train, members[k:]...)
	}

	slices.Sort(train)
	slices.Sort(test)
	return train, test, nil
}
