package recommendation

import (
	"math"
	"slices"
	"sort"

	model "volunteer/matching/internal/model/db"
)

// interactionMatrix is a users × activities count table with both axes in
// ascending id order.
type interactionMatrix struct {
	users      []int64
	activities []int64
	userIndex  map[int64]int
	rows       [][]float64
}

func newInteractionMatrix(pairs []model.Enrollment) *interactionMatrix {
	m := &interactionMatrix{userIndex: map[int64]int{}}

	activityIndex := map[int64]int{}
	for _, p := range pairs {
		if _, ok := m.userIndex[p.UserID]; !ok {
			m.userIndex[p.UserID] = 0
			m.users = append(m.users, p.UserID)
		}
		if _, ok := activityIndex[p.ActivityID]; !ok {
			activityIndex[p.ActivityID] = 0
			m.activities = append(m.activities, p.ActivityID)
		}
	}
	slices.Sort(m.users)
	slices.Sort(m.activities)
	for i, u := range m.users {
		m.userIndex[u] = i
	}
	for j, a := range m.activities {
		activityIndex[a] = j
	}

	m.rows = make([][]float64, len(m.users))
	for i := range m.rows {
		m.rows[i] = make([]float64, len(m.activities))
	}
	for _, p := range pairs {
		m.rows[m.userIndex[p.UserID]][activityIndex[p.ActivityID]]++
	}
	return m
}

// similarities returns the dense user × user cosine matrix.
func (m *interactionMatrix) similarities() [][]float64 {
	norms := make([]float64, len(m.rows))
	for i, row := range m.rows {
		var sum float64
		for _, v := range row {
			sum += v * v
		}
		norms[i] = math.Sqrt(sum)
	}

	sims := make([][]float64, len(m.rows))
	for i := range sims {
		sims[i] = make([]float64, len(m.rows))
	}
	for i := range m.rows {
		for j := i; j < len(m.rows); j++ {
			if norms[i] == 0 || norms[j] == 0 {
				continue
			}
			var dot float64
			for k, v := range m.rows[i] {
				dot += v * m.rows[j][k]
			}
			s := dot / (norms[i] * norms[j])
			sims[i][j], sims[j][i] = s, s
		}
	}
	return sims
}

// neighbor is a similar user, identified by row.
type neighbor struct {
	Row        int
	Similarity float64
}

// neighbors returns up to k other users with positive similarity, most
// similar first. Ties keep row order.
func neighbors(sims [][]float64, row, k int) []neighbor {
	out := make([]neighbor, 0, len(sims[row]))
	for j, s := range sims[row] {
		if j == row || s <= 0 {
			continue
		}
		out = append(out, neighbor{Row: j, Similarity: s})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// candidates lists activities the neighbor enrolled in and the user did
// not, in ascending activity id order.
func (m *interactionMatrix) candidates(user, other int) []int64 {
	var out []int64
	for j, a := range m.activities {
		if m.rows[other][j] > 0 && m.rows[user][j] == 0 {
			out = append(out, a)
		}
	}
	return out
}
