package compatibility

import (
	"context"
	"math"
	"testing"

	"volunteer/matching/internal/config"
	"volunteer/matching/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newService() *CompatibilityService {
	return New(config.CompatibilityConfig{InclusiveBonus: 5, DisabilityMatchBonus: 10, MaxScore: 100})
}

func TestScoreEmptyInputs(t *testing.T) {
	s := newService()
	ctx := context.Background()
	user := &UserProfile{ID: 1, Interests: []string{"a"}, Skills: []string{"b"}}
	activities := []ActivityCandidate{{ID: 101, Description: "d", Category: "c"}}

	tests := []struct {
		name       string
		user       *UserProfile
		activities []ActivityCandidate
	}{
		{"empty profile", &UserProfile{}, activities},
		{"nil profile", nil, activities},
		{"empty activities", user, []ActivityCandidate{}},
		{"nil activities", user, nil},
		{"both nil", nil, nil},
		{"profile without text", &UserProfile{ID: 3, Disabilities: []string{"hearing"}}, activities},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(ctx, tt.user, tt.activities); len(got) != 0 {
				t.Errorf("Score() = %v, want empty", got)
			}
		})
	}
}

func TestScoreExampleScenario(t *testing.T) {
	s := newService()
	user := &UserProfile{ID: 1, Interests: []string{"python", "data"}}
	activities := []ActivityCandidate{
		{ID: 1, Description: "Python workshop for data analysis", Category: "tech"},
		{ID: 2, Description: "", Category: ""},
	}

	scores := s.Score(context.Background(), user, activities)

	if len(scores) != 2 {
		t.Fatalf("Score() returned %d entries, want 2", len(scores))
	}
	// user {python, data} vs six activity terms sharing two: 2/(sqrt(2)*sqrt(6))
	want := math.RoundToEven(2/(math.Sqrt(2)*math.Sqrt(6))*1000) / 10
	if scores[1] != want {
		t.Errorf("score[1] = %v, want %v", scores[1], want)
	}
	if scores[2] != 0 {
		t.Errorf("score[2] = %v, want exactly 0", scores[2])
	}
}

func TestScoreRangeAndCoverage(t *testing.T) {
	s := newService()
	user := &UserProfile{
		ID:        1,
		Interests: []string{"medio ambiente", "tecnología"},
		Skills:    []string{"python", "análisis de datos"},
	}
	activities := []ActivityCandidate{
		{ID: 101, Description: "Aprende Python para analizar datos ambientales.", Category: "tecnología"},
		{ID: 102, Description: "Participa en la limpieza de la playa local.", Category: "medio ambiente"},
		{ID: 103, Description: "Sesión de yoga relajante."},
		{ID: 104, Category: "estrategia"},
	}

	scores := s.Score(context.Background(), user, activities)

	if len(scores) != len(activities) {
		t.Fatalf("Score() returned %d entries, want %d", len(scores), len(activities))
	}
	for _, a := range activities {
		score, ok := scores[a.ID]
		if !ok {
			t.Errorf("missing score for activity %d", a.ID)
			continue
		}
		if score < 0 || score > 100 {
			t.Errorf("score[%d] = %v out of range", a.ID, score)
		}
	}
	if scores[101] < scores[102] {
		t.Errorf("python workshop (%v) scored below beach cleanup (%v)", scores[101], scores[102])
	}
}

func TestScoreInclusivity(t *testing.T) {
	s := newService()
	user := &UserProfile{
		ID:           2,
		Interests:    []string{"lectura", "educación"},
		Skills:       []string{"enseñanza"},
		Disabilities: []string{"Visual"},
	}
	base := ActivityCandidate{Description: "Club de lectura para todos.", Category: "cultura"}

	plain := base
	plain.ID = 201

	supported := base
	supported.ID = 202
	supported.IsInclusive = true
	supported.SupportedDisabilities = []string{"Visual", "Auditiva"}

	other := base
	other.ID = 203
	other.IsInclusive = true
	other.SupportedDisabilities = []string{"Motriz"}

	scores := s.Score(context.Background(), user, []ActivityCandidate{plain, supported, other})

	if scores[201] <= 0 {
		t.Fatalf("base similarity = %v, want > 0", scores[201])
	}
	if got, want := scores[202], scores[201]+15; math.Abs(got-want) > 1e-9 {
		t.Errorf("supported inclusive score = %v, want %v", got, want)
	}
	if got, want := scores[203], scores[201]+5; math.Abs(got-want) > 1e-9 {
		t.Errorf("inclusive without match = %v, want %v", got, want)
	}
}

func TestScoreNoAdjustmentWithoutDisability(t *testing.T) {
	s := newService()
	user := &UserProfile{ID: 4, Interests: []string{"garden"}}
	a := ActivityCandidate{ID: 1, Description: "garden work", IsInclusive: true, SupportedDisabilities: []string{"visual"}}
	b := a
	b.ID = 2
	b.IsInclusive = false

	scores := s.Score(context.Background(), user, []ActivityCandidate{a, b})
	if scores[1] != scores[2] {
		t.Errorf("inclusive %v != non-inclusive %v for user without disabilities", scores[1], scores[2])
	}
}

func TestScoreCapsAtMax(t *testing.T) {
	s := newService()
	user := &UserProfile{ID: 1, Interests: []string{"python"}, Disabilities: []string{"visual"}}
	a := ActivityCandidate{ID: 1, Description: "python", IsInclusive: true, SupportedDisabilities: []string{"visual"}}

	if got := s.Score(context.Background(), user, []ActivityCandidate{a})[1]; got != 100 {
		t.Errorf("score = %v, want 100", got)
	}
}

func TestScoreIsolatesItemFailures(t *testing.T) {
	s := newService()
	user := &UserProfile{ID: 1, Interests: []string{"a", "python"}}
	activities := []ActivityCandidate{
		{ID: 1, Description: "x y", Category: "z"},
		{ID: 2, Description: "python"},
	}
	before := testutil.ToFloat64(metrics.CompatibilityFailures)

	scores := s.Score(context.Background(), &UserProfile{ID: 1, Interests: []string{"a"}}, activities[:1])
	if scores[1] != 0 {
		t.Errorf("empty-vocabulary pair scored %v, want 0", scores[1])
	}
	if testutil.ToFloat64(metrics.CompatibilityFailures)-before != 1 {
		t.Error("failure was not counted")
	}

	scores = s.Score(context.Background(), user, activities)
	if len(scores) != 2 || scores[2] != 100 {
		t.Errorf("Score() = %v, want activity 2 at 100", scores)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Python workshop, for DATA!", []string{"python", "workshop", "for", "data"}},
		{"a b cd", []string{"cd"}},
		{"análisis de datos", []string{"análisis", "de", "datos"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := tokenize(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float64{1, 0}, []float64{0, 0}); got != 0 {
		t.Errorf("cosine with zero vector = %v, want 0", got)
	}
	if got := cosine([]float64{1, 2}, []float64{2, 4}); math.Abs(got-1) > 1e-12 {
		t.Errorf("cosine of parallel vectors = %v, want 1", got)
	}
}

func TestScoreRoundsHalvesToEven(t *testing.T) {
	s := newService()
	// sixteen distinct terms each, one shared: cosine 1/16, 6.25 before rounding
	user := &UserProfile{ID: 1, Interests: []string{
		"shared", "u01", "u02", "u03", "u04", "u05", "u06", "u07",
		"u08", "u09", "u10", "u11", "u12", "u13", "u14", "u15",
	}}
	activity := ActivityCandidate{ID: 1, Description: "shared a01 a02 a03 a04 a05 a06 a07 a08 a09 a10 a11 a12 a13 a14 a15"}

	if got := s.Score(context.Background(), user, []ActivityCandidate{activity})[1]; got != 6.2 {
		t.Errorf("score = %v, want 6.2", got)
	}
}

func TestRoundTenth(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{6.25, 6.2},
		{31.25, 31.2},
		{6.75, 6.8},
		{57.73, 57.7},
		{100, 100},
		{0, 0},
	}
	for _, tt := range tests {
		if got := roundTenth(tt.in); got != tt.want {
			t.Errorf("roundTenth(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
