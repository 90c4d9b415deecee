package refresher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"volunteer/matching/internal/config"
	"volunteer/matching/internal/logging"
	"volunteer/matching/internal/service/recommendation"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	targets []*int64
	ids     []string
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, target *int64) (recommendation.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.targets = append(f.targets, target)
	f.ids = append(f.ids, logging.CorrelationID(ctx))
	return recommendation.Report{Inserted: 1}, f.err
}

func (f *fakeGenerator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestServe(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.RefresherConfig
		run       time.Duration
		err       error
		wantAtMin int
		wantAtMax int
	}{
		{name: "startup only", cfg: config.RefresherConfig{RunOnStartup: true, Interval: time.Hour}, run: 100 * time.Millisecond, wantAtMin: 1, wantAtMax: 1},
		{name: "no startup run", cfg: config.RefresherConfig{Interval: time.Hour}, run: 100 * time.Millisecond, wantAtMin: 0, wantAtMax: 0},
		{name: "ticks", cfg: config.RefresherConfig{Interval: 20 * time.Millisecond}, run: 150 * time.Millisecond, wantAtMin: 2, wantAtMax: 10},
		{name: "failures keep running", cfg: config.RefresherConfig{Interval: 20 * time.Millisecond}, run: 150 * time.Millisecond, err: errors.New("db down"), wantAtMin: 2, wantAtMax: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{err: tt.err}
			s := New(gen, tt.cfg)

			ctx, cancel := context.WithTimeout(context.Background(), tt.run)
			defer cancel()

			if err := s.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() error = %v, want deadline exceeded", err)
			}
			if n := gen.count(); n < tt.wantAtMin || n > tt.wantAtMax {
				t.Errorf("Generate called %d times, want %d..%d", n, tt.wantAtMin, tt.wantAtMax)
			}
		})
	}
}

func TestRefreshRunsForAllUsers(t *testing.T) {
	gen := &fakeGenerator{}
	s := New(gen, config.RefresherConfig{})

	s.refresh(context.Background())
	s.refresh(context.Background())

	if gen.count() != 2 {
		t.Fatalf("Generate called %d times, want 2", gen.count())
	}
	for i, target := range gen.targets {
		if target != nil {
			t.Errorf("call %d targeted user %d, want all users", i, *target)
		}
	}
	if gen.ids[0] == "" || gen.ids[0] == gen.ids[1] {
		t.Errorf("correlation ids %q, want distinct non-empty ids", gen.ids)
	}
}

func TestString(t *testing.T) {
	if got := New(&fakeGenerator{}, config.RefresherConfig{}).String(); got != "recommendation-refresher" {
		t.Errorf("String() = %q", got)
	}
}
