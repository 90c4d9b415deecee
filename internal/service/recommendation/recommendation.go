// Package recommendation generates personalized activity recommendations
// with user-based collaborative filtering over enrollment history.
package recommendation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volunteer/matching/internal/config"
	"volunteer/matching/internal/logging"
	"volunteer/matching/internal/metrics"
	model "volunteer/matching/internal/model/db"
)

type EnrollmentStore interface {
	AllPairs(ctx context.Context) ([]model.Enrollment, error)
}

type RecommendationStore interface {
	Exists(ctx context.Context, userID, activityID int64, kind model.RecommendationKind) (bool, error)
	InsertBatch(ctx context.Context, recs []model.Recommendation) error
	TopByCount(ctx context.Context, kind model.RecommendationKind, limit int) ([]model.ActivityCount, error)
	ForUser(ctx context.Context, userID int64, kind model.RecommendationKind, limit int) ([]model.ActivityScore, error)
}

type ActivityStore interface {
	Get(ctx context.Context, id int64) (model.Activity, error)
}

// Report summarizes one Generate run.
type Report struct {
	Users    int `json:"users"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type Engine struct {
	config          config.RecommendationConfig
	enrollments     EnrollmentStore
	recommendations RecommendationStore
	activities      ActivityStore
	now             func() time.Time
}

func New(cfg config.RecommendationConfig, enrollments EnrollmentStore, recommendations RecommendationStore, activities ActivityStore) *Engine {
	return &Engine{
		config:          cfg,
		enrollments:     enrollments,
		recommendations: recommendations,
		activities:      activities,
		now:             time.Now,
	}
}

// Generate stores personalized recommendations for target, or for every
// enrolled user when target is nil. Pairs already recommended are skipped,
// so repeated runs add nothing new. All rows are committed in one batch; on
// failure nothing is persisted and the error is returned.
func (e *Engine) Generate(ctx context.Context, target *int64) (report Report, err error) {
	ctx = logging.EnsureCorrelationID(ctx)
	log := logging.Ctx(ctx)
	start := time.Now()
	defer func() {
		metrics.RecordGenerate(time.Since(start), report.Inserted, report.Skipped, err)
	}()

	pairs, err := e.enrollments.AllPairs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load enrollments")
		return Report{}, fmt.Errorf("load enrollments: %w", err)
	}
	if len(pairs) == 0 {
		log.Info().Msg("no enrollments, nothing to recommend")
		return Report{}, nil
	}

	m := newInteractionMatrix(pairs)
	sims := m.similarities()

	rows := make([]int, 0, len(m.users))
	if target != nil {
		row, ok := m.userIndex[*target]
		if !ok {
			log.Info().Int64("user_id", *target).Msg("user has no enrollments, nothing to recommend")
			return Report{}, nil
		}
		rows = append(rows, row)
	} else {
		for i := range m.users {
			rows = append(rows, i)
		}
	}

	type pair struct{ user, activity int64 }
	pending := map[pair]struct{}{}
	var batch []model.Recommendation
	now := e.now()

	for _, u := range rows {
		similar := neighbors(sims, u, e.config.Neighbors)
		if len(similar) == 0 {
			continue
		}
		report.Users++
		userID := m.users[u]

		for _, n := range similar {
			for _, activityID := range m.candidates(u, n.Row) {
				key := pair{userID, activityID}
				if _, ok := pending[key]; ok {
					report.Skipped++
					continue
				}
				exists, err := e.recommendations.Exists(ctx, userID, activityID, model.KindPersonalized)
				if err != nil {
					log.Error().Err(err).Int64("user_id", userID).Int64("activity_id", activityID).Msg("check existing recommendation")
					return Report{}, fmt.Errorf("check recommendation for user %d: %w", userID, err)
				}
				if exists {
					report.Skipped++
					continue
				}

				pending[key] = struct{}{}
				batch = append(batch, model.Recommendation{
					UserID:      userID,
					ActivityID:  activityID,
					Kind:        model.KindPersonalized,
					Score:       n.Similarity,
					Description: e.config.Description,
					CreatedAt:   now,
				})
			}
		}
	}

	if err := e.recommendations.InsertBatch(ctx, batch); err != nil {
		log.Error().Err(err).Int("rows", len(batch)).Msg("recommendation batch rolled back")
		return Report{}, fmt.Errorf("store recommendations: %w", err)
	}

	report.Inserted = len(batch)
	log.Info().
		Int("users", report.Users).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Dur("took", time.Since(start)).
		Msg("recommendations generated")
	return report, nil
}

// TopRecommendedActivities returns the activities most often recommended,
// highest count first.
func (e *Engine) TopRecommendedActivities(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		return nil, nil
	}

	counts, err := e.recommendations.TopByCount(ctx, model.KindPersonalized, limit)
	if err != nil {
		return nil, err
	}

	activities := make([]model.Activity, 0, len(counts))
	for _, c := range counts {
		a, err := e.activities.Get(ctx, c.ActivityID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				logging.Ctx(ctx).Warn().Int64("activity_id", c.ActivityID).Msg("recommended activity no longer exists")
				continue
			}
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// RecommendationsForUser returns the user's recommended activity ids, best
// score first.
func (e *Engine) RecommendationsForUser(ctx context.Context, userID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := e.recommendations.ForUser(ctx, userID, model.KindPersonalized, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ActivityID
	}
	return ids, nil
}
