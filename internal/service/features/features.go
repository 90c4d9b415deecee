// Package features builds the numeric description of an activity that the
// participation model is trained on.
package features

import (
	"context"
	"fmt"

	"volunteer/matching/internal/config"
	model "volunteer/matching/internal/model/db"
)

// Column names, in training order.
const (
	ColCurrentInscriptions  = "current_inscriptions"
	ColCapacity             = "capacity"
	ColHistoricalSimilarity = "historical_similarity"
	ColVolunteerSkillLevel  = "volunteer_skill_level"
)

var Columns = []string{
	ColCurrentInscriptions,
	ColCapacity,
	ColHistoricalSimilarity,
	ColVolunteerSkillLevel,
}

type ActivityStore interface {
	Get(ctx context.Context, id int64) (model.Activity, error)
}

type EnrollmentCounter interface {
	CountForActivity(ctx context.Context, activityID int64) (int, error)
}

type Features struct {
	ActivityID          int64
	CurrentInscriptions int
	// Capacity is nil when the activity has no limit.
	Capacity             *int
	HistoricalSimilarity float64
	VolunteerSkillLevel  int
}

// Vector returns the features in the given column order. A nil capacity is
// encoded as 0.
func (f Features) Vector(columns []string) ([]float64, error) {
	out := make([]float64, len(columns))
	for i, col := range columns {
		switch col {
		case ColCurrentInscriptions:
			out[i] = float64(f.CurrentInscriptions)
		case ColCapacity:
			if f.Capacity != nil {
				out[i] = float64(*f.Capacity)
			}
		case ColHistoricalSimilarity:
			out[i] = f.HistoricalSimilarity
		case ColVolunteerSkillLevel:
			out[i] = float64(f.VolunteerSkillLevel)
		default:
			return nil, fmt.Errorf("unknown feature column %q", col)
		}
	}
	return out, nil
}

// Occupancy returns inscriptions over capacity, false when there is no
// positive capacity.
func (f Features) Occupancy() (float64, bool) {
	if f.Capacity == nil || *f.Capacity <= 0 {
		return 0, false
	}
	return float64(f.CurrentInscriptions) / float64(*f.Capacity), true
}

type Extractor struct {
	activities  ActivityStore
	enrollments EnrollmentCounter
	config      config.FeaturesConfig
}

func New(activities ActivityStore, enrollments EnrollmentCounter, cfg config.FeaturesConfig) *Extractor {
	return &Extractor{
		activities:  activities,
		enrollments: enrollments,
		config:      cfg,
	}
}

// Extract reads one activity. A missing activity yields an error wrapping
// db.ErrNotFound.
func (e *Extractor) Extract(ctx context.Context, activityID int64) (Features, error) {
	activity, err := e.activities.Get(ctx, activityID)
	if err != nil {
		return Features{}, err
	}
	return e.FromActivity(ctx, activity)
}

// FromActivity extracts features for an already loaded activity.
func (e *Extractor) FromActivity(ctx context.Context, activity model.Activity) (Features, error) {
	count, err := e.enrollments.CountForActivity(ctx, activity.ID)
	if err != nil {
		return Features{}, fmt.Errorf("count inscriptions for activity %d: %w", activity.ID, err)
	}

	f := Features{
		ActivityID:           activity.ID,
		CurrentInscriptions:  count,
		HistoricalSimilarity: e.config.HistoricalSimilarity,
		VolunteerSkillLevel:  e.config.VolunteerSkillLevel,
	}
	if c, ok := activity.CapacityValue(); ok {
		f.Capacity = &c
	}
	return f, nil
}
