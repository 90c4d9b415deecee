package db

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned by the store when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Activity struct {
	ID                    int64         `db:"id"`
	Name                  string        `db:"name"`
	Description           string        `db:"description"`
	Category              string        `db:"category"`
	Capacity              sql.NullInt64 `db:"capacity"` // NULL when the organizer set no limit
	IsInclusive           bool          `db:"is_inclusive"`
	SupportedDisabilities []string      `db:"-"`
}

// CapacityValue returns the capacity and whether one is set.
func (a *Activity) CapacityValue() (int, bool) {
	if !a.Capacity.Valid {
		return 0, false
	}
	return int(a.Capacity.Int64), true
}

type Enrollment struct {
	UserID     int64 `db:"user_id"`
	ActivityID int64 `db:"activity_id"`
}

type RecommendationKind string

const (
	KindPersonalized RecommendationKind = "P"
	KindGroup        RecommendationKind = "G"  // not produced by the engine
	KindBestPractice RecommendationKind = "BP" // not produced by the engine
)

func (k RecommendationKind) Valid() bool {
	switch k {
	case KindPersonalized, KindGroup, KindBestPractice:
		return true
	}
	return false
}

type Recommendation struct {
	ID          int64              `db:"id"`
	UserID      int64              `db:"user_id"`
	ActivityID  int64              `db:"activity_id"`
	Kind        RecommendationKind `db:"kind"`
	Score       float64            `db:"score"`
	Description string             `db:"description"`
	CreatedAt   time.Time          `db:"created_at"`
}

// ActivityCount is one row of the most-recommended aggregation.
type ActivityCount struct {
	ActivityID int64 `db:"activity_id"`
	Count      int   `db:"cnt"`
}

// ActivityScore is one stored recommendation of a single user.
type ActivityScore struct {
	ActivityID int64   `db:"activity_id"`
	Score      float64 `db:"score"`
}
