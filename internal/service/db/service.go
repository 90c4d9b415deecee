package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"volunteer/matching/internal/config"
	"volunteer/matching/internal/logging"
	model "volunteer/matching/internal/model/db"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB implements the activity, enrollment and recommendation stores the
// matching services consume.
type DB struct {
	db *sqlx.DB
}

func New(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Driver == "sqlite" {
		sqlx.BindDriver("sqlite", sqlx.QUESTION)
	}

	conn, err := sqlx.Connect(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	conn.SetMaxOpenConns(cfg.MaxConnections)
	conn.SetMaxIdleConns(max(cfg.MaxConnections/2, 1))
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &DB{db: conn}, nil
}

// Conn exposes the underlying handle for schema setup in tests and tools.
func (db *DB) Conn() *sqlx.DB {
	return db.db
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) Get(ctx context.Context, id int64) (model.Activity, error) {
	var a model.Activity
	query := db.db.Rebind(`
	SELECT id, name, description, category, capacity, is_inclusive
	FROM activities
	WHERE id = ?`)
	if err := db.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Activity{}, fmt.Errorf("activity %d: %w", id, model.ErrNotFound)
		}
		return model.Activity{}, fmt.Errorf("get activity %d: %w", id, err)
	}

	disabilities, err := db.disabilities(ctx, []int64{id})
	if err != nil {
		return model.Activity{}, err
	}
	a.SupportedDisabilities = disabilities[id]
	return a, nil
}

func (db *DB) All(ctx context.Context) ([]model.Activity, error) {
	var activities []model.Activity
	query := `
	SELECT id, name, description, category, capacity, is_inclusive
	FROM activities
	ORDER BY id`
	if err := db.db.SelectContext(ctx, &activities, query); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if len(activities) == 0 {
		return activities, nil
	}

	ids := make([]int64, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	disabilities, err := db.disabilities(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range activities {
		activities[i].SupportedDisabilities = disabilities[activities[i].ID]
	}
	return activities, nil
}

func (db *DB) disabilities(ctx context.Context, ids []int64) (map[int64][]string, error) {
	query, args, err := sqlx.In(`
	SELECT activity_id, disability
	FROM activity_disabilities
	WHERE activity_id IN (?)
	ORDER BY activity_id, disability`, ids)
	if err != nil {
		return nil, fmt.Errorf("build disabilities query: %w", err)
	}

	rows, err := db.db.QueryxContext(ctx, db.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query disabilities: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string, len(ids))
	for rows.Next() {
		var (
			activityID int64
			disability string
		)
		if err := rows.Scan(&activityID, &disability); err != nil {
			return nil, fmt.Errorf("scan disability: %w", err)
		}
		out[activityID] = append(out[activityID], disability)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disabilities: %w", err)
	}
	return out, nil
}

func (db *DB) CountForActivity(ctx context.Context, activityID int64) (int, error) {
	var n int
	query := db.db.Rebind(`SELECT COUNT(*) FROM enrollments WHERE activity_id = ?`)
	if err := db.db.GetContext(ctx, &n, query, activityID); err != nil {
		return 0, fmt.Errorf("count enrollments for activity %d: %w", activityID, err)
	}
	return n, nil
}

// AllPairs returns every enrollment as a (user, activity) pair.
func (db *DB) AllPairs(ctx context.Context) ([]model.Enrollment, error) {
	var pairs []model.Enrollment
	query := `SELECT user_id, activity_id FROM enrollments ORDER BY user_id, activity_id`
	if err := db.db.SelectContext(ctx, &pairs, query); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return pairs, nil
}

func (db *DB) Exists(ctx context.Context, userID, activityID int64, kind model.RecommendationKind) (bool, error) {
	var n int
	query := db.db.Rebind(`
	SELECT COUNT(*) FROM recommendations
	WHERE user_id = ? AND activity_id = ? AND kind = ?`)
	if err := db.db.GetContext(ctx, &n, query, userID, activityID, string(kind)); err != nil {
		return false, fmt.Errorf("check recommendation (%d, %d, %s): %w", userID, activityID, kind, err)
	}
	return n > 0, nil
}

// InsertBatch writes all rows in one transaction. Rows that collide with
// the (user_id, activity_id, kind) unique key are ignored.
func (db *DB) InsertBatch(ctx context.Context, recs []model.Recommendation) (err error) {
	if len(recs) == 0 {
		return nil
	}

	tx, err := db.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recommendation batch: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Error().Err(rbErr).Msg("rollback recommendation batch")
		}
	}()

	query := tx.Rebind(`
	INSERT INTO recommendations (user_id, activity_id, kind, score, description, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, activity_id, kind) DO NOTHING`)
	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare recommendation insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err = stmt.ExecContext(ctx, r.UserID, r.ActivityID, string(r.Kind), r.Score, r.Description, r.CreatedAt); err != nil {
			return fmt.Errorf("insert recommendation (%d, %d): %w", r.UserID, r.ActivityID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit recommendation batch: %w", err)
	}
	return nil
}

// TopByCount ranks activities by how many stored recommendations of the
// given kind point at them. Ties keep first-insertion order.
func (db *DB) TopByCount(ctx context.Context, kind model.RecommendationKind, limit int) ([]model.ActivityCount, error) {
	var out []model.ActivityCount
	query := db.db.Rebind(`
	SELECT activity_id, COUNT(*) AS cnt
	FROM recommendations
	WHERE kind = ?
	GROUP BY activity_id
	ORDER BY cnt DESC, MIN(id) ASC
	LIMIT ?`)
	if err := db.db.SelectContext(ctx, &out, query, string(kind), limit); err != nil {
		return nil, fmt.Errorf("top recommended activities: %w", err)
	}
	return out, nil
}

func (db *DB) ForUser(ctx context.Context, userID int64, kind model.RecommendationKind, limit int) ([]model.ActivityScore, error) {
	var out []model.ActivityScore
	query := db.db.Rebind(`
	SELECT activity_id, score
	FROM recommendations
	WHERE user_id = ? AND kind = ?
	ORDER BY score DESC, id ASC
	LIMIT ?`)
	if err := db.db.SelectContext(ctx, &out, query, userID, string(kind), limit); err != nil {
		return nil, fmt.Errorf("recommendations for user %d: %w", userID, err)
	}
	return out, nil
}
