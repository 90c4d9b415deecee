package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	model "volunteer/matching/internal/model/db"
	"volunteer/matching/internal/service/compatibility"
	"volunteer/matching/internal/service/prediction"

	"github.com/goccy/go-json"
)

type activityView struct {
	ID                    int64    `json:"id"`
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	Category              string   `json:"category"`
	Capacity              *int     `json:"capacity"`
	IsInclusive           bool     `json:"is_inclusive"`
	SupportedDisabilities []string `json:"supported_disabilities"`
}

func newActivityView(a model.Activity) activityView {
	v := activityView{
		ID:                    a.ID,
		Name:                  a.Name,
		Description:           a.Description,
		Category:              a.Category,
		IsInclusive:           a.IsInclusive,
		SupportedDisabilities: a.SupportedDisabilities,
	}
	if c, ok := a.CapacityValue(); ok {
		v.Capacity = &c
	}
	return v
}

type predictionView struct {
	ActivityID int64  `json:"activity_id"`
	Band       string `json:"band"`
	prediction.Prediction
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *App) write(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) generate(ctx context.Context, args []string) error {
	fs := newFlagSet("generate")
	userID := fs.Int64("user", 0, "only generate for this user (0 = all users)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var target *int64
	if *userID != 0 {
		target = userID
	}
	report, err := a.engine.Generate(ctx, target)
	if err != nil {
		return err
	}
	return a.write(report)
}

func (a *App) predict(ctx context.Context, args []string) error {
	fs := newFlagSet("predict")
	activityID := fs.Int64("activity", 0, "activity to predict participation for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *activityID == 0 {
		return errors.New("predict: -activity is required")
	}

	p := a.predictor.Predict(ctx, *activityID)
	return a.write(predictionView{ActivityID: *activityID, Band: p.Band(), Prediction: p})
}

func (a *App) top(ctx context.Context, args []string) error {
	fs := newFlagSet("top")
	limit := fs.Int("limit", 5, "number of activities")
	if err := fs.Parse(args); err != nil {
		return err
	}

	activities, err := a.engine.TopRecommendedActivities(ctx, *limit)
	if err != nil {
		return err
	}
	views := make([]activityView, len(activities))
	for i, act := range activities {
		views[i] = newActivityView(act)
	}
	return a.write(views)
}

func (a *App) user(ctx context.Context, args []string) error {
	fs := newFlagSet("user")
	userID := fs.Int64("user", 0, "user to list recommendations for")
	limit := fs.Int("limit", 5, "number of recommendations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == 0 {
		return errors.New("user: -user is required")
	}

	ids, err := a.engine.RecommendationsForUser(ctx, *userID, *limit)
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []int64{}
	}
	return a.write(ids)
}

func (a *App) score(ctx context.Context, args []string) error {
	fs := newFlagSet("score")
	profilePath := fs.String("profile", "", "JSON file with the user profile")
	activityList := fs.String("activities", "", "comma separated activity ids (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *profilePath == "" {
		return errors.New("score: -profile is required")
	}

	data, err := os.ReadFile(*profilePath)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	var profile compatibility.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("decode profile %s: %w", *profilePath, err)
	}

	activities, err := a.candidates(ctx, *activityList)
	if err != nil {
		return err
	}

	scores := a.scorer.Score(ctx, &profile, activities)
	out := make(map[string]float64, len(scores))
	for id, s := range scores {
		out[strconv.FormatInt(id, 10)] = s
	}
	return a.write(out)
}

func (a *App) candidates(ctx context.Context, list string) ([]compatibility.ActivityCandidate, error) {
	if strings.TrimSpace(list) == "" {
		all, err := a.store.All(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]compatibility.ActivityCandidate, len(all))
		for i, act := range all {
			out[i] = compatibility.CandidateFromActivity(act)
		}
		return out, nil
	}

	var out []compatibility.ActivityCandidate
	for _, field := range strings.Split(list, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid activity id %q: %w", field, err)
		}
		act, err := a.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, compatibility.CandidateFromActivity(act))
	}
	return out, nil
}
