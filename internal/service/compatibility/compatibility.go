// Package compatibility scores how well a volunteer profile fits a set of
// activities on a 0-100 scale.
package compatibility

import (
	"context"
	"strings"

	"volunteer/matching/internal/config"
	"volunteer/matching/internal/logging"
	"volunteer/matching/internal/metrics"
	model "volunteer/matching/internal/model/db"
)

// UserProfile is the volunteer side of a comparison. Interests and skills
// form the text corpus.
type UserProfile struct {
	ID           int64    `json:"id"`
	Interests    []string `json:"interests"`
	Skills       []string `json:"skills"`
	Disabilities []string `json:"disabilities"`
}

// ActivityCandidate is the activity side of a comparison. Description and
// category form the text corpus.
type ActivityCandidate struct {
	ID                    int64    `json:"id"`
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	Category              string   `json:"category"`
	IsInclusive           bool     `json:"is_inclusive"`
	SupportedDisabilities []string `json:"supported_disabilities"`
}

// CandidateFromActivity converts a stored activity.
func CandidateFromActivity(a model.Activity) ActivityCandidate {
	return ActivityCandidate{
		ID:                    a.ID,
		Name:                  a.Name,
		Description:           a.Description,
		Category:              a.Category,
		IsInclusive:           a.IsInclusive,
		SupportedDisabilities: a.SupportedDisabilities,
	}
}

type result struct {
	score float64
	err   error
}

// CompatibilityService scores profiles against activities with the
// configured inclusivity bonuses.
type CompatibilityService struct {
	config config.CompatibilityConfig
}

func New(cfg config.CompatibilityConfig) *CompatibilityService {
	return &CompatibilityService{config: cfg}
}

// Score returns one entry per activity. It returns an empty map when the
// user is nil, there are no activities, or the user has no interests and
// skills to compare.
func (s *CompatibilityService) Score(ctx context.Context, user *UserProfile, activities []ActivityCandidate) map[int64]float64 {
	scores := make(map[int64]float64)
	if user == nil || len(activities) == 0 {
		logging.Ctx(ctx).Warn().Msg("compatibility requested without user or activities")
		return scores
	}

	userText := strings.TrimSpace(strings.Join(user.Interests, " ") + " " + strings.Join(user.Skills, " "))
	if userText == "" {
		logging.Ctx(ctx).Warn().Int64("user_id", user.ID).Msg("user profile has no interests or skills")
		return scores
	}

	for _, activity := range activities {
		r := s.scoreOne(user, userText, activity)
		if r.err != nil {
			metrics.CompatibilityFailures.Inc()
			logging.Ctx(ctx).Error().Err(r.err).
				Int64("user_id", user.ID).
				Int64("activity_id", activity.ID).
				Msg("compatibility scoring failed, defaulting to 0")
			scores[activity.ID] = 0
			continue
		}
		scores[activity.ID] = r.score
	}

	logging.Ctx(ctx).Debug().Int64("user_id", user.ID).Int("activities", len(scores)).Msg("compatibility scores computed")
	return scores
}

func (s *CompatibilityService) scoreOne(user *UserProfile, userText string, activity ActivityCandidate) result {
	activityText := strings.TrimSpace(activity.Description + " " + activity.Category)
	if activityText == "" {
		return result{score: 0}
	}

	userVec, activityVec, err := countVectors(userText, activityText)
	if err != nil {
		return result{err: err}
	}

	score := roundTenth(cosine(userVec, activityVec) * 100)
	return result{score: s.adjustForInclusivity(score, user, activity)}
}

// adjustForInclusivity adds the inclusive bonus when a user with a
// disability meets an inclusive activity, and the match bonus on top when
// one of the user's disabilities is explicitly supported. Non-inclusive
// activities are left unchanged.
func (s *CompatibilityService) adjustForInclusivity(score float64, user *UserProfile, activity ActivityCandidate) float64 {
	if !activity.IsInclusive || len(user.Disabilities) == 0 {
		return score
	}

	score = min(s.config.MaxScore, score+s.config.InclusiveBonus)
	if supportsAny(activity.SupportedDisabilities, user.Disabilities) {
		score = min(s.config.MaxScore, score+s.config.DisabilityMatchBonus)
	}
	return score
}

func supportsAny(supported, disabilities []string) bool {
	for _, d := range disabilities {
		for _, s := range supported {
			if d == s {
				return true
			}
		}
	}
	return false
}
