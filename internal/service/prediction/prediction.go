// Package prediction estimates the probability that an activity reaches
// high participation, retraining a random forest over every activity's
// current occupancy on each call.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volunteer/matching/internal/config"
	"volunteer/matching/internal/logging"
	"volunteer/matching/internal/metrics"
	model "volunteer/matching/internal/model/db"
	"volunteer/matching/internal/service/features"
)

const (
	msgNotFound         = "activity not found"
	msgNoTrainingData   = "no training data"
	msgInsufficientData = "insufficient data"
)

type ActivityLister interface {
	All(ctx context.Context) ([]model.Activity, error)
}

type FeatureSource interface {
	Extract(ctx context.Context, activityID int64) (features.Features, error)
	FromActivity(ctx context.Context, activity model.Activity) (features.Features, error)
}

type Predictor struct {
	config     config.PredictionConfig
	features   FeatureSource
	activities ActivityLister
	exporter   TreeExporter
	cache      *modelCache
	columns    []string
}

// New builds a predictor. A nil exporter disables tree export.
func New(cfg config.PredictionConfig, fs FeatureSource, activities ActivityLister, exporter TreeExporter) *Predictor {
	return &Predictor{
		config:     cfg,
		features:   fs,
		activities: activities,
		exporter:   exporter,
		cache:      newModelCache(cfg.ModelCacheSize),
		columns:    features.Columns,
	}
}

// Predict never returns a Go error; every failure is reported through the
// Prediction fields.
func (p *Predictor) Predict(ctx context.Context, activityID int64) Prediction {
	ctx = logging.EnsureCorrelationID(ctx)
	log := logging.Ctx(ctx).With().Int64("activity_id", activityID).Logger()

	target, err := p.features.Extract(ctx, activityID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			log.Warn().Msg("prediction requested for unknown activity")
			metrics.RecordPrediction(metrics.OutcomeNotFound)
			return failed(msgNotFound)
		}
		log.Error().Err(err).Msg("extract target features")
		metrics.RecordPrediction(metrics.OutcomeInferenceError)
		return failed(fmt.Sprintf("prediction failed: %v", err))
	}

	X, y, err := p.trainingSet(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load training activities")
		metrics.RecordPrediction(metrics.OutcomeNoTrainingData)
		return fallback(0.5, msgNoTrainingData, err.Error())
	}
	if len(X) == 0 {
		log.Info().Msg("no activities to train on")
		metrics.RecordPrediction(metrics.OutcomeNoTrainingData)
		return fallback(0.5, msgNoTrainingData, "")
	}

	classes := distinct(y)
	if len(X) < p.config.MinSamples || classes < 2 {
		prob := 0.5
		if classes == 1 {
			prob = mean(y)
		}
		log.Info().Int("samples", len(X)).Int("classes", classes).Msg("insufficient data, returning default prediction")
		metrics.RecordPrediction(metrics.OutcomeInsufficientData)
		return fallback(prob, msgInsufficientData, fmt.Sprintf("default prediction: samples=%d classes=%d", len(X), classes))
	}

	trained, err := p.train(ctx, X, y)
	if err != nil {
		log.Error().Err(err).Msg("training failed")
		metrics.RecordPrediction(metrics.OutcomeTrainingError)
		return fallback(mean(y), fmt.Sprintf("training error: %v", err), "default prediction after training error")
	}

	x, err := target.Vector(trained.forest.Columns())
	if err != nil {
		log.Error().Err(err).Msg("build target vector")
		metrics.RecordPrediction(metrics.OutcomeInferenceError)
		return failed(fmt.Sprintf("prediction failed: %v", err))
	}
	prob, err := trained.forest.PredictProba(x)
	if err != nil {
		log.Error().Err(err).Msg("inference failed")
		metrics.RecordPrediction(metrics.OutcomeInferenceError)
		return failed(fmt.Sprintf("prediction failed: %v", err))
	}

	out := Prediction{
		Probability: &prob,
		Metrics:     &Metrics{},
	}

	if p.exporter != nil {
		path, err := p.exporter.Export(trained.forest.Tree(0), trained.forest.Columns())
		if err != nil {
			log.Warn().Err(err).Msg("tree export failed")
		} else {
			out.DiagnosticArtifact = &path
		}
	}

	if acc, err := trained.forest.Accuracy(X, y, trained.test); err != nil {
		log.Error().Err(err).Msg("accuracy unavailable")
	} else {
		out.Metrics.Accuracy = &acc
	}

	log.Info().Float64("probability", prob).Str("band", Band(&prob)).Msg("participation predicted")
	metrics.RecordPrediction(metrics.OutcomePredicted)
	return out
}

// trainingSet extracts features for every stored activity. Activities whose
// features cannot be extracted are skipped.
func (p *Predictor) trainingSet(ctx context.Context) ([][]float64, []int, error) {
	activities, err := p.activities.All(ctx)
	if err != nil {
		return nil, nil, err
	}

	X := make([][]float64, 0, len(activities))
	y := make([]int, 0, len(activities))
	for _, a := range activities {
		f, err := p.features.FromActivity(ctx, a)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int64("activity_id", a.ID).Msg("skipping activity without features")
			continue
		}
		row, err := f.Vector(p.columns)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int64("activity_id", a.ID).Msg("skipping activity without features")
			continue
		}
		X = append(X, row)
		y = append(y, p.label(f))
	}
	return X, y, nil
}

// label is 1 when occupancy reaches the high participation ratio. Activities
// without a positive capacity are labeled 0.
func (p *Predictor) label(f features.Features) int {
	occupancy, ok := f.Occupancy()
	if ok && occupancy >= p.config.HighOccupancyRatio {
		return 1
	}
	return 0
}

func (p *Predictor) train(ctx context.Context, X [][]float64, y []int) (*trainedModel, error) {
	key := frameKey(p.columns, X, y, p.config.Trees, p.config.Seed, p.config.TestFraction)
	if m, ok := p.cache.get(key); ok {
		metrics.ModelCacheHits.Inc()
		logging.Ctx(ctx).Debug().Uint64("frame", key).Msg("model cache hit")
		return m, nil
	}

	start := time.Now()
	train, test, err := stratifiedSplit(y, p.config.TestFraction, p.config.Seed)
	if err != nil {
		return nil, err
	}

	trainX := make([][]float64, len(train))
	trainY := make([]int, len(train))
	for i, idx := range train {
		trainX[i] = X[idx]
		trainY[i] = y[idx]
	}

	forest, err := fitForest(trainX, trainY, p.columns, p.config.Trees, p.config.Seed)
	if err != nil {
		return nil, err
	}
	metrics.RecordTraining(time.Since(start))
	logging.Ctx(ctx).Debug().Int("train", len(train)).Int("test", len(test)).Dur("took", time.Since(start)).Msg("forest trained")

	m := &trainedModel{forest: forest, test: test}
	p.cache.add(key, m)
	return m, nil
}

func distinct(y []int) int {
	seen := map[int]struct{}{}
	for _, v := range y {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func mean(y []int) float64 {
	if len(y) == 0 {
		return 0.5
	}
	var sum int
	for _, v := range y {
		sum += v
	}
	return float64(sum) / float64(len(y))
}
