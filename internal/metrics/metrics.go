package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes.
const (
	OutcomeNotFound         = "not_found"
	OutcomeNoTrainingData   = "no_training_data"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeTrainingError    = "training_error"
	OutcomeInferenceError   = "inference_error"
	OutcomePredicted        = "predicted"
)

var (
	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_predictions_total",
			Help: "Participation predictions by outcome",
		},
		[]string{"outcome"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_training_duration_seconds",
			Help:    "Time spent fitting the participation forest",
			Buckets: prometheus.DefBuckets,
		},
	)

	ModelCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_model_cache_hits_total",
			Help: "Trained forests served from the model cache",
		},
	)

	CompatibilityFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_compatibility_item_failures_total",
			Help: "Activities that defaulted to a zero compatibility score after an error",
		},
	)

	RecommendationsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_recommendations_inserted_total",
			Help: "Personalized recommendations committed",
		},
	)

	RecommendationsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_recommendations_skipped_total",
			Help: "Candidate recommendations skipped because they already existed",
		},
	)

	GenerateFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_generate_failures_total",
			Help: "Recommendation runs that rolled back",
		},
	)

	GenerateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_generate_duration_seconds",
			Help:    "Duration of recommendation generation runs",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func RecordPrediction(outcome string) {
	Predictions.WithLabelValues(outcome).Inc()
}

func RecordTraining(d time.Duration) {
	TrainingDuration.Observe(d.Seconds())
}

// RecordGenerate records one recommendation run.
func RecordGenerate(d time.Duration, inserted, skipped int, err error) {
	GenerateDuration.Observe(d.Seconds())
	if err != nil {
		GenerateFailures.Inc()
		return
	}
	RecommendationsInserted.Add(float64(inserted))
	RecommendationsSkipped.Add(float64(skipped))
}
