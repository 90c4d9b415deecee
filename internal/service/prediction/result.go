package prediction

import (
	"github.com/goccy/go-json"
)

// Metrics is either a reason string for default predictions or the held-out
// accuracy of a trained model. A trained model with a nil Accuracy reports
// "unavailable".
type Metrics struct {
	Reason   string
	Accuracy *float64
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	if m.Reason != "" {
		return json.Marshal(m.Reason)
	}
	if m.Accuracy == nil {
		return json.Marshal(map[string]string{"accuracy": "unavailable"})
	}
	return json.Marshal(map[string]float64{"accuracy": *m.Accuracy})
}

// Prediction is the outcome of one Predict call. Error is set only for
// terminal failures, in which case Probability is nil.
type Prediction struct {
	Probability        *float64 `json:"probability"`
	Metrics            *Metrics `json:"metrics,omitempty"`
	DiagnosticArtifact *string  `json:"diagnostic_artifact"`
	Error              string   `json:"error,omitempty"`
	Info               string   `json:"info,omitempty"`
}

// Band maps the probability to its presentation band.
func (p Prediction) Band() string {
	return Band(p.Probability)
}

func failed(msg string) Prediction {
	return Prediction{Error: msg}
}

func fallback(probability float64, reason, info string) Prediction {
	return Prediction{
		Probability: &probability,
		Metrics:     &Metrics{Reason: reason},
		Info:        info,
	}
}
