package models

import "time"

// Label is the sentiment assigned to a piece of text
type Label string

const (
	Positive Label = "Positive"
	Negative Label = "Negative"
	Neutral  Label = "Neutral"
)

// Outcome tells callers which branch of the prediction pipeline produced a result.
type Outcome int

const (
	OutcomeClassified Outcome = iota
	OutcomeNeutralNoInput
	OutcomeClassificationFailure
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClassified:
		return "classified"
	case OutcomeNeutralNoInput:
		return "neutral_no_input"
	case OutcomeClassificationFailure:
		return "classification_failure"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes appear by name in JSON responses.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// PredictionResult represents the result of sentiment analysis. Label is empty
// when the outcome is a failure or a cancellation.
type PredictionResult struct {
	Label        Label   `json:"label,omitempty"`
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"model_version"`
	Outcome      Outcome `json:"outcome"`
}

// AuditRecord is one persisted classification event. Neutral results are
// never recorded.
type AuditRecord struct {
	ID           string    `json:"id"`
	InputText    string    `json:"review"`
	Label        Label     `json:"prediction"`
	Confidence   float64   `json:"confidence"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}
