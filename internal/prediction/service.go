// Package prediction turns raw text into a sentiment label using the frozen
// model and reports every classification to the audit trail.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/sentiment-bot/internal/classifier"
	"github.com/xaenox/sentiment-bot/internal/models"
	"go.uber.org/zap"
)

// ErrClassification wraps any failure inside vectorization or classification.
var ErrClassification = errors.New("classification failed")

// Class indices produced by the decision model.
const (
	classNegative = 0
	classPositive = 1
)

// AuditSubmitter accepts audit records without waiting for them to be stored.
type AuditSubmitter interface {
	Submit(record models.AuditRecord) bool
}

type Service struct {
	model  classifier.Classifier
	audit  AuditSubmitter
	logger *zap.Logger
	now    func() time.Time
}

func NewService(model classifier.Classifier, audit AuditSubmitter, logger *zap.Logger) *Service {
	return &Service{
		model:  model,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// ModelVersion returns the version string of the loaded artifacts.
func (s *Service) ModelVersion() string {
	return s.model.Version()
}

// Predict classifies text. Input that normalizes to nothing is Neutral and is
// not audited.
func (s *Service) Predict(ctx context.Context, text string) (models.PredictionResult, error) {
	version := s.model.Version()
	if err := ctx.Err(); err != nil {
		return models.PredictionResult{ModelVersion: version, Outcome: models.OutcomeCanceled}, err
	}

	cleaned := classifier.Normalize(text)
	if cleaned == "" {
		return models.PredictionResult{
			Label:        models.Neutral,
			Confidence:   0,
			ModelVersion: version,
			Outcome:      models.OutcomeNeutralNoInput,
		}, nil
	}

	label, confidence, err := s.classify(cleaned)
	if err != nil {
		s.logger.Error("Failed to classify text",
			zap.Error(err),
			zap.Int("input_runes", len([]rune(cleaned))))
		return models.PredictionResult{
			ModelVersion: version,
			Outcome:      models.OutcomeClassificationFailure,
		}, err
	}

	s.logger.Debug("Sentiment predicted",
		zap.String("input", text),
		zap.String("label", string(label)),
		zap.Float64("score", confidence))

	s.audit.Submit(models.AuditRecord{
		ID:           uuid.New().String(),
		InputText:    text,
		Label:        label,
		Confidence:   confidence,
		ModelVersion: version,
		CreatedAt:    s.now().UTC(),
	})

	return models.PredictionResult{
		Label:        label,
		Confidence:   confidence,
		ModelVersion: version,
		Outcome:      models.OutcomeClassified,
	}, nil
}

func (s *Service) classify(cleaned string) (label models.Label, confidence float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrClassification, r)
		}
	}()

	vector := s.model.Transform(cleaned)
	class, probs, err := s.model.Classify(vector)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	switch class {
	case classPositive:
		label = models.Positive
	case classNegative:
		label = models.Negative
	default:
		return "", 0, fmt.Errorf("%w: unexpected class %d", ErrClassification, class)
	}

	// The probability at the predicted class index, not the distribution maximum.
	if class >= len(probs) {
		return "", 0, fmt.Errorf("%w: no probability for class %d", ErrClassification, class)
	}
	return label, clamp(probs[class]), nil
}

func clamp(p float64) float64 {
	switch {
	case p != p, p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
