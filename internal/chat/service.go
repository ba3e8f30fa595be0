// Package chat runs one conversational exchange: the user's text is stored,
// classified and answered within the identity's active session.
package chat

import (
	"context"
	"fmt"

	"github.com/xaenox/sentiment-bot/internal/models"
	"github.com/xaenox/sentiment-bot/internal/session"
	"go.uber.org/zap"
)

const failureReply = "Sorry, I could not analyse that message. Please try again."

// Predictor is the part of the prediction service the chat layer needs.
type Predictor interface {
	Predict(ctx context.Context, text string) (models.PredictionResult, error)
}

// Exchange is the outcome of one user message.
type Exchange struct {
	SessionID models.SessionID        `json:"session_id"`
	Result    models.PredictionResult `json:"result"`
	Reply     models.Message          `json:"reply"`
}

type Service struct {
	sessions  *session.Directory
	predictor Predictor
	logger    *zap.Logger
}

func NewService(sessions *session.Directory, predictor Predictor, logger *zap.Logger) *Service {
	return &Service{
		sessions:  sessions,
		predictor: predictor,
		logger:    logger,
	}
}

// Sessions exposes the per-identity session managers.
func (s *Service) Sessions() *session.Directory {
	return s.sessions
}

// HandleMessage appends text to the active session, classifies it, appends
// the reply and saves the session. A classification failure still produces a
// reply and a save; the error is returned alongside the exchange.
func (s *Service) HandleMessage(ctx context.Context, identity models.Identity, text string) (Exchange, error) {
	manager, unlock := s.sessions.Lock(identity)
	defer unlock()

	if err := manager.AppendMessage(models.Message{Role: models.RoleUser, Content: text}); err != nil {
		return Exchange{}, err
	}

	result, predictErr := s.predictor.Predict(ctx, text)
	reply := FormatReply(text, result)
	if predictErr != nil {
		s.logger.Error("Failed to predict sentiment",
			zap.Error(predictErr),
			zap.String("identity", identity.Key()))
		reply = failureReply
	}

	msg := models.Message{Role: models.RoleAssistant, Content: reply}
	if err := manager.AppendMessage(msg); err != nil {
		return Exchange{}, err
	}
	manager.SaveActiveSession()

	active := manager.Active()
	exchange := Exchange{
		SessionID: active.ID,
		Result:    result,
		Reply:     active.Messages[len(active.Messages)-1],
	}
	return exchange, predictErr
}

// FormatReply renders a prediction as the assistant's answer.
func FormatReply(input string, result models.PredictionResult) string {
	emoji := "😐"
	switch result.Label {
	case models.Positive:
		emoji = "😊"
	case models.Negative:
		emoji = "😠"
	}

	return fmt.Sprintf("Sentiment Analysis Result\n\nInput: \"%s\"\nSentiment: %s %s\nConfidence: %.1f%%",
		input, result.Label, emoji, result.Confidence*100)
}
