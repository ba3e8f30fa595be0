// Package api exposes prediction, chat sessions and the audit dashboard over
// HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xaenox/sentiment-bot/internal/audit"
	"github.com/xaenox/sentiment-bot/internal/auth"
	"github.com/xaenox/sentiment-bot/internal/chat"
	"github.com/xaenox/sentiment-bot/internal/dashboard"
	"github.com/xaenox/sentiment-bot/internal/models"
	"go.uber.org/zap"
)

// Predictor classifies text outside of any chat session.
type Predictor interface {
	Predict(ctx context.Context, text string) (models.PredictionResult, error)
	ModelVersion() string
}

// AuditStats reports audit delivery counters.
type AuditStats interface {
	Stats() audit.Stats
}

type Deps struct {
	Predictor Predictor
	Chat      *chat.Service
	Dashboard *dashboard.Reader
	Verifier  *auth.Verifier
	Audit     AuditStats
	Logger    *zap.Logger
}

type handler struct {
	Deps
}

func NewRouter(deps Deps) http.Handler {
	h := &handler{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/predict", h.handlePredict)

		api.Group(func(authed chi.Router) {
			authed.Use(authenticate(deps.Verifier, deps.Logger))

			authed.Get("/me", h.handleMe)

			authed.Route("/chat", func(c chi.Router) {
				c.Post("/messages", h.handleSendMessage)
				c.Post("/sessions", h.handleCreateSession)
				c.Get("/sessions", h.handleSearchSessions)
				c.Get("/sessions/active", h.handleActiveSession)
				c.Post("/sessions/{id}/load", h.handleLoadSession)
				c.Delete("/sessions/{id}", h.handleDeleteSession)
			})

			authed.Route("/admin", func(a chi.Router) {
				a.Get("/logs", h.handleAuditLogs)
				a.Get("/stats", h.handleAuditStats)
			})
		})
	})

	return r
}
