package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/xaenox/sentiment-bot/internal/models"
	"github.com/xaenox/sentiment-bot/internal/prediction"
	"github.com/xaenox/sentiment-bot/internal/session"
	"go.uber.org/zap"
)

type textRequest struct {
	Text string `json:"text"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"model_version": h.Predictor.ModelVersion(),
	})
}

func (h *handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Predictor.Predict(r.Context(), req.Text)
	if err != nil {
		h.Logger.Error("Prediction failed", zap.Error(err))
		status := http.StatusInternalServerError
		if !errors.Is(err, prediction.ErrClassification) {
			status = http.StatusServiceUnavailable
		}
		respondError(w, status, "prediction failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{
		"email":        id.Email,
		"display_name": id.DisplayName(),
	})
}

func (h *handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	exchange, err := h.Chat.HandleMessage(r.Context(), id, req.Text)
	if err != nil && exchange.Reply.Content == "" {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrInvalidMessage) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}
	// A failed classification still yields a saved reply.
	respondJSON(w, http.StatusOK, exchange)
}

func (h *handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	manager, unlock := h.Chat.Sessions().Lock(id)
	defer unlock()

	respondJSON(w, http.StatusCreated, manager.CreateSession())
}

func (h *handler) handleSearchSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	results := h.Chat.Sessions().Manager(id).Search(r.URL.Query().Get("q"))
	if results == nil {
		results = []session.Summary{}
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *handler) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	respondJSON(w, http.StatusOK, h.Chat.Sessions().Manager(id).Active())
}

func (h *handler) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	id, _ := identityFrom(r.Context())
	manager, unlock := h.Chat.Sessions().Lock(id)
	defer unlock()

	loaded, err := manager.LoadSession(sessionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loaded)
}

func (h *handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	id, _ := identityFrom(r.Context())
	manager, unlock := h.Chat.Sessions().Lock(id)
	defer unlock()

	if err := manager.DeleteSession(sessionID); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, manager.Active())
}

func (h *handler) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	records, err := h.Dashboard.Recent(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "audit trail unavailable")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *handler) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Dashboard.Summary(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "audit trail unavailable")
		return
	}

	payload := map[string]any{"summary": summary}
	if h.Audit != nil {
		payload["delivery"] = h.Audit.Stats()
	}
	respondJSON(w, http.StatusOK, payload)
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (models.SessionID, bool) {
	raw := chi.URLParam(r, "id")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return 0, false
	}
	return models.SessionID(n), true
}

func respondSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
