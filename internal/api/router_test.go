package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xaenox/sentiment-bot/internal/audit"
	"github.com/xaenox/sentiment-bot/internal/auth"
	"github.com/xaenox/sentiment-bot/internal/chat"
	"github.com/xaenox/sentiment-bot/internal/classifier"
	"github.com/xaenox/sentiment-bot/internal/dashboard"
	"github.com/xaenox/sentiment-bot/internal/prediction"
	"github.com/xaenox/sentiment-bot/internal/session"
	"github.com/xaenox/sentiment-bot/internal/storage"
	"go.uber.org/zap"
)

type testServer struct {
	handler  http.Handler
	store    *storage.MemoryStorage
	audit    *audit.Logger
	verifier *auth.Verifier
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	model, err := classifier.LoadModel("../classifier/testdata")
	if err != nil {
		t.Fatalf("LoadModel err: %v", err)
	}
	logger := zap.NewNop()
	store := storage.NewMemoryStorage()
	auditLogger := audit.NewLogger(store, audit.Config{}, logger)
	t.Cleanup(func() { _ = auditLogger.Close(context.Background()) })

	verifier, err := auth.NewVerifier("test-secret", "sentibot")
	if err != nil {
		t.Fatalf("NewVerifier err: %v", err)
	}

	predictor := prediction.NewService(model, auditLogger, logger)
	handler := NewRouter(Deps{
		Predictor: predictor,
		Chat:      chat.NewService(session.NewDirectory(), predictor, logger),
		Dashboard: dashboard.NewReader(store, dashboard.Config{TTL: time.Nanosecond}, logger),
		Verifier:  verifier,
		Audit:     auditLogger,
		Logger:    logger,
	})
	return &testServer{handler: handler, store: store, audit: auditLogger, verifier: verifier}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) token(t *testing.T, email string) string {
	t.Helper()
	token, err := s.verifier.Issue(email, time.Hour)
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	return token
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", resp.Body.String(), err)
	}
	return out
}

type resultBody struct {
	Label        string  `json:"label"`
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"model_version"`
	Outcome      string  `json:"outcome"`
}

type sessionBody struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	resp := s.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := decode[map[string]string](t, resp)
	if body["model_version"] != "v3.1_UrduSentiment_Final" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPredictEndpoint(t *testing.T) {
	s := setupServer(t)

	resp := s.do(t, http.MethodPost, "/api/predict", "", map[string]string{"text": "بہت اچھا"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	res := decode[resultBody](t, resp)
	if res.Label != "Positive" || res.Outcome != "classified" {
		t.Fatalf("unexpected result %+v", res)
	}

	resp = s.do(t, http.MethodPost, "/api/predict", "", map[string]string{"text": "123abc!!!"})
	res = decode[resultBody](t, resp)
	if res.Label != "Neutral" || res.Confidence != 0 || res.Outcome != "neutral_no_input" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPredictInvalidBody(t *testing.T) {
	s := setupServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString("{"))
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatRequiresToken(t *testing.T) {
	s := setupServer(t)
	for _, path := range []string{"/api/chat/sessions", "/api/admin/stats"} {
		if resp := s.do(t, http.MethodGet, path, "", nil); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.Code)
		}
		if resp := s.do(t, http.MethodGet, path, "bogus", nil); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 for bad token, got %d", path, resp.Code)
		}
	}
}

func TestMe(t *testing.T) {
	s := setupServer(t)
	resp := s.do(t, http.MethodGet, "/api/me", s.token(t, "ayesha.khan@example.com"), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := decode[map[string]string](t, resp)
	if body["email"] != "ayesha.khan@example.com" || body["display_name"] != "ayesha.khan" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestChatFlow(t *testing.T) {
	s := setupServer(t)
	token := s.token(t, "user@example.com")

	resp := s.do(t, http.MethodPost, "/api/chat/messages", token, map[string]string{"text": "بہت اچھا"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	first := decode[struct {
		SessionID int64      `json:"session_id"`
		Result    resultBody `json:"result"`
	}](t, resp)
	if first.Result.Label != "Positive" {
		t.Fatalf("unexpected result %+v", first.Result)
	}

	resp = s.do(t, http.MethodPost, "/api/chat/sessions", token, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	created := decode[sessionBody](t, resp)
	if created.ID != first.SessionID+1 || len(created.Messages) != 0 {
		t.Fatalf("unexpected new session %+v", created)
	}

	resp = s.do(t, http.MethodGet, "/api/chat/sessions?q=%D8%A7%DA%86%DA%BE%D8%A7", token, nil)
	list := decode[[]struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}](t, resp)
	if len(list) != 1 || list[0].ID != first.SessionID {
		t.Fatalf("unexpected search result %+v", list)
	}

	resp = s.do(t, http.MethodPost, fmt.Sprintf("/api/chat/sessions/%d/load", first.SessionID), token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	loaded := decode[sessionBody](t, resp)
	if len(loaded.Messages) != 2 || loaded.Messages[0].Content != "بہت اچھا" || loaded.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected loaded session %+v", loaded)
	}

	resp = s.do(t, http.MethodDelete, fmt.Sprintf("/api/chat/sessions/%d", first.SessionID), token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	active := decode[sessionBody](t, resp)
	if active.ID == first.SessionID || len(active.Messages) != 0 {
		t.Fatalf("expected fresh active session, got %+v", active)
	}

	resp = s.do(t, http.MethodGet, "/api/chat/sessions", token, nil)
	if got := decode[[]any](t, resp); len(got) != 0 {
		t.Fatalf("expected no saved sessions, got %v", got)
	}
}

func TestSessionErrors(t *testing.T) {
	s := setupServer(t)
	token := s.token(t, "user@example.com")

	if resp := s.do(t, http.MethodPost, "/api/chat/sessions/42/load", token, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := s.do(t, http.MethodDelete, "/api/chat/sessions/abc", token, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if resp := s.do(t, http.MethodPost, "/api/chat/messages", token, map[string]string{"text": " "}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSessionsAreIsolatedPerIdentity(t *testing.T) {
	s := setupServer(t)
	alice := s.token(t, "alice@example.com")
	bob := s.token(t, "bob@example.com")

	s.do(t, http.MethodPost, "/api/chat/messages", alice, map[string]string{"text": "اچھا"})

	resp := s.do(t, http.MethodGet, "/api/chat/sessions", bob, nil)
	if got := decode[[]any](t, resp); len(got) != 0 {
		t.Fatalf("bob sees alice's sessions: %v", got)
	}
}

func TestAdminStats(t *testing.T) {
	s := setupServer(t)
	token := s.token(t, "admin@example.com")

	for _, text := range []string{"بہت اچھا", "بہت برا", "اچھی فلم", "!!!"} {
		s.do(t, http.MethodPost, "/api/predict", "", map[string]string{"text": text})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.audit.Close(ctx); err != nil {
		t.Fatalf("Close err: %v", err)
	}

	resp := s.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := decode[struct {
		Summary  dashboard.Summary `json:"summary"`
		Delivery audit.Stats       `json:"delivery"`
	}](t, resp)
	if body.Summary.Total != 3 || body.Summary.Positive != 2 || body.Summary.Negative != 1 {
		t.Fatalf("unexpected summary %+v", body.Summary)
	}
	if body.Delivery.Written != 3 {
		t.Fatalf("unexpected delivery stats %+v", body.Delivery)
	}

	resp = s.do(t, http.MethodGet, "/api/admin/logs", token, nil)
	logs := decode[[]struct {
		Review     string `json:"review"`
		Prediction string `json:"prediction"`
	}](t, resp)
	if len(logs) != 3 {
		t.Fatalf("expected 3 audit rows, got %d", len(logs))
	}
}
