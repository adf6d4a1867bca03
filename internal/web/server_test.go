package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"chatbot/internal/auth"
	"chatbot/internal/conversation"
	"chatbot/internal/history"
	"chatbot/internal/llm"
	"chatbot/internal/prompt"
)

type stubText struct{ err error }

func (s *stubText) GenerateText(_ context.Context, _ string, _ llm.Credentials) (llm.Response, error) {
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Content: "stub reply", Model: "stub"}, nil
}

type stubImage struct{}

func (s *stubImage) GenerateImage(_ context.Context, _ string, _ llm.Credentials) ([]byte, error) {
	return []byte{0x1}, nil
}

func newTestServer(t *testing.T, text llm.TextClient) *Server {
	t.Helper()
	users, err := auth.NewWithRepo(nil)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	store := history.NewMemoryStore(50)
	pc := prompt.NewPermanentContext()
	log := zap.NewNop().Sugar()
	orch := conversation.New(store, pc, text, &stubImage{}, nil, 5, log)
	return NewServer(":0", users, NewSessionManager(time.Hour), store, orch, text, nil, log)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any, extraHeaders map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice", "email": "a@example.com", "password": "pw",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("no token in register response: %s", rec.Body.String())
	}
	return resp.Token
}

func TestChatRequiresAuth(t *testing.T) {
	s := newTestServer(t, &stubText{})
	h := s.Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/chat", "", map[string]string{"message": "hi"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRegisterChatAndHistoryFlow(t *testing.T) {
	s := newTestServer(t, &stubText{})
	h := s.Handler()
	token := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/chat", token,
		map[string]string{"message": "hello"}, map[string]string{"X-API-Key": "k"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status %d: %s", rec.Code, rec.Body.String())
	}
	var reply struct {
		Response   string `json:"response"`
		ExchangeID string `json:"exchange_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil || reply.Response != "stub reply" {
		t.Fatalf("bad chat reply: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/history", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status %d", rec.Code)
	}
	var hist struct {
		History []history.Exchange `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil || len(hist.History) != 1 {
		t.Fatalf("bad history: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/chat/"+reply.ExchangeID, token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status %d", rec.Code)
	}
	var del struct {
		Deleted bool `json:"deleted"`
	}
	json.Unmarshal(rec.Body.Bytes(), &del)
	if !del.Deleted {
		t.Fatalf("exchange not deleted")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/clear_history", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status %d", rec.Code)
	}
}

func TestChatMissingKeyIsInvalidInput(t *testing.T) {
	s := newTestServer(t, &stubText{})
	h := s.Handler()
	token := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/chat", token, map[string]string{"message": "hi"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing key, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error apiError `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error.Kind != "invalid_input" {
		t.Fatalf("wrong kind: %+v", resp.Error)
	}
}

func TestGenerationAuthErrorMapsTo401(t *testing.T) {
	s := newTestServer(t, &stubText{err: llm.Errf(llm.KindAuth, "bad key")})
	h := s.Handler()
	token := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/chat", token,
		map[string]string{"message": "hi"}, map[string]string{"X-API-Key": "bad"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Error apiError `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error.Kind != string(conversation.KindGenerationAuth) {
		t.Fatalf("wrong kind: %+v", resp.Error)
	}
}

func TestAdminEndpointsGated(t *testing.T) {
	s := newTestServer(t, &stubText{})
	h := s.Handler()
	token := registerAndLogin(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/admin/users", token, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin reached admin API: %d", rec.Code)
	}

	admin, err := s.users.CreateAdmin("root", "root@example.com", "pw")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	adminSess := s.sessions.Create(admin.ID)
	rec = doJSON(t, h, http.MethodGet, "/api/admin/users", adminSess.Token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list failed: %d %s", rec.Code, rec.Body.String())
	}

	// Block the first user, then their login must fail.
	var users struct {
		Users []userView `json:"users"`
	}
	json.Unmarshal(rec.Body.Bytes(), &users)
	var aliceID string
	for _, u := range users.Users {
		if u.Username == "alice" {
			aliceID = u.ID
		}
	}
	if aliceID == "" {
		t.Fatalf("alice not listed")
	}
	rec = doJSON(t, h, http.MethodPost, "/api/admin/block/"+aliceID, adminSess.Token,
		map[string]bool{"blocked": true}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("block failed: %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/login", "",
		map[string]string{"username": "alice", "password": "pw"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("blocked user logged in: %d", rec.Code)
	}
	// Existing session is also revoked.
	rec = doJSON(t, h, http.MethodGet, "/api/me", token, nil, nil)
	if rec.Code != http.StatusUnauthorized && rec.Code != http.StatusForbidden {
		t.Fatalf("blocked user's session survived: %d", rec.Code)
	}
}
