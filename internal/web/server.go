package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"chatbot/internal/auth"
	"chatbot/internal/conversation"
	"chatbot/internal/history"
	"chatbot/internal/llm"
	"chatbot/internal/storage"
)

const sessionCookie = "session"

// Server is the HTTP surface of the chatbot: account management, the
// chat endpoint and the admin dashboard API.
type Server struct {
	addr     string
	users    *auth.Service
	sessions *SessionManager
	store    history.Store
	orch     *conversation.Orchestrator
	text     llm.TextClient
	recorder storage.Recorder
	server   *http.Server
	log      *zap.SugaredLogger
}

func NewServer(addr string, users *auth.Service, sessions *SessionManager, store history.Store, orch *conversation.Orchestrator, text llm.TextClient, recorder storage.Recorder, log *zap.SugaredLogger) *Server {
	return &Server{
		addr:     addr,
		users:    users,
		sessions: sessions,
		store:    store,
		orch:     orch,
		text:     text,
		recorder: recorder,
		log:      log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.requireUser(s.handleLogout))
	mux.HandleFunc("GET /api/me", s.requireUser(s.handleMe))
	mux.HandleFunc("POST /api/profile", s.requireUser(s.handleUpdateProfile))

	mux.HandleFunc("POST /api/chat", s.requireUser(s.handleChat))
	mux.HandleFunc("GET /api/history", s.requireUser(s.handleHistory))
	mux.HandleFunc("DELETE /api/chat/{id}", s.requireUser(s.handleDeleteExchange))
	mux.HandleFunc("POST /api/clear_history", s.requireUser(s.handleClearHistory))
	mux.HandleFunc("POST /api/verify_key", s.requireUser(s.handleVerifyKey))

	mux.HandleFunc("GET /api/admin/users", s.requireAdmin(s.handleAdminUsers))
	mux.HandleFunc("POST /api/admin/create", s.requireAdmin(s.handleAdminCreate))
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.requireAdmin(s.handleAdminDeleteUser))
	mux.HandleFunc("POST /api/admin/block/{id}", s.requireAdmin(s.handleAdminBlock))
	mux.HandleFunc("GET /api/admin/usage", s.requireAdmin(s.handleAdminUsage))

	mux.HandleFunc("GET /api/status", s.handleStatus)

	return mux
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Infof("starting chatbot web server on %s", s.addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// --- request plumbing ---

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]apiError{"error": {Kind: kind, Message: message}})
}

// writeTaxonomyError maps orchestrator failures to HTTP statuses while
// keeping the stable kind visible to clients.
func writeTaxonomyError(w http.ResponseWriter, err error) {
	kind, ok := conversation.KindOf(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "unexpected error")
		return
	}
	status := http.StatusInternalServerError
	switch kind {
	case conversation.KindInvalidInput:
		status = http.StatusBadRequest
	case conversation.KindGenerationAuth:
		status = http.StatusUnauthorized
	case conversation.KindGenerationRateLimited:
		status = http.StatusTooManyRequests
	case conversation.KindGenerationTransient, conversation.KindGenerationModel:
		status = http.StatusBadGateway
	case conversation.KindGenerationModelLoading:
		status = http.StatusServiceUnavailable
	case conversation.KindStorage:
		status = http.StatusInternalServerError
	}
	writeError(w, status, string(kind), publicMessage(err))
}

// publicMessage strips wrapped provider internals, exposing only the
// taxonomy-level description.
func publicMessage(err error) string {
	var ce *conversation.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "request failed"
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

type userHandler func(w http.ResponseWriter, r *http.Request, user auth.User)

func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "please login to access this resource")
			return
		}
		sess, ok := s.sessions.Lookup(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "session expired, please login again")
			return
		}
		user, err := s.users.Get(sess.UserID)
		if err != nil {
			s.sessions.Destroy(token)
			writeError(w, http.StatusUnauthorized, "unauthenticated", "account no longer exists")
			return
		}
		if user.IsBlocked {
			writeError(w, http.StatusForbidden, "blocked", "account is blocked")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) requireAdmin(next userHandler) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, user auth.User) {
		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, "forbidden", "admin privileges required")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
