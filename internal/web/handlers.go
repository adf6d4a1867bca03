package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chatbot/internal/auth"
	"chatbot/internal/llm"
)

// userView is the account shape returned to clients; the password hash
// never leaves the server.
type userView struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"is_admin"`
	IsBlocked    bool   `json:"is_blocked"`
	HasAPIKey    bool   `json:"has_api_key"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity,omitempty"`
}

func viewOf(u auth.User) userView {
	v := userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		IsBlocked: u.IsBlocked,
		HasAPIKey: u.APIKey != "",
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.LastActivity != nil {
		v.LastActivity = u.LastActivity.Format(time.RFC3339)
	}
	return v
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	user, err := s.users.Register(req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeError(w, http.StatusConflict, "user_exists", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	sess := s.sessions.Create(user.ID)
	s.setSessionCookie(w, sess)
	s.log.Infow("user registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, map[string]any{"user": viewOf(user), "token": sess.Token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		LoginType string `json:"login_type"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	user, err := s.users.Authenticate(req.Username, req.Password, req.LoginType == "admin")
	if err != nil {
		if errors.Is(err, auth.ErrBlocked) {
			writeError(w, http.StatusForbidden, "blocked", "account is blocked")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}
	s.users.TouchActivity(user.ID)
	sess := s.sessions.Create(user.ID)
	s.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{"user": viewOf(user), "token": sess.Token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ auth.User) {
	s.sessions.Destroy(s.sessionToken(r))
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user auth.User) {
	writeJSON(w, http.StatusOK, map[string]any{"user": viewOf(user)})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	updated, err := s.users.UpdateProfile(user.ID, req.Username, req.Email, req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "profile update failed")
		s.log.Warnw("profile update failed", "user_id", user.ID, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": viewOf(updated)})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = user.APIKey
	}

	reply, err := s.orch.HandleMessage(r.Context(), user.ID, req.Message, llm.Credentials{APIKey: apiKey})
	if err != nil {
		s.log.Warnw("chat request failed", "user_id", user.ID, "error", err)
		writeTaxonomyError(w, err)
		return
	}
	s.users.TouchActivity(user.ID)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, user auth.User) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	exchanges, err := s.store.Recent(r.Context(), user.ID, limit)
	if err != nil {
		s.log.Errorw("history read failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage", "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": exchanges})
}

func (s *Server) handleDeleteExchange(w http.ResponseWriter, r *http.Request, user auth.User) {
	id := r.PathValue("id")
	deleted, err := s.store.Delete(r.Context(), user.ID, id)
	if err != nil {
		s.log.Errorw("exchange delete failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage", "failed to delete exchange")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request, user auth.User) {
	removed, err := s.store.Clear(r.Context(), user.ID)
	if err != nil {
		s.log.Errorw("history clear failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage", "failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handleVerifyKey probes the text provider with a trivial prompt. A key
// that works is saved on the profile for future requests.
func (s *Server) handleVerifyKey(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "api_key is required")
		return
	}
	if _, err := s.text.GenerateText(r.Context(), "Hello", llm.Credentials{APIKey: req.APIKey}); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false})
		return
	}
	if err := s.users.SetAPIKey(user.ID, req.APIKey); err != nil {
		s.log.Warnw("saving verified key failed", "user_id", user.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}
