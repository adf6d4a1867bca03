package web

import (
	"errors"
	"net/http"
	"sort"

	"chatbot/internal/auth"
	"chatbot/internal/storage"
)

func (s *Server) handleAdminUsers(w http.ResponseWriter, _ *http.Request, _ auth.User) {
	users := s.users.List()
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": views})
}

func (s *Server) handleAdminCreate(w http.ResponseWriter, r *http.Request, admin auth.User) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	user, err := s.users.CreateAdmin(req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeError(w, http.StatusConflict, "user_exists", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.log.Infow("admin account created", "user_id", user.ID, "by", admin.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"user": viewOf(user)})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request, admin auth.User) {
	id := r.PathValue("id")
	if id == admin.ID {
		writeError(w, http.StatusBadRequest, "invalid_input", "cannot delete your own account")
		return
	}
	if err := s.users.Remove(id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "delete failed")
		return
	}
	s.sessions.DestroyForUser(id)
	if _, err := s.store.Clear(r.Context(), id); err != nil {
		s.log.Warnw("clearing history of deleted user failed", "user_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleAdminBlock(w http.ResponseWriter, r *http.Request, admin auth.User) {
	id := r.PathValue("id")
	var req struct {
		Blocked bool `json:"blocked"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if id == admin.ID && req.Blocked {
		writeError(w, http.StatusBadRequest, "invalid_input", "cannot block your own account")
		return
	}
	if err := s.users.SetBlocked(id, req.Blocked); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "update failed")
		return
	}
	if req.Blocked {
		s.sessions.DestroyForUser(id)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"blocked": req.Blocked})
}

func (s *Server) handleAdminUsage(w http.ResponseWriter, _ *http.Request, _ auth.User) {
	if s.recorder == nil {
		writeJSON(w, http.StatusOK, map[string]any{"usage": []storage.UserSummary{}})
		return
	}
	events, err := s.recorder.LoadEvents()
	if err != nil {
		s.log.Errorw("usage load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage", "failed to load usage data")
		return
	}
	byUser := storage.Summarize(events)
	out := make([]storage.UserSummary, 0, len(byUser))
	for _, v := range byUser {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	writeJSON(w, http.StatusOK, map[string]any{"usage": out, "events": len(events)})
}
