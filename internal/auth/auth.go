package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is one registered account. Optional capabilities are explicit
// fields, never a loosely typed map.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	IsAdmin      bool       `json:"is_admin,omitempty"`
	IsBlocked    bool       `json:"is_blocked,omitempty"`
	APIKey       string     `json:"api_key,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

type Repository interface {
	LoadAll() ([]User, error)
	Upsert(user User) error
	Remove(userID string) error
}

var (
	ErrUserExists         = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrBlocked            = errors.New("account is blocked")
	ErrNotFound           = errors.New("user not found")
)

// Service keeps the account set in memory, persisting every change
// through the repository.
type Service struct {
	mu    sync.RWMutex
	repo  Repository
	users map[string]User
}

func NewWithRepo(repo Repository) (*Service, error) {
	s := &Service{repo: repo, users: make(map[string]User)}
	if repo != nil {
		users, err := repo.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("preload users: %w", err)
		}
		for _, u := range users {
			s.users[u.ID] = u
		}
	}
	return s, nil
}

func (s *Service) Register(username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return User{}, errors.New("username, email and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return User{}, ErrUserExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	return u, s.saveLocked(u)
}

// CreateAdmin registers an account with admin rights, used by the
// bootstrap path and the admin dashboard.
func (s *Service) CreateAdmin(username, email, password string) (User, error) {
	u, err := s.Register(username, email, password)
	if err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.IsAdmin = true
	return u, s.saveLocked(u)
}

// Authenticate verifies a username/password pair. With adminOnly set,
// a valid non-admin login is still rejected (the admin login form of
// the original product).
func (s *Service) Authenticate(username, password string, adminOnly bool) (User, error) {
	s.mu.RLock()
	var found *User
	for _, u := range s.users {
		if u.Username == username {
			cp := u
			found = &cp
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if found.IsBlocked {
		return User{}, ErrBlocked
	}
	if adminOnly && !found.IsAdmin {
		return User{}, ErrInvalidCredentials
	}
	return *found, nil
}

func (s *Service) Get(userID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// UpdateProfile changes the given fields; empty arguments are left as
// they are.
func (s *Service) UpdateProfile(userID, username, email, newPassword string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	if username != "" {
		u.Username = username
	}
	if email != "" {
		u.Email = strings.ToLower(email)
	}
	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	return u, s.saveLocked(u)
}

func (s *Service) SetAPIKey(userID, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.APIKey = apiKey
	return s.saveLocked(u)
}

func (s *Service) SetBlocked(userID string, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsBlocked = blocked
	return s.saveLocked(u)
}

func (s *Service) TouchActivity(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return
	}
	now := time.Now().UTC()
	u.LastActivity = &now
	_ = s.saveLocked(u)
}

func (s *Service) Remove(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	delete(s.users, userID)
	if s.repo != nil {
		return s.repo.Remove(userID)
	}
	return nil
}

func (s *Service) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

func (s *Service) saveLocked(u User) error {
	s.users[u.ID] = u
	if s.repo != nil {
		return s.repo.Upsert(u)
	}
	return nil
}
