package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository stores the account list as a JSON array, rewritten
// atomically on every change.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &FileRepository{path: path}, nil
}

func (r *FileRepository) LoadAll() ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *FileRepository) Upsert(user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	updated := false
	for i, u := range users {
		if u.ID == user.ID {
			users[i] = user
			updated = true
			break
		}
	}
	if !updated {
		users = append(users, user)
	}
	return r.saveUnlocked(users)
}

func (r *FileRepository) Remove(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	out := users[:0]
	for _, u := range users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return r.saveUnlocked(out)
}

func (r *FileRepository) loadUnlocked() ([]User, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []User{}, nil
		}
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(data) == 0 {
		return []User{}, nil
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return users, nil
}

func (r *FileRepository) saveUnlocked(users []User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".users-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace: %w", err)
	}
	return nil
}

var _ Repository = (*FileRepository)(nil)
