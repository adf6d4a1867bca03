package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore persists all histories as a single JSON document mapping
// user id to its ordered exchanges. Every mutation rewrites the file
// atomically (write temp, then rename) so concurrent readers never see
// a partial document.
type FileStore struct {
	path       string
	maxHistory int
	mu         sync.Mutex
	sessions   map[string][]Exchange
}

func NewFileStore(path string, maxHistory int) (*FileStore, error) {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErrf("ensure dir: %w", err)
	}
	s := &FileStore{path: path, maxHistory: maxHistory, sessions: make(map[string][]Exchange)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storageErrf("read: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.sessions); err != nil {
		// Malformed file is data loss we must not hide.
		return storageErrf("decode %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return storageErrf("encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*")
	if err != nil {
		return storageErrf("temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return storageErrf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return storageErrf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return storageErrf("replace: %w", err)
	}
	return nil
}

func (s *FileStore) Append(_ context.Context, userID, userMessage, assistantResponse string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex := Exchange{
		ID:                uuid.NewString(),
		UserID:            userID,
		UserMessage:       userMessage,
		AssistantResponse: assistantResponse,
		CreatedAt:         time.Now().UTC(),
	}
	es := append(s.sessions[userID], ex)
	if over := len(es) - s.maxHistory; over > 0 {
		es = append([]Exchange{}, es[over:]...)
	}
	prev, had := s.sessions[userID]
	s.sessions[userID] = es
	if err := s.save(); err != nil {
		// Keep the in-memory view consistent with the file.
		if had {
			s.sessions[userID] = prev
		} else {
			delete(s.sessions, userID)
		}
		return "", err
	}
	return ex.ID, nil
}

func (s *FileStore) Recent(_ context.Context, userID string, k int) ([]Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es := s.sessions[userID]
	if k > len(es) {
		k = len(es)
	}
	if k < 0 {
		k = 0
	}
	out := make([]Exchange, k)
	copy(out, es[len(es)-k:])
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, userID, exchangeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es := s.sessions[userID]
	for i, ex := range es {
		if ex.ID == exchangeID {
			next := append(append([]Exchange{}, es[:i]...), es[i+1:]...)
			s.sessions[userID] = next
			if err := s.save(); err != nil {
				s.sessions[userID] = es
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) Clear(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.sessions[userID]
	if !ok {
		return 0, nil
	}
	delete(s.sessions, userID)
	if err := s.save(); err != nil {
		s.sessions[userID] = es
		return 0, err
	}
	return len(es), nil
}

var _ Store = (*FileStore)(nil)
