package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore holds histories in process memory. It backs tests and
// single-instance deployments that can afford to lose context on restart.
type MemoryStore struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string][]Exchange
}

func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &MemoryStore{
		maxHistory: maxHistory,
		sessions:   make(map[string][]Exchange),
	}
}

func (s *MemoryStore) Append(_ context.Context, userID, userMessage, assistantResponse string) (string, error) {
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
	s.sessions[userID] = es
	return ex.ID, nil
}

func (s *MemoryStore) Recent(_ context.Context, userID string, k int) ([]Exchange, error) {
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

func (s *MemoryStore) Delete(_ context.Context, userID, exchangeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es := s.sessions[userID]
	for i, ex := range es {
		if ex.ID == exchangeID {
			s.sessions[userID] = append(es[:i:i], es[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions[userID])
	delete(s.sessions, userID)
	return n, nil
}
