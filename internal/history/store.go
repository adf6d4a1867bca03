package history

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Exchange is one persisted (message, response) pair for a user.
// Exchanges are immutable once created; ordering is by CreatedAt
// ascending with insertion order breaking ties.
type Exchange struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	CreatedAt         time.Time `json:"created_at"`
}

// Store keeps a bounded conversation history per user.
// After any mutating call returns, a user's history never exceeds the
// configured maximum; the oldest exchanges are evicted first.
// Implementations must be safe for concurrent use and must keep
// append-then-evict atomic per user.
type Store interface {
	// Append records a completed exchange and returns its id.
	Append(ctx context.Context, userID, userMessage, assistantResponse string) (string, error)
	// Recent returns up to k most recent exchanges in chronological
	// (oldest-first) order. A user with no history yields an empty slice.
	Recent(ctx context.Context, userID string, k int) ([]Exchange, error)
	// Delete removes one exchange if it exists and belongs to the user.
	// A missing id is not an error; the bool reports whether anything
	// was removed.
	Delete(ctx context.Context, userID, exchangeID string) (bool, error)
	// Clear removes all exchanges for the user and returns how many
	// were removed.
	Clear(ctx context.Context, userID string) (int, error)
}

// StorageError marks a persistence-layer failure (I/O error, lost
// connectivity, corrupted data). Callers distinguish it from generation
// failures via errors.As / IsStorageError.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("history storage: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErrf(format string, args ...any) error {
	return &StorageError{Err: fmt.Errorf(format, args...)}
}

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
