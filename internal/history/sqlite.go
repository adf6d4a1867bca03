package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists histories in a SQLite database, one row per
// exchange. The insert-count-evict sequence runs inside a single
// transaction, so the per-user bound holds under concurrent appends.
// A lost connection is re-established lazily once per call before the
// error is surfaced.
type SQLiteStore struct {
	path       string
	maxHistory int
	mu         sync.Mutex
	db         *sql.DB
}

func NewSQLiteStore(path string, maxHistory int) (*SQLiteStore, error) {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	s := &SQLiteStore{path: path, maxHistory: maxHistory}
	db, err := openDB(path)
	if err != nil {
		return nil, storageErrf("open db: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, storageErrf("init schema: %w", err)
	}
	s.db = db
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db at %s: %w", path, err)
	}
	return db, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS exchanges (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			assistant_response TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_exchanges_user ON exchanges(user_id, created_at, seq);
	`)
	return err
}

// reconnect drops the current handle and opens a fresh one. Called at
// most once per failed operation.
func (s *SQLiteStore) reconnect() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	db, err := openDB(s.path)
	if err != nil {
		return err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

// withReconnect runs op, retrying once behind a reconnect when the
// database looks unreachable rather than merely busy.
func (s *SQLiteStore) withReconnect(ctx context.Context, op func(*sql.DB) error) error {
	err := op(s.db)
	if err == nil {
		return nil
	}
	if pingErr := s.db.PingContext(ctx); pingErr == nil {
		return err
	}
	if rcErr := s.reconnect(); rcErr != nil {
		return fmt.Errorf("%w (reconnect failed: %v)", err, rcErr)
	}
	return op(s.db)
}

func (s *SQLiteStore) Append(ctx context.Context, userID, userMessage, assistantResponse string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	now := time.Now().UTC().UnixNano()
	err := s.withReconnect(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exchanges (id, user_id, user_message, assistant_response, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, userID, userMessage, assistantResponse, now,
		); err != nil {
			return fmt.Errorf("insert: %w", err)
		}

		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM exchanges WHERE user_id = ?`, userID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		if over := count - s.maxHistory; over > 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM exchanges WHERE seq IN (
					SELECT seq FROM exchanges WHERE user_id = ?
					ORDER BY created_at ASC, seq ASC LIMIT ?
				)`, userID, over,
			); err != nil {
				return fmt.Errorf("evict: %w", err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", storageErrf("append: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, userID string, k int) ([]Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k <= 0 {
		return []Exchange{}, nil
	}
	var out []Exchange
	err := s.withReconnect(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, user_id, user_message, assistant_response, created_at FROM exchanges
			 WHERE user_id = ? ORDER BY created_at DESC, seq DESC LIMIT ?`, userID, k)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var ex Exchange
			var ns int64
			if err := rows.Scan(&ex.ID, &ex.UserID, &ex.UserMessage, &ex.AssistantResponse, &ns); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			ex.CreatedAt = time.Unix(0, ns).UTC()
			out = append(out, ex)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storageErrf("recent: %w", err)
	}
	// Rows came newest-first; callers expect chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if out == nil {
		out = []Exchange{}
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, exchangeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted bool
	err := s.withReconnect(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`DELETE FROM exchanges WHERE user_id = ? AND id = ?`, userID, exchangeID)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, storageErrf("delete: %w", err)
	}
	return deleted, nil
}

func (s *SQLiteStore) Clear(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int
	err := s.withReconnect(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`DELETE FROM exchanges WHERE user_id = ?`, userID)
		if err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		removed = int(n)
		return nil
	})
	if err != nil {
		return 0, storageErrf("clear: %w", err)
	}
	return removed, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)
