package cache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/freshcart/basket/internal/auth"
)

// SessionStore keeps auth values in the session table.
type SessionStore struct {
	db *DB
}

// SessionStore returns an auth.Store backed by the cache database.
func (d *DB) SessionStore() *SessionStore {
	return &SessionStore{db: d}
}

func (s *SessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *SessionStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.db.ExecContext(ctx, `INSERT OR REPLACE INTO session (key, value) VALUES (?, ?)`,
		key, string(value))
	return err
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, key)
	return err
}
