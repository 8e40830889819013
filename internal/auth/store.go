package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CredentialKey is the store key for the persisted credential.
const CredentialKey = "credential"

// ErrNotFound is returned by a Store when the key has no value.
var ErrNotFound = errors.New("not found")

// Store is a key/value store for serialized session data.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// savedCredential is the JSON blob written to the store.
type savedCredential struct {
	User    User      `json:"user"`
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

func encodeCredential(u User, token string, now time.Time) ([]byte, error) {
	return json.Marshal(savedCredential{User: u, Token: token, SavedAt: now.UTC()})
}

// decodeCredential parses a stored blob and checks it is usable. maxAge of
// zero disables the age check.
func decodeCredential(data []byte, now time.Time, maxAge time.Duration) (Grant, error) {
	var saved savedCredential
	if err := json.Unmarshal(data, &saved); err != nil {
		return Grant{}, fmt.Errorf("decoding credential: %w", err)
	}
	if strings.TrimSpace(saved.User.Name) == "" || strings.TrimSpace(saved.Token) == "" {
		return Grant{}, errors.New("credential is missing user or token")
	}
	if maxAge > 0 && !saved.SavedAt.IsZero() && now.Sub(saved.SavedAt) > maxAge {
		return Grant{}, fmt.Errorf("credential expired (saved %s)", saved.SavedAt.Format(time.RFC3339))
	}
	return Grant{User: saved.User, Token: saved.Token}, nil
}

// FileStore keeps one file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Put.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *FileStore) Put(_ context.Context, key string, value []byte) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}
	// Write then rename so a crash never leaves a half-written credential.
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStore is a Store held in memory, for tests and --store=memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
