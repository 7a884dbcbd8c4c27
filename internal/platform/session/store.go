package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/cache"
)

// FileStore keeps a single session in a JSON file, the token under
// TokenKey. It backs the terminal commands; the id argument is ignored.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context, _ string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Save writes the file with owner-only permissions. ttl is not enforced; the
// token's own expiry is checked on hydrate.
func (f *FileStore) Save(_ context.Context, s *Session, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Delete(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CacheStore keeps sessions in a cache.Cache, one key per session id.
type CacheStore struct {
	c      cache.Cache
	prefix string
}

// NewRedisStore stores sessions in redis under "session:<id>".
func NewRedisStore(rc *cache.RedisCache) *CacheStore {
	return &CacheStore{c: rc, prefix: "session:"}
}

// NewMemoryStore is an in-process store for tests and single-instance runs.
func NewMemoryStore() *CacheStore {
	return &CacheStore{c: cache.NewMemory(), prefix: "session:"}
}

func (s *CacheStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, ok, err := s.c.Get(ctx, s.prefix+id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, ErrNoSession
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *CacheStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, s.prefix+sess.ID, raw, ttl)
}

func (s *CacheStore) Delete(ctx context.Context, id string) error {
	return s.c.Delete(ctx, s.prefix+id)
}
