// Package session holds the authenticated application state: the backend
// token and the acting user. It is hydrated from a Store at startup and
// cleared on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
)

// TokenKey is the well-known key the backend token is persisted under.
const TokenKey = "hopital_token"

var (
	ErrNoSession          = errors.New("no active session")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Session struct {
	ID        string     `json:"id"`
	Token     string     `json:"hopital_token"`
	Actor     auth.Actor `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Authenticator exchanges credentials with the backend.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (token string, actor auth.Actor, err error)
	Logout(ctx context.Context, token string) error
}

type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type Manager struct {
	store  Store
	authn  Authenticator
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.RWMutex
	current *Session
}

func NewManager(store Store, authn Authenticator, ttl time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{store: store, authn: authn, ttl: ttl, now: time.Now, logger: logger}
}

// Hydrate restores session id from the store. An expired token is discarded
// and ErrNoSession returned.
func (m *Manager) Hydrate(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Token == "" || !s.Actor.Role.Valid() {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNoSession
	}
	if auth.TokenExpired(s.Token, m.now()) {
		m.logger.Info().Str("session_id", id).Msg("persisted token expired, discarding")
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn().Err(err).Str("session_id", id).Msg("failed to delete expired session")
		}
		return nil, ErrNoSession
	}
	m.setCurrent(s)
	return s, nil
}

// Login authenticates against the backend and persists the new session.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*Session, error) {
	token, actor, err := m.authn.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("login: backend returned no token")
	}
	s := &Session{
		ID:        uuid.New().String(),
		Token:     token,
		Actor:     actor,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	m.logger.Info().Str("session_id", s.ID).Str("role", actor.Role.String()).Msg("session opened")
	m.setCurrent(s)
	return s, nil
}

// Logout tells the backend on a best-effort basis, then clears the session
// whatever the backend answered.
func (m *Manager) Logout(ctx context.Context, id string) error {
	s, err := m.store.Load(ctx, id)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	if s != nil && s.Token != "" {
		if err := m.authn.Logout(ctx, s.Token); err != nil {
			m.logger.Warn().Err(err).Str("session_id", id).Msg("backend logout failed, clearing locally")
		}
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.mu.Lock()
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	m.mu.Unlock()
	return nil
}

// Current is the session last hydrated or opened by this manager.
func (m *Manager) Current() (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current != nil
}

// Token implements apiclient.TokenSource for the current session.
func (m *Manager) Token() string {
	if s, ok := m.Current(); ok {
		return s.Token
	}
	return ""
}

func (m *Manager) setCurrent(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}
