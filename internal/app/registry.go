package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/metrics"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/session"
)

// Registry maps session ids to open workspaces.
type Registry struct {
	deps   Deps
	logger zerolog.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:       deps,
		logger:     deps.Logger,
		workspaces: map[string]*Workspace{},
	}
}

// Open returns the workspace of s, creating it on first use.
func (r *Registry) Open(s *session.Session) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.workspaces[s.ID]; ok {
		w.Touch()
		return w
	}
	w := NewWorkspace(r.deps, s)
	r.workspaces[s.ID] = w
	metrics.Workspaces.Set(float64(len(r.workspaces)))
	r.logger.Debug().Str("session_id", s.ID).Msg("workspace opened")
	return w
}

func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[id]
	if ok {
		w.Touch()
	}
	return w, ok
}

// Close tears down the workspace of session id, if any.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	w, ok := r.workspaces[id]
	delete(r.workspaces, id)
	metrics.Workspaces.Set(float64(len(r.workspaces)))
	r.mu.Unlock()
	if ok {
		w.Close()
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = map[string]*Workspace{}
	metrics.Workspaces.Set(0)
	r.mu.Unlock()
	for _, w := range all {
		w.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Evict closes workspaces unused for longer than idle and returns how many
// were closed. Their sessions stay in the store and reopen on the next request.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	r.mu.Lock()
	var stale []*Workspace
	for id, w := range r.workspaces {
		if w.IdleSince().Before(cutoff) {
			stale = append(stale, w)
			delete(r.workspaces, id)
		}
	}
	metrics.Workspaces.Set(float64(len(r.workspaces)))
	r.mu.Unlock()
	for _, w := range stale {
		w.Close()
	}
	return len(stale)
}

func (r *Registry) snapshot() []*Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Workspace, 0, len(r.workspaces))
	for _, w := range r.workspaces {
		out = append(out, w)
	}
	return out
}

func (r *Registry) Name() string { return "workspaces" }

// Reload refreshes every open workspace one after the other.
func (r *Registry) Reload(ctx context.Context) error {
	var errs []error
	for _, w := range r.snapshot() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.Reload(ctx); err != nil {
			r.logger.Warn().Err(err).Str("session_id", w.SessionID).Msg("workspace reload failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
