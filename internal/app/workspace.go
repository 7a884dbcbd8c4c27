// Package app holds the per-session state of the gateway: one workspace per
// authenticated session with its backend client, reference resolver and role
// dashboards.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/appointment"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/diagnostic"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/signalement"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/stock"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/user"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/cache"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/session"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/websocket"
)

// Deps are shared by every workspace.
type Deps struct {
	// Client is the backend client without a session token.
	Client       *apiclient.Client
	Validator    *validation.Validator
	Shared       cache.Cache
	ReferenceTTL time.Duration
	// Events receives reference and reload notifications; nil disables them.
	Events *websocket.Hub
	Logger zerolog.Logger
}

// dashboard is one role board as seen by the reload loop.
type dashboard struct {
	name    string
	visible func() bool
	loaded  func() bool
	load    func(ctx context.Context) error
}

type Workspace struct {
	SessionID string
	Actor     auth.Actor
	CreatedAt time.Time

	Refs         *refresolver.Resolver
	Appointments *appointment.Desk
	Diagnostics  *diagnostic.Desk
	Signalements *signalement.Desk
	Users        *user.Service
	Stock        *stock.Service

	ctx      context.Context
	cancel   context.CancelFunc
	boards   []dashboard
	events   *websocket.Hub
	lastUsed atomic.Int64
	logger   zerolog.Logger
}

// NewWorkspace builds the workspace of s. Every backend call it makes carries
// the session's backend token.
func NewWorkspace(deps Deps, s *session.Session) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	logger := deps.Logger.With().
		Str("session_id", s.ID).
		Str("cin", s.Actor.CIN).
		Str("role", s.Actor.Role.String()).
		Logger()

	client := deps.Client.WithTokens(apiclient.StaticToken(s.Token))
	stockRepo := stock.NewHTTPRepo(client)
	directory := user.NewDirectory(client)
	fetchers := refresolver.Mux{refresolver.KindProduit: stock.NewCatalog(stockRepo)}
	for _, k := range directory.Kinds() {
		fetchers[k] = directory
	}

	refs := refresolver.New(ctx, fetchers, refresolver.Options{
		Shared:    deps.Shared,
		SharedTTL: deps.ReferenceTTL,
		Logger:    logger,
		OnResolved: func(ref refresolver.Reference) {
			logger.Debug().Str("kind", string(ref.Kind)).Int64("id", ref.ID).Bool("failed", ref.Failed).Msg("reference settled")
			if deps.Events != nil {
				deps.Events.Broadcast(s.ID, websocket.NewEvent(s.ID, websocket.EventReference, string(ref.Kind), ref.ID, referenceEvent{
					Display: ref.Display(),
					Failed:  ref.Failed,
				}))
			}
		},
	})

	w := &Workspace{
		SessionID: s.ID,
		Actor:     s.Actor,
		CreatedAt: time.Now(),
		Refs:      refs,
		ctx:       ctx,
		cancel:    cancel,
		events:    deps.Events,
		logger:    logger,
	}
	w.Appointments = appointment.NewDesk(s.Actor, appointment.NewHTTPRepo(client), deps.Validator, refs, logger)
	w.Diagnostics = diagnostic.NewDesk(s.Actor, diagnostic.NewHTTPRepo(client), deps.Validator, refs, logger)
	w.Signalements = signalement.NewDesk(s.Actor, signalement.NewHTTPRepo(client), deps.Validator, refs, logger)
	w.Users = user.NewService(user.NewHTTPRepo(client), deps.Validator, logger)
	w.Stock = stock.NewService(s.Actor, stockRepo, deps.Validator, refs, logger)

	w.boards = []dashboard{
		{appointment.Entity, w.Appointments.Visible, w.Appointments.Collection().Loaded, w.Appointments.Load},
		{diagnostic.Entity, w.Diagnostics.Visible, w.Diagnostics.Collection().Loaded, w.Diagnostics.Load},
		{signalement.Entity, w.Signalements.Visible, w.Signalements.Collection().Loaded, w.Signalements.Load},
	}
	w.Touch()
	return w
}

// Touch records activity on the workspace.
func (w *Workspace) Touch() { w.lastUsed.Store(time.Now().UnixNano()) }

// IdleSince is the time of the last activity.
func (w *Workspace) IdleSince() time.Time { return time.Unix(0, w.lastUsed.Load()) }

// Closed reports whether Close was called.
func (w *Workspace) Closed() bool { return w.ctx.Err() != nil }

// Context is cancelled when the workspace closes. Work started on behalf of
// the workspace derives from it.
func (w *Workspace) Context() context.Context { return w.ctx }

func (w *Workspace) Name() string { return "workspace:" + w.SessionID }

// Reload refreshes every dashboard already opened by the user. Closing the
// workspace aborts the reload.
func (w *Workspace) Reload(ctx context.Context) error {
	if w.Closed() {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()

	if n := w.Refs.ForgetFailures(); n > 0 {
		w.logger.Debug().Int("count", n).Msg("retrying failed references")
	}
	var errs []error
	for _, b := range w.boards {
		if !b.visible() || !b.loaded() {
			continue
		}
		if err := b.load(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
			continue
		}
		w.notify(websocket.EventReload, b.name)
	}
	return errors.Join(errs...)
}

// LoadAll loads every dashboard visible to the actor.
func (w *Workspace) LoadAll(ctx context.Context) error {
	var errs []error
	for _, b := range w.boards {
		if !b.visible() {
			continue
		}
		if err := b.load(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close cancels background work and waits for pending reference lookups.
func (w *Workspace) Close() {
	w.cancel()
	w.Refs.Wait()
	if w.events != nil {
		w.events.CloseTopic(w.SessionID)
	}
	w.logger.Debug().Msg("workspace closed")
}

// referenceEvent is the payload of a reference notification.
type referenceEvent struct {
	Display string `json:"display"`
	Failed  bool   `json:"failed,omitempty"`
}

func (w *Workspace) notify(typ, entity string) {
	if w.events == nil {
		return
	}
	w.events.Broadcast(w.SessionID, websocket.NewEvent(w.SessionID, typ, entity, 0, nil))
}
