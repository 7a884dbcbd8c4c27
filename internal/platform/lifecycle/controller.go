package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/listing"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/metrics"
)

// Stateful is a record driven by a Machine[S].
type Stateful[T any, S ~string] interface {
	listing.Keyed
	State() S
	WithState(S) T
	Assignee(auth.Role) (int64, bool)
}

// PatchFunc sends the partial status update to the backend.
type PatchFunc[S ~string] func(ctx context.Context, id int64, target S) error

// Controller applies transitions to records of a shared collection. A record
// is patched locally only after the backend acknowledged the change, and at
// most one transition per record is in flight.
type Controller[T Stateful[T, S], S ~string] struct {
	machine *Machine[S]
	coll    *listing.Collection[T]
	patch   PatchFunc[S]
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[int64]S
}

func NewController[T Stateful[T, S], S ~string](m *Machine[S], coll *listing.Collection[T], patch PatchFunc[S], logger zerolog.Logger) *Controller[T, S] {
	return &Controller[T, S]{
		machine:  m,
		coll:     coll,
		patch:    patch,
		logger:   logger,
		inflight: map[int64]S{},
	}
}

func (c *Controller[T, S]) Machine() *Machine[S] { return c.machine }

// Actions lists the actions to offer actor on rec. Nothing is offered while a
// transition of rec is in flight.
func (c *Controller[T, S]) Actions(rec T, actor auth.Actor) []Action[S] {
	if c.InFlight(rec.Key()) {
		return []Action[S]{}
	}
	return c.machine.Actions(rec.State(), actor, rec.Assignee)
}

// InFlight reports whether a transition of record id awaits the backend.
func (c *Controller[T, S]) InFlight(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

// Transition moves record id to target. A record already in target is
// returned unchanged without a backend call, provided actor could have moved
// it there. Refusals are *TransitionError;
// backend failures are returned as is and also set the collection banner.
func (c *Controller[T, S]) Transition(ctx context.Context, actor auth.Actor, id int64, target S) (T, error) {
	entity := c.machine.Entity()
	rec, ok := c.coll.Get(id)
	if !ok {
		var zero T
		metrics.TransitionTotals.WithLabelValues(entity, string(ReasonNotFound)).Inc()
		return zero, &TransitionError{Entity: entity, ID: id, To: string(target), Reason: ReasonNotFound}
	}
	if rec.State() == target {
		if err := c.machine.CheckSettled(id, target, actor, rec.Assignee); err != nil {
			var te *TransitionError
			if errors.As(err, &te) {
				metrics.TransitionTotals.WithLabelValues(entity, string(te.Reason)).Inc()
			}
			return rec, err
		}
		return rec, nil
	}

	c.mu.Lock()
	if _, busy := c.inflight[id]; busy {
		c.mu.Unlock()
		metrics.TransitionTotals.WithLabelValues(entity, string(ReasonInFlight)).Inc()
		return rec, &TransitionError{Entity: entity, ID: id, From: string(rec.State()), To: string(target), Reason: ReasonInFlight}
	}
	if err := c.machine.Check(id, rec.State(), target, actor, rec.Assignee); err != nil {
		c.mu.Unlock()
		var te *TransitionError
		if errors.As(err, &te) {
			metrics.TransitionTotals.WithLabelValues(entity, string(te.Reason)).Inc()
		}
		return rec, err
	}
	c.inflight[id] = target
	c.mu.Unlock()

	c.coll.BeginEdit()
	defer func() {
		c.coll.EndEdit()
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
	}()

	if err := c.patch(ctx, id, target); err != nil {
		metrics.TransitionTotals.WithLabelValues(entity, "backend_error").Inc()
		c.coll.SetBanner(apiclient.UserMessage(err))
		c.logger.Warn().Err(err).
			Str("entity", entity).
			Int64("id", id).
			Str("from", string(rec.State())).
			Str("to", string(target)).
			Str("actor", actor.CIN).
			Msg("transition rejected by backend")
		return rec, err
	}

	cur, ok := c.coll.Get(id)
	if !ok {
		cur = rec
	}
	updated := cur.WithState(target)
	c.coll.Patch(updated)
	metrics.TransitionTotals.WithLabelValues(entity, "ok").Inc()
	c.logger.Info().
		Str("entity", entity).
		Int64("id", id).
		Str("from", string(rec.State())).
		Str("to", string(target)).
		Str("actor", actor.CIN).
		Msg("status changed")
	return updated, nil
}
