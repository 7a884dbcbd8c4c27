package listing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
)

// LoadError is returned when a collection could not be refreshed. The
// collection keeps its previous records.
type LoadError struct {
	Entity  string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Entity, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MsgLoadFailed is shown when the failure carries no server message.
const MsgLoadFailed = "Impossible de charger les données."

// Fetcher retrieves the full collection from the backend.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

type Loader[T Keyed] struct {
	entity string
	coll   *Collection[T]
	fetch  Fetcher[T]
	logger zerolog.Logger
}

func NewLoader[T Keyed](entity string, coll *Collection[T], fetch Fetcher[T], logger zerolog.Logger) *Loader[T] {
	return &Loader[T]{entity: entity, coll: coll, fetch: fetch, logger: logger}
}

// Load refreshes the collection. On failure it sets the collection banner and
// returns a *LoadError without touching the records.
func (l *Loader[T]) Load(ctx context.Context) error {
	l.coll.SetLoading(true)
	defer l.coll.SetLoading(false)

	token := l.coll.LoadToken()
	items, err := l.fetch(ctx)
	if err != nil {
		l.coll.ReleaseLoad()
		msg := MsgLoadFailed
		if um := apiclient.UserMessage(err); um != apiclient.MsgUnknown {
			msg = um
		}
		l.coll.SetBanner(msg)
		l.logger.Warn().Err(err).Str("entity", l.entity).Msg("load failed, keeping previous records")
		return &LoadError{Entity: l.entity, Message: msg, Err: err}
	}

	applied := l.coll.ReplaceIfCurrent(items, token)
	l.logger.Debug().Str("entity", l.entity).Int("count", len(items)).Bool("deferred", !applied).Msg("collection loaded")
	return nil
}
