// Package board assembles one role dashboard: the loaded collection narrowed
// to what the actor may see, each row with its status badge, its resolved
// references and the actions the actor may take.
package board

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/listing"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/rolefilter"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/textsearch"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

// RefField is a foreign id carried by a record, shown under Field.
type RefField struct {
	Field string
	Kind  refresolver.Kind
	ID    int64
}

// Definition describes an entity type once; boards are built from it per actor.
type Definition[T lifecycle.Stateful[T, S], S ~string] struct {
	Entity  string
	Machine *lifecycle.Machine[S]
	Scope   func(auth.Role) rolefilter.Scope[T]
	Badge   func(S) string
	Refs    func(T) []RefField
	// Search returns the free-text fields matched by ?q=.
	Search func(T) []string
}

type Row[T any, S ~string] struct {
	Record     T                                `json:"record"`
	Badge      string                           `json:"badge"`
	References map[string]refresolver.Reference `json:"references,omitempty"`
	Actions    []lifecycle.Action[S]            `json:"actions"`
	Pending    bool                             `json:"pending,omitempty"`
}

type View[T any, S ~string] struct {
	Entity  string       `json:"entity"`
	Rows    []Row[T, S]  `json:"rows"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	HasMore bool         `json:"has_more"`
	Loading bool         `json:"loading"`
	Banner  string       `json:"banner,omitempty"`
	Badges  map[S]string `json:"badges"`
}

type Board[T lifecycle.Stateful[T, S], S ~string] struct {
	def    Definition[T, S]
	actor  auth.Actor
	coll   *listing.Collection[T]
	loader *listing.Loader[T]
	ctl    *lifecycle.Controller[T, S]
	refs   *refresolver.Resolver
	logger zerolog.Logger
}

func New[T lifecycle.Stateful[T, S], S ~string](
	def Definition[T, S],
	actor auth.Actor,
	fetch listing.Fetcher[T],
	patch lifecycle.PatchFunc[S],
	refs *refresolver.Resolver,
	logger zerolog.Logger,
) *Board[T, S] {
	coll := listing.NewCollection[T]()
	logger = logger.With().Str("entity", def.Entity).Logger()
	return &Board[T, S]{
		def:    def,
		actor:  actor,
		coll:   coll,
		loader: listing.NewLoader(def.Entity, coll, fetch, logger),
		ctl:    lifecycle.NewController(def.Machine, coll, patch, logger),
		refs:   refs,
		logger: logger,
	}
}

func (b *Board[T, S]) Name() string { return b.def.Entity }

func (b *Board[T, S]) Collection() *listing.Collection[T] { return b.coll }

func (b *Board[T, S]) Controller() *lifecycle.Controller[T, S] { return b.ctl }

// Visible reports whether the actor's role sees this entity at all.
func (b *Board[T, S]) Visible() bool {
	return b.def.Scope(b.actor.Role).Visible()
}

// Load refreshes the collection from the backend; see listing.Loader.
func (b *Board[T, S]) Load(ctx context.Context) error {
	if !b.Visible() {
		return nil
	}
	return b.loader.Load(ctx)
}

// Reload is Load under the scheduler's name.
func (b *Board[T, S]) Reload(ctx context.Context) error { return b.Load(ctx) }

// Records returns the loaded records the actor may see, in backend order.
func (b *Board[T, S]) Records() []T {
	return b.def.Scope(b.actor.Role).Apply(b.coll.Snapshot(), b.actor.EntityID)
}

// Get returns a visible record.
func (b *Board[T, S]) Get(id int64) (T, bool) {
	rec, ok := b.coll.Get(id)
	if !ok || !b.visible(rec) {
		var zero T
		return zero, false
	}
	return rec, true
}

func (b *Board[T, S]) visible(rec T) bool {
	return len(b.def.Scope(b.actor.Role).Apply([]T{rec}, b.actor.EntityID)) == 1
}

// Rows renders the visible records matching query. Unresolved references
// are returned as placeholders and resolved in the background.
func (b *Board[T, S]) Rows(query string) []Row[T, S] {
	records := b.Records()
	rows := make([]Row[T, S], 0, len(records))
	for _, rec := range records {
		if query != "" && !textsearch.Match(query, b.searchFields(rec)...) {
			continue
		}
		rows = append(rows, b.row(rec))
	}
	return rows
}

// View is one page of rows plus the dashboard state.
func (b *Board[T, S]) View(query string, p pagination.Params) View[T, S] {
	rows := b.Rows(query)
	badges := make(map[S]string)
	for _, s := range b.def.Machine.States() {
		badges[s] = b.def.Badge(s)
	}
	return View[T, S]{
		Entity:  b.def.Entity,
		Rows:    pagination.Slice(rows, p),
		Total:   len(rows),
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(len(rows)),
		Loading: b.coll.Loading(),
		Banner:  b.coll.Banner(),
		Badges:  badges,
	}
}

// Row renders one visible record.
func (b *Board[T, S]) Row(id int64) (Row[T, S], bool) {
	rec, ok := b.Get(id)
	if !ok {
		return Row[T, S]{}, false
	}
	return b.row(rec), true
}

// Transition applies target to a visible record; records outside the actor's
// scope are reported as not found.
func (b *Board[T, S]) Transition(ctx context.Context, id int64, target S) (Row[T, S], error) {
	if _, ok := b.Get(id); !ok {
		return Row[T, S]{}, &lifecycle.TransitionError{
			Entity: b.def.Entity, ID: id, To: string(target), Reason: lifecycle.ReasonNotFound,
		}
	}
	rec, err := b.ctl.Transition(ctx, b.actor, id, target)
	return b.row(rec), err
}

func (b *Board[T, S]) Banner() string { return b.coll.Banner() }

func (b *Board[T, S]) Dismiss() { b.coll.Dismiss() }

func (b *Board[T, S]) row(rec T) Row[T, S] {
	row := Row[T, S]{
		Record:  rec,
		Badge:   b.def.Badge(rec.State()),
		Actions: b.ctl.Actions(rec, b.actor),
		Pending: b.ctl.InFlight(rec.Key()),
	}
	if b.def.Refs != nil && b.refs != nil {
		fields := b.def.Refs(rec)
		if len(fields) > 0 {
			row.References = make(map[string]refresolver.Reference, len(fields))
			for _, f := range fields {
				if f.ID <= 0 {
					continue
				}
				row.References[f.Field] = b.refs.Lookup(f.Kind, f.ID)
			}
		}
	}
	return row
}

func (b *Board[T, S]) searchFields(rec T) []string {
	var fields []string
	if b.def.Search != nil {
		fields = append(fields, b.def.Search(rec)...)
	}
	fields = append(fields, b.def.Badge(rec.State()), string(rec.State()))
	if b.def.Refs != nil && b.refs != nil {
		for _, f := range b.def.Refs(rec) {
			if f.ID > 0 {
				fields = append(fields, b.refs.Lookup(f.Kind, f.ID).Display())
			}
		}
	}
	return fields
}
