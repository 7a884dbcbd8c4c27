// Package refresolver turns foreign ids (patient, médecin, infirmier,
// magasinier, produit) into display records. Lookups never block rendering:
// an unresolved id shows a placeholder while a single fetch per id runs in the
// background.
package refresolver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/cache"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/metrics"
)

type Kind string

const (
	KindPatient    Kind = "patient"
	KindMedecin    Kind = "medecin"
	KindInfirmier  Kind = "infirmier"
	KindMagasinier Kind = "magasinier"
	KindProduit    Kind = "produit"
)

var kindLabels = map[Kind]string{
	KindPatient:    "Patient",
	KindMedecin:    "Médecin",
	KindInfirmier:  "Infirmier",
	KindMagasinier: "Magasinier",
	KindProduit:    "Produit",
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindLabels[k]; !ok {
		return "", fmt.Errorf("unknown reference kind %q", s)
	}
	return k, nil
}

func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// Placeholder is the text shown for an unresolved reference.
func Placeholder(k Kind, id int64) string {
	return fmt.Sprintf("%s #%d", k.Label(), id)
}

// Reference is the display record of a foreign id.
type Reference struct {
	Kind     Kind   `json:"kind"`
	ID       int64  `json:"id"`
	Name     string `json:"name,omitempty"`
	Code     string `json:"code,omitempty"`
	Resolved bool   `json:"resolved"`
	// Failed marks a lookup that errored; it is only retried on demand.
	Failed bool `json:"failed,omitempty"`
}

// Display is the resolved name and code, or the placeholder.
func (r Reference) Display() string {
	if !r.Resolved || r.Name == "" {
		return Placeholder(r.Kind, r.ID)
	}
	if r.Code != "" {
		return r.Name + " (" + r.Code + ")"
	}
	return r.Name
}

// Fetcher loads one reference from the backend.
type Fetcher interface {
	FetchReference(ctx context.Context, kind Kind, id int64) (Reference, error)
}

type FetcherFunc func(ctx context.Context, kind Kind, id int64) (Reference, error)

func (f FetcherFunc) FetchReference(ctx context.Context, kind Kind, id int64) (Reference, error) {
	return f(ctx, kind, id)
}

// Mux routes each kind to its own fetcher.
type Mux map[Kind]Fetcher

func (m Mux) FetchReference(ctx context.Context, kind Kind, id int64) (Reference, error) {
	f, ok := m[kind]
	if !ok {
		return Reference{}, fmt.Errorf("no fetcher for %s references", kind)
	}
	return f.FetchReference(ctx, kind, id)
}

type Options struct {
	// Shared is an optional second level cache shared between sessions.
	Shared    cache.Cache
	SharedTTL time.Duration
	// OnResolved is called after a background lookup settles, successfully or not.
	OnResolved func(Reference)
	Logger     zerolog.Logger
}

type key struct {
	kind Kind
	id   int64
}

func (k key) String() string { return fmt.Sprintf("%s:%d", k.kind, k.id) }

type Resolver struct {
	base    context.Context
	fetcher Fetcher
	opts    Options
	group   singleflight.Group
	wg      sync.WaitGroup

	mu      sync.Mutex
	entries map[key]Reference
	failed  map[key]error
	pending map[key]bool
}

// New creates a resolver whose background lookups run under ctx; cancelling
// ctx stops them.
func New(ctx context.Context, fetcher Fetcher, opts Options) *Resolver {
	if opts.Shared == nil {
		opts.Shared = cache.NewNoop()
	}
	if opts.SharedTTL <= 0 {
		opts.SharedTTL = 10 * time.Minute
	}
	return &Resolver{
		base:    ctx,
		fetcher: fetcher,
		opts:    opts,
		entries: map[key]Reference{},
		failed:  map[key]error{},
		pending: map[key]bool{},
	}
}

// Lookup returns the cached reference or a placeholder, starting a background
// fetch if none is running and the id has not failed before.
func (r *Resolver) Lookup(kind Kind, id int64) Reference {
	k := key{kind, id}
	r.mu.Lock()
	if ref, ok := r.entries[k]; ok {
		r.mu.Unlock()
		return ref
	}
	placeholder := Reference{Kind: kind, ID: id}
	if _, failed := r.failed[k]; failed {
		r.mu.Unlock()
		placeholder.Failed = true
		return placeholder
	}
	if r.pending[k] {
		r.mu.Unlock()
		return placeholder
	}
	if r.base.Err() != nil {
		r.mu.Unlock()
		return placeholder
	}
	r.pending[k] = true
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		ref, err := r.Resolve(r.base, kind, id)
		r.mu.Lock()
		delete(r.pending, k)
		r.mu.Unlock()
		if err != nil {
			ref = Reference{Kind: kind, ID: id, Failed: true}
		}
		if r.opts.OnResolved != nil {
			r.opts.OnResolved(ref)
		}
	}()
	return placeholder
}

// Resolve returns the reference, fetching it if needed. Concurrent calls for
// the same id share one fetch, which runs under the resolver's context: ctx
// only bounds how long this caller waits, and giving up does not fail the
// lookup for the others.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, id int64) (Reference, error) {
	k := key{kind, id}
	r.mu.Lock()
	if ref, ok := r.entries[k]; ok {
		r.mu.Unlock()
		return ref, nil
	}
	r.mu.Unlock()

	ch := r.group.DoChan(k.String(), func() (interface{}, error) {
		return r.fetch(k)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Reference{Kind: kind, ID: id, Failed: true}, res.Err
		}
		return res.Val.(Reference), nil
	case <-ctx.Done():
		return Reference{Kind: kind, ID: id}, ctx.Err()
	}
}

// fetch performs one shared lookup and records its outcome. A lookup cut
// short by the resolver shutting down is not recorded as failed.
func (r *Resolver) fetch(k key) (Reference, error) {
	r.mu.Lock()
	ref, ok := r.entries[k]
	r.mu.Unlock()
	if ok {
		return ref, nil
	}

	ref, ok = r.fromShared(r.base, k)
	if !ok {
		var err error
		ref, err = r.fetcher.FetchReference(r.base, k.kind, k.id)
		if err != nil {
			metrics.ReferenceLookups.WithLabelValues(string(k.kind), "error").Inc()
			r.mu.Lock()
			if r.base.Err() == nil {
				r.failed[k] = err
			}
			r.mu.Unlock()
			r.opts.Logger.Debug().Err(err).Str("kind", string(k.kind)).Int64("id", k.id).Msg("reference lookup failed")
			return Reference{}, err
		}
		metrics.ReferenceLookups.WithLabelValues(string(k.kind), "ok").Inc()
		ref.Kind, ref.ID, ref.Resolved, ref.Failed = k.kind, k.id, true, false
		r.toShared(r.base, k, ref)
	}

	r.mu.Lock()
	r.entries[k] = ref
	delete(r.failed, k)
	r.mu.Unlock()
	return ref, nil
}

// Retry forgets a failed lookup and starts it again.
func (r *Resolver) Retry(kind Kind, id int64) Reference {
	k := key{kind, id}
	r.mu.Lock()
	delete(r.failed, k)
	r.mu.Unlock()
	return r.Lookup(kind, id)
}

// ForgetFailures lets every failed lookup be attempted again on its next
// render.
func (r *Resolver) ForgetFailures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.failed)
	clear(r.failed)
	return n
}

// Prime seeds the cache with references already known from a loaded list.
func (r *Resolver) Prime(refs ...Reference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		if ref.Name == "" {
			continue
		}
		ref.Resolved, ref.Failed = true, false
		k := key{ref.Kind, ref.ID}
		r.entries[k] = ref
		delete(r.failed, k)
	}
}

// Invalidate drops the cached entry for one id.
func (r *Resolver) Invalidate(kind Kind, id int64) {
	k := key{kind, id}
	r.mu.Lock()
	delete(r.entries, k)
	delete(r.failed, k)
	r.mu.Unlock()
	_ = r.opts.Shared.Delete(context.WithoutCancel(r.base), sharedKey(k))
}

// Wait blocks until background lookups started so far have settled.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

func sharedKey(k key) string { return "ref:" + k.String() }

func (r *Resolver) fromShared(ctx context.Context, k key) (Reference, bool) {
	raw, ok, err := r.opts.Shared.Get(ctx, sharedKey(k))
	if err != nil || !ok {
		return Reference{}, false
	}
	var ref Reference
	if err := json.Unmarshal(raw, &ref); err != nil || !ref.Resolved {
		return Reference{}, false
	}
	return ref, true
}

func (r *Resolver) toShared(ctx context.Context, k key, ref Reference) {
	raw, err := json.Marshal(ref)
	if err != nil {
		return
	}
	if err := r.opts.Shared.Set(ctx, sharedKey(k), raw, r.opts.SharedTTL); err != nil {
		r.opts.Logger.Warn().Err(err).Str("key", sharedKey(k)).Msg("shared reference cache write failed")
	}
}
