package refresolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/cache"
)

type countingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	fail    atomic.Bool
}

func (f *countingFetcher) FetchReference(ctx context.Context, kind Kind, id int64) (Reference, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return Reference{}, ctx.Err()
		}
	}
	if f.fail.Load() {
		return Reference{}, errors.New("backend down")
	}
	return Reference{Name: "Dr. Alami", Code: "M42"}, nil
}

func TestPlaceholder(t *testing.T) {
	if got := Placeholder(KindMedecin, 42); got != "Médecin #42" {
		t.Errorf("expected 'Médecin #42', got %q", got)
	}
	if got := Placeholder(KindProduit, 3); got != "Produit #3" {
		t.Errorf("expected 'Produit #3', got %q", got)
	}
}

func TestReference_Display(t *testing.T) {
	unresolved := Reference{Kind: KindPatient, ID: 7}
	if got := unresolved.Display(); got != "Patient #7" {
		t.Errorf("unresolved: got %q", got)
	}
	named := Reference{Kind: KindPatient, ID: 7, Name: "Sara", Resolved: true}
	if got := named.Display(); got != "Sara" {
		t.Errorf("named: got %q", got)
	}
	coded := Reference{Kind: KindMedecin, ID: 1, Name: "Dr. Alami", Code: "M42", Resolved: true}
	if got := coded.Display(); got != "Dr. Alami (M42)" {
		t.Errorf("coded: got %q", got)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("infirmier"); err != nil || k != KindInfirmier {
		t.Errorf("expected infirmier, got %v %v", k, err)
	}
	if _, err := ParseKind("pharmacien"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestResolver_LookupDeduplicates(t *testing.T) {
	f := &countingFetcher{release: make(chan struct{})}
	var settled atomic.Int32
	r := New(context.Background(), f, Options{
		OnResolved: func(Reference) { settled.Add(1) },
		Logger:     zerolog.Nop(),
	})

	// five rows reference the same médecin
	for i := 0; i < 5; i++ {
		ref := r.Lookup(KindMedecin, 42)
		if ref.Resolved {
			t.Fatal("expected placeholder before the fetch completes")
		}
		if ref.Display() != "Médecin #42" {
			t.Errorf("expected placeholder text, got %q", ref.Display())
		}
	}
	close(f.release)
	r.Wait()

	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
	if got := settled.Load(); got != 1 {
		t.Errorf("expected 1 re-render callback, got %d", got)
	}
	ref := r.Lookup(KindMedecin, 42)
	if !ref.Resolved || ref.Display() != "Dr. Alami (M42)" {
		t.Errorf("expected resolved reference, got %+v", ref)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("cached lookup should not fetch, got %d calls", got)
	}
}

func TestResolver_ResolveConcurrentSharesFetch(t *testing.T) {
	f := &countingFetcher{release: make(chan struct{})}
	r := New(context.Background(), f, Options{Logger: zerolog.Nop()})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), KindPatient, 9); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

func TestResolver_FailureIsStickyUntilRetry(t *testing.T) {
	f := &countingFetcher{}
	f.fail.Store(true)
	var last atomic.Value
	r := New(context.Background(), f, Options{
		OnResolved: func(ref Reference) { last.Store(ref) },
		Logger:     zerolog.Nop(),
	})

	r.Lookup(KindMagasinier, 5)
	r.Wait()
	if ref, _ := last.Load().(Reference); !ref.Failed {
		t.Errorf("expected failed reference in callback, got %+v", ref)
	}

	ref := r.Lookup(KindMagasinier, 5)
	r.Wait()
	if !ref.Failed || ref.Display() != "Magasinier #5" {
		t.Errorf("expected failed placeholder, got %+v", ref)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("failed lookup must not refetch, got %d calls", got)
	}

	f.fail.Store(false)
	r.Retry(KindMagasinier, 5)
	r.Wait()
	if got := f.calls.Load(); got != 2 {
		t.Errorf("expected retry to fetch once more, got %d calls", got)
	}
	if ref := r.Lookup(KindMagasinier, 5); !ref.Resolved {
		t.Errorf("expected resolved after retry, got %+v", ref)
	}
}

func TestResolver_Prime(t *testing.T) {
	f := &countingFetcher{}
	r := New(context.Background(), f, Options{Logger: zerolog.Nop()})
	r.Prime(Reference{Kind: KindProduit, ID: 3, Name: "Paracétamol"}, Reference{Kind: KindProduit, ID: 4})

	if ref := r.Lookup(KindProduit, 3); !ref.Resolved || ref.Name != "Paracétamol" {
		t.Errorf("expected primed reference, got %+v", ref)
	}
	r.Wait()
	if got := f.calls.Load(); got != 0 {
		t.Errorf("primed lookup should not fetch, got %d", got)
	}
}

func TestResolver_SharedCache(t *testing.T) {
	shared := cache.NewMemory()
	f1 := &countingFetcher{}
	r1 := New(context.Background(), f1, Options{Shared: shared, Logger: zerolog.Nop()})
	if _, err := r1.Resolve(context.Background(), KindMedecin, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f2 := &countingFetcher{}
	f2.fail.Store(true)
	r2 := New(context.Background(), f2, Options{Shared: shared, Logger: zerolog.Nop()})
	ref, err := r2.Resolve(context.Background(), KindMedecin, 42)
	if err != nil {
		t.Fatalf("expected shared hit, got %v", err)
	}
	if ref.Name != "Dr. Alami" {
		t.Errorf("expected shared name, got %q", ref.Name)
	}
	if got := f2.calls.Load(); got != 0 {
		t.Errorf("expected no fetch on shared hit, got %d", got)
	}
}

func TestResolver_CancelledBaseStopsLookups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &countingFetcher{}
	var called atomic.Bool
	r := New(ctx, f, Options{OnResolved: func(Reference) { called.Store(true) }, Logger: zerolog.Nop()})
	cancel()

	ref := r.Lookup(KindPatient, 1)
	r.Wait()
	if ref.Resolved {
		t.Error("expected placeholder")
	}
	if f.calls.Load() != 0 || called.Load() {
		t.Error("closed resolver must not fetch or call back")
	}
}

func TestMux_RoutesByKind(t *testing.T) {
	var got []Kind
	f := FetcherFunc(func(_ context.Context, kind Kind, id int64) (Reference, error) {
		got = append(got, kind)
		return Reference{Name: "x"}, nil
	})
	m := Mux{KindPatient: f, KindProduit: f}

	if _, err := m.FetchReference(context.Background(), KindProduit, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.FetchReference(context.Background(), KindMagasinier, 1); err == nil {
		t.Error("expected an error for an unrouted kind")
	}
	if len(got) != 1 || got[0] != KindProduit {
		t.Errorf("unexpected routing %v", got)
	}
}

func TestResolver_ForgetFailures(t *testing.T) {
	f := &countingFetcher{}
	f.fail.Store(true)
	r := New(context.Background(), f, Options{Logger: zerolog.Nop()})

	r.Lookup(KindPatient, 7)
	r.Wait()
	if n := r.ForgetFailures(); n != 1 {
		t.Fatalf("expected 1 forgotten failure, got %d", n)
	}

	f.fail.Store(false)
	r.Lookup(KindPatient, 7)
	r.Wait()
	if ref := r.Lookup(KindPatient, 7); !ref.Resolved {
		t.Errorf("expected resolved after forgetting the failure, got %+v", ref)
	}
	if n := r.ForgetFailures(); n != 0 {
		t.Errorf("expected nothing left to forget, got %d", n)
	}
}

func TestResolver_CallerGivingUpDoesNotFailSharedLookup(t *testing.T) {
	f := &countingFetcher{release: make(chan struct{})}
	var last atomic.Value
	r := New(context.Background(), f, Options{
		OnResolved: func(ref Reference) { last.Store(ref) },
		Logger:     zerolog.Nop(),
	})

	reqCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(reqCtx, KindMedecin, 42)
		done <- err
	}()
	deadline := time.Now().Add(time.Second)
	for f.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("fetch did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A dashboard render joins the fetch started by the write-time check.
	r.Lookup(KindMedecin, 42)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to stop waiting, got %v", err)
	}

	close(f.release)
	r.Wait()
	if ref, _ := last.Load().(Reference); !ref.Resolved || ref.Failed {
		t.Errorf("expected the shared lookup to resolve, got %+v", ref)
	}
	if ref := r.Lookup(KindMedecin, 42); !ref.Resolved {
		t.Errorf("expected resolved reference, got %+v", ref)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}
