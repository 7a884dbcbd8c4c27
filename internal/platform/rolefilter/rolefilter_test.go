package rolefilter

import "testing"

type report struct {
	ID           int64
	IDMagasinier int64
}

func magasinierKey(r report) int64 { return r.IDMagasinier }

func ptr(v int64) *int64 { return &v }

func TestFilter_MagasinierSeesOwnRows(t *testing.T) {
	rows := []report{{1, 7}, {2, 7}, {3, 9}}
	got := Filter(rows, magasinierKey, ptr(7))
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestFilter_NilActingIDFailsClosed(t *testing.T) {
	rows := []report{{1, 7}, {2, 0}}
	got := Filter(rows, magasinierKey, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
}

func TestFilter_Property(t *testing.T) {
	rows := make([]report, 0, 50)
	for i := int64(0); i < 50; i++ {
		rows = append(rows, report{ID: i, IDMagasinier: i % 5})
	}
	for x := int64(0); x < 6; x++ {
		got := Filter(rows, magasinierKey, ptr(x))
		want := 0
		for _, r := range rows {
			if r.IDMagasinier == x {
				want++
			}
		}
		if len(got) != want {
			t.Errorf("x=%d: expected %d rows, got %d", x, want, len(got))
		}
		for _, r := range got {
			if r.IDMagasinier != x {
				t.Errorf("x=%d: row %+v should not pass", x, r)
			}
		}
	}
}

func TestScope(t *testing.T) {
	rows := []report{{1, 7}, {2, 9}}

	if got := All[report]().Apply(rows, nil); len(got) != 2 {
		t.Errorf("All: expected 2, got %d", len(got))
	}
	if got := None[report]().Apply(rows, ptr(7)); len(got) != 0 {
		t.Errorf("None: expected 0, got %d", len(got))
	}
	if got := ByKey(magasinierKey).Apply(rows, ptr(9)); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("ByKey: unexpected %+v", got)
	}
	var zero Scope[report]
	if zero.Visible() || len(zero.Apply(rows, ptr(7))) != 0 {
		t.Error("zero scope must show nothing")
	}

	if k, ok := ByKey(magasinierKey).KeyOf(rows[0]); !ok || k != 7 {
		t.Errorf("KeyOf = %d, %v", k, ok)
	}
	if _, ok := All[report]().KeyOf(rows[0]); ok {
		t.Error("All scope has no key")
	}
}
