package board

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/rolefilter"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

type status string

const (
	open   status = "open"
	closed status = "closed"
)

type ticket struct {
	ID        int64
	PatientID int64
	Note      string
	Status    status
}

func (t ticket) Key() int64                { return t.ID }
func (t ticket) State() status             { return t.Status }
func (t ticket) WithState(s status) ticket { t.Status = s; return t }
func (t ticket) Assignee(r auth.Role) (int64, bool) {
	if r == auth.RolePatient {
		return t.PatientID, true
	}
	return 0, false
}

var definition = Definition[ticket, status]{
	Entity: "ticket",
	Machine: lifecycle.NewMachine("ticket", []status{open, closed},
		lifecycle.Rule[status]{From: open, To: closed, Action: "close", Label: "Fermer",
			Roles: []auth.Role{auth.RolePatient}, Assigned: true},
	),
	Scope: func(r auth.Role) rolefilter.Scope[ticket] {
		switch r {
		case auth.RoleAdmin:
			return rolefilter.All[ticket]()
		case auth.RolePatient:
			return rolefilter.ByKey(func(t ticket) int64 { return t.PatientID })
		}
		return rolefilter.None[ticket]()
	},
	Badge: func(s status) string {
		if s == open {
			return "Ouvert"
		}
		return "Fermé"
	},
	Refs: func(t ticket) []RefField {
		return []RefField{{Field: "patient", Kind: refresolver.KindPatient, ID: t.PatientID}}
	},
	Search: func(t ticket) []string { return []string{t.Note} },
}

var tickets = []ticket{
	{ID: 1, PatientID: 7, Note: "Fièvre", Status: open},
	{ID: 2, PatientID: 8, Note: "Toux", Status: open},
	{ID: 3, PatientID: 7, Note: "Contrôle", Status: closed},
}

func ptr(v int64) *int64 { return &v }

type fixture struct {
	fetches atomic.Int32
	patches atomic.Int32
	refs    *refresolver.Resolver
}

func newBoard(t *testing.T, actor auth.Actor) (*Board[ticket, status], *fixture) {
	t.Helper()
	f := &fixture{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.refs = refresolver.New(ctx, refresolver.FetcherFunc(func(_ context.Context, k refresolver.Kind, id int64) (refresolver.Reference, error) {
		if id == 7 {
			return refresolver.Reference{Name: "Omar Bennani"}, nil
		}
		return refresolver.Reference{Name: "Hélène Idrissi"}, nil
	}), refresolver.Options{Logger: zerolog.Nop()})

	fetch := func(context.Context) ([]ticket, error) {
		f.fetches.Add(1)
		out := make([]ticket, len(tickets))
		copy(out, tickets)
		return out, nil
	}
	patch := func(context.Context, int64, status) error {
		f.patches.Add(1)
		return nil
	}
	return New(definition, actor, fetch, patch, f.refs, zerolog.Nop()), f
}

func TestBoard_RowsFollowScope(t *testing.T) {
	b, _ := newBoard(t, auth.Actor{CIN: "P7", Role: auth.RolePatient, EntityID: ptr(7)})
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	rows := b.Rows("")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Record.ID != 1 || rows[1].Record.ID != 3 {
		t.Errorf("expected backend order 1,3, got %d,%d", rows[0].Record.ID, rows[1].Record.ID)
	}
	if len(rows[0].Actions) != 1 || rows[0].Actions[0].Target != closed {
		t.Errorf("expected the close action on an open ticket, got %+v", rows[0].Actions)
	}
	if len(rows[1].Actions) != 0 {
		t.Errorf("expected no action on a closed ticket, got %+v", rows[1].Actions)
	}
	if _, ok := b.Get(2); ok {
		t.Error("ticket 2 belongs to another patient")
	}
}

func TestBoard_ReferencesResolveInBackground(t *testing.T) {
	b, f := newBoard(t, auth.Actor{Role: auth.RoleAdmin})
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	first := b.Rows("")
	if ref := first[0].References["patient"]; ref.Resolved || ref.Display() != "Patient #7" {
		t.Errorf("expected a placeholder on first render, got %+v", ref)
	}
	f.refs.Wait()

	row, _ := b.Row(1)
	if got := row.References["patient"].Display(); got != "Omar Bennani" {
		t.Errorf("expected resolved name, got %q", got)
	}
	// Search matches resolved names, ignoring accents.
	if rows := b.Rows("helene"); len(rows) != 1 || rows[0].Record.ID != 2 {
		t.Errorf("expected ticket 2 for 'helene', got %+v", rows)
	}
	if rows := b.Rows("fievre"); len(rows) != 1 || rows[0].Record.ID != 1 {
		t.Errorf("expected ticket 1 for 'fievre', got %+v", rows)
	}
	if rows := b.Rows("fermé"); len(rows) != 1 || rows[0].Record.ID != 3 {
		t.Errorf("expected badge search to match ticket 3, got %+v", rows)
	}
}

func TestBoard_View(t *testing.T) {
	b, _ := newBoard(t, auth.Actor{Role: auth.RoleAdmin})
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	v := b.View("", pagination.Params{Limit: 2, Offset: 0})
	if v.Total != 3 || len(v.Rows) != 2 || !v.HasMore {
		t.Errorf("unexpected page: total=%d rows=%d has_more=%v", v.Total, len(v.Rows), v.HasMore)
	}
	if v.Badges[open] != "Ouvert" || v.Badges[closed] != "Fermé" {
		t.Errorf("unexpected badges %v", v.Badges)
	}
	if v.Entity != "ticket" {
		t.Errorf("unexpected entity %q", v.Entity)
	}
}

func TestBoard_InvisibleRoleDoesNotFetch(t *testing.T) {
	b, f := newBoard(t, auth.Actor{Role: auth.RoleMagasinier, EntityID: ptr(3)})
	if b.Visible() {
		t.Fatal("magasinier should not see tickets")
	}
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.fetches.Load() != 0 {
		t.Errorf("expected no fetch, got %d", f.fetches.Load())
	}
	if rows := b.Rows(""); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestBoard_Transition(t *testing.T) {
	b, f := newBoard(t, auth.Actor{Role: auth.RolePatient, EntityID: ptr(7)})
	if err := b.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := b.Transition(context.Background(), 2, closed)
	var te *lifecycle.TransitionError
	if !errors.As(err, &te) || te.Reason != lifecycle.ReasonNotFound {
		t.Fatalf("expected not found for another patient's ticket, got %v", err)
	}
	if f.patches.Load() != 0 {
		t.Fatal("out-of-scope transition reached the backend")
	}

	row, err := b.Transition(context.Background(), 1, closed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Badge != "Fermé" || len(row.Actions) != 0 {
		t.Errorf("expected closed row without actions, got %+v", row)
	}
	if f.patches.Load() != 1 {
		t.Errorf("expected one patch, got %d", f.patches.Load())
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("livraison", 4)
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected ErrNotFound")
	}
	if err.Error() != "livraison 4: record not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
