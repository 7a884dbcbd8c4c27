package diagnostic

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

type mockRepo struct {
	items       []Diagnostic
	listCalls   int
	patientCall []int64
	statusErr   error
	statusCalls []Status
	updated     []int64
}

func (m *mockRepo) List(context.Context) ([]Diagnostic, error) {
	m.listCalls++
	return m.items, nil
}

func (m *mockRepo) ListForPatient(_ context.Context, id int64) ([]Diagnostic, error) {
	m.patientCall = append(m.patientCall, id)
	var out []Diagnostic
	for _, d := range m.items {
		if d.PatientID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, req *CreateRequest) (Diagnostic, error) {
	return Diagnostic{ID: 99, PatientID: req.PatientID, MedecinID: req.MedecinID, Statut: req.Statut}, nil
}

func (m *mockRepo) Update(_ context.Context, id int64, _ *UpdateRequest) (Diagnostic, error) {
	m.updated = append(m.updated, id)
	return Diagnostic{ID: id}, nil
}

func (m *mockRepo) SetStatus(_ context.Context, _ int64, s Status) error {
	m.statusCalls = append(m.statusCalls, s)
	return m.statusErr
}

func (m *mockRepo) Delete(context.Context, int64) error { return nil }

func ptr(v int64) *int64 { return &v }

func newResolver() *refresolver.Resolver {
	return refresolver.New(context.Background(), refresolver.FetcherFunc(
		func(_ context.Context, kind refresolver.Kind, id int64) (refresolver.Reference, error) {
			if id == 404 {
				return refresolver.Reference{}, &apiclient.APIError{Kind: apiclient.KindNotFound, Status: 404}
			}
			return refresolver.Reference{Name: "Nom"}, nil
		}), refresolver.Options{Logger: zerolog.Nop()})
}

func sample() []Diagnostic {
	return []Diagnostic{
		{ID: 1, PatientID: 7, MedecinID: 42, DateD: "2026-10-01", Description: "Fièvre", Statut: StatusPending},
		{ID: 2, PatientID: 8, MedecinID: 42, DateD: "2026-10-02", Description: "Toux", Statut: StatusApproved},
		{ID: 3, PatientID: 7, MedecinID: 43, DateD: "2026-10-03", Description: "Fracture", Statut: StatusPending},
	}
}

func TestDesk_PatientLoadsOwnDiagnostics(t *testing.T) {
	repo := &mockRepo{items: sample()}
	refs := newResolver()
	defer refs.Wait()
	d := NewDesk(auth.Actor{Role: auth.RolePatient, EntityID: ptr(7)}, repo, validation.New(), refs, zerolog.Nop())

	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if repo.listCalls != 0 || len(repo.patientCall) != 1 || repo.patientCall[0] != 7 {
		t.Errorf("expected the patient endpoint, got list=%d patient=%v", repo.listCalls, repo.patientCall)
	}
	rows := d.Rows("")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if len(r.Actions) != 0 {
			t.Errorf("patients get no actions, got %+v", r.Actions)
		}
	}
}

func TestDesk_AssignedMedecinApproves(t *testing.T) {
	repo := &mockRepo{items: sample()}
	refs := newResolver()
	defer refs.Wait()
	d := NewDesk(auth.Actor{Role: auth.RoleMedecin, EntityID: ptr(42)}, repo, validation.New(), refs, zerolog.Nop())
	_ = d.Load(context.Background())

	view := d.View("", pagination.Params{Limit: 10})
	if view.Total != 2 {
		t.Fatalf("médecin 42 should see 2 rows, got %d", view.Total)
	}

	row, err := d.Transition(context.Background(), 1, StatusApproved)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if row.Badge != "Approuvé" {
		t.Errorf("expected Approuvé, got %q", row.Badge)
	}

	// approved is terminal
	_, err = d.Transition(context.Background(), 1, StatusRejected)
	var te *lifecycle.TransitionError
	if !errors.As(err, &te) || te.Reason != lifecycle.ReasonTerminal {
		t.Errorf("expected terminal refusal, got %v", err)
	}
	if len(repo.statusCalls) != 1 {
		t.Errorf("expected a single backend call, got %v", repo.statusCalls)
	}
}

func TestDesk_OtherMedecinCannotDecide(t *testing.T) {
	repo := &mockRepo{items: sample()}
	refs := newResolver()
	defer refs.Wait()
	d := NewDesk(auth.Actor{Role: auth.RoleMedecin, EntityID: ptr(43)}, repo, validation.New(), refs, zerolog.Nop())
	_ = d.Load(context.Background())

	if _, err := d.Transition(context.Background(), 1, StatusApproved); err == nil {
		t.Fatal("expected refusal for a diagnostic assigned to another médecin")
	}
	if len(repo.statusCalls) != 0 {
		t.Errorf("expected no backend call, got %v", repo.statusCalls)
	}
}

func TestDesk_InfirmierSeesAllWithoutActions(t *testing.T) {
	repo := &mockRepo{items: sample()}
	refs := newResolver()
	defer refs.Wait()
	d := NewDesk(auth.Actor{Role: auth.RoleInfirmier, EntityID: ptr(5)}, repo, validation.New(), refs, zerolog.Nop())
	_ = d.Load(context.Background())

	rows := d.Rows("")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if len(r.Actions) != 0 {
			t.Errorf("infirmier gets no lifecycle action, got %+v", r.Actions)
		}
	}
	if rows := d.Rows("fievre"); len(rows) != 1 || rows[0].Record.ID != 1 {
		t.Errorf("expected accent-insensitive search hit, got %+v", rows)
	}
}

func TestDesk_UpdateFrozenOnceDecided(t *testing.T) {
	repo := &mockRepo{items: sample()}
	refs := newResolver()
	defer refs.Wait()
	d := NewDesk(auth.Actor{Role: auth.RoleMedecin, EntityID: ptr(42)}, repo, validation.New(), refs, zerolog.Nop())
	_ = d.Load(context.Background())

	desc := "Mise à jour"
	_, err := d.Update(context.Background(), 2, &UpdateRequest{Description: &desc})
	var fe validation.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected field errors, got %v", err)
	}
	if _, err := d.Update(context.Background(), 1, &UpdateRequest{Description: &desc}); err != nil {
		t.Fatalf("pending diagnostic should be editable: %v", err)
	}
	if len(repo.updated) != 1 || repo.updated[0] != 1 {
		t.Errorf("unexpected updates %v", repo.updated)
	}
}

func TestService_CreateAsMedecin(t *testing.T) {
	refs := newResolver()
	defer refs.Wait()
	svc := NewService(&mockRepo{}, validation.New(), refs)

	diag, err := svc.Create(context.Background(), auth.Actor{Role: auth.RoleMedecin, EntityID: ptr(42)}, &CreateRequest{
		PatientID: 7, MedecinID: 1, DateD: "2026-10-17", Description: "Bilan",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diag.MedecinID != 42 || diag.Statut != StatusPending {
		t.Errorf("expected own médecin id and pending, got %+v", diag)
	}

	_, err = svc.Create(context.Background(), auth.Actor{Role: auth.RoleInfirmier}, &CreateRequest{
		PatientID: 404, MedecinID: 42, DateD: "2026-10-17", Description: "Bilan",
	})
	var fe validation.FieldErrors
	if !errors.As(err, &fe) || len(fe["id_patient"]) == 0 {
		t.Errorf("expected unknown patient rejected, got %v", err)
	}
}

func TestService_CreateAsMedecinWithoutProfile(t *testing.T) {
	repo := &createCounter{}
	svc := NewService(repo, validation.New(), newResolver())

	_, err := svc.Create(context.Background(), auth.Actor{CIN: "M0", Role: auth.RoleMedecin}, &CreateRequest{
		PatientID: 7, MedecinID: 43, DateD: "2026-10-17", Description: "Bilan",
	})
	var fe validation.FieldErrors
	if !errors.As(err, &fe) || fe.First() != "Profil médecin introuvable." {
		t.Fatalf("expected the missing médecin profile rejected, got %v", err)
	}
	if repo.creates != 0 {
		t.Error("a médecin without a profile must not create for another médecin")
	}
}

type createCounter struct {
	mockRepo
	creates int
}

func (c *createCounter) Create(ctx context.Context, req *CreateRequest) (Diagnostic, error) {
	c.creates++
	return c.mockRepo.Create(ctx, req)
}

func TestStatus_Label(t *testing.T) {
	if StatusPending.Label() != "En attente" || StatusApproved.Label() != "Approuvé" || StatusRejected.Label() != "Rejeté" {
		t.Error("unexpected badge labels")
	}
}
