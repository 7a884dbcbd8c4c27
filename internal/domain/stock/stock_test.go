package stock

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/httpx"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

// memResource is an in-memory Resource keyed by id.
type memResource[T interface{ Key() int64 }, Req any] struct {
	items   []T
	build   func(id int64, req *Req) T
	nextID  int64
	deleted []int64
}

func (m *memResource[T, Req]) List(context.Context) ([]T, error) { return m.items, nil }

func (m *memResource[T, Req]) Get(_ context.Context, id int64) (T, error) {
	for _, it := range m.items {
		if it.Key() == id {
			return it, nil
		}
	}
	var zero T
	return zero, &apiclient.APIError{Kind: apiclient.KindNotFound, Status: http.StatusNotFound}
}

func (m *memResource[T, Req]) Create(_ context.Context, req *Req) (T, error) {
	m.nextID++
	it := m.build(m.nextID, req)
	m.items = append(m.items, it)
	return it, nil
}

func (m *memResource[T, Req]) Update(_ context.Context, id int64, req *Req) (T, error) {
	it := m.build(id, req)
	for i := range m.items {
		if m.items[i].Key() == id {
			m.items[i] = it
		}
	}
	return it, nil
}

func (m *memResource[T, Req]) Delete(_ context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

// fakeRefs knows magasiniers 7 and 9 and the products primed into it.
type fakeRefs struct {
	primed      map[int64]refresolver.Reference
	invalidated []int64
}

func (f *fakeRefs) Resolve(_ context.Context, kind refresolver.Kind, id int64) (refresolver.Reference, error) {
	switch kind {
	case refresolver.KindMagasinier:
		if id == 7 || id == 9 {
			return refresolver.Reference{Kind: kind, ID: id, Name: "Mag", Resolved: true}, nil
		}
	case refresolver.KindProduit:
		if ref, ok := f.primed[id]; ok {
			return ref, nil
		}
		if id < 100 {
			return refresolver.Reference{Kind: kind, ID: id, Name: "Produit", Resolved: true}, nil
		}
	}
	return refresolver.Reference{}, &apiclient.APIError{Kind: apiclient.KindNotFound, Status: http.StatusNotFound}
}

func (f *fakeRefs) Prime(refs ...refresolver.Reference) {
	if f.primed == nil {
		f.primed = map[int64]refresolver.Reference{}
	}
	for _, r := range refs {
		f.primed[r.ID] = r
	}
}

func (f *fakeRefs) Invalidate(_ refresolver.Kind, id int64) {
	f.invalidated = append(f.invalidated, id)
}

func newRepo() Repository {
	return Repository{
		Produits: &memResource[Produit, ProduitRequest]{
			nextID: 10,
			items: []Produit{
				{ID: 1, Nom: "Gants stériles", Categorie: "Consommable", Quantite: 5, SeuilAlerte: 20},
				{ID: 2, Nom: "Seringues", Categorie: "Consommable", Quantite: 400, SeuilAlerte: 100},
				{ID: 3, Nom: "Tensiomètre", Categorie: "Équipement", Quantite: 3},
			},
			build: func(id int64, r *ProduitRequest) Produit {
				return Produit{ID: id, Nom: r.Nom, Categorie: r.Categorie, Quantite: r.Quantite, SeuilAlerte: r.SeuilAlerte}
			},
		},
		Livraisons: &memResource[Livraison, LivraisonRequest]{
			nextID: 20,
			items: []Livraison{
				{ID: 1, MagasinierID: 7, Fournisseur: "MedSupply", DateLivraison: "2026-10-01"},
				{ID: 2, MagasinierID: 9, Fournisseur: "PharmaNord", DateLivraison: "2026-10-02"},
			},
			build: func(id int64, r *LivraisonRequest) Livraison {
				return Livraison{ID: id, MagasinierID: r.MagasinierID, Fournisseur: r.Fournisseur, DateLivraison: r.DateLivraison}
			},
		},
		Lignes: &memResource[Ligne, LigneRequest]{
			nextID: 30,
			items: []Ligne{
				{ID: 1, LivraisonID: 1, ProduitID: 1, Quantite: 50},
				{ID: 2, LivraisonID: 2, ProduitID: 2, Quantite: 10},
			},
			build: func(id int64, r *LigneRequest) Ligne {
				return Ligne{ID: id, LivraisonID: r.LivraisonID, ProduitID: r.ProduitID, Quantite: r.Quantite}
			},
		},
	}
}

func magasinier(id int64) auth.Actor {
	return auth.Actor{CIN: "MG", Role: auth.RoleMagasinier, EntityID: &id}
}

func TestService_ProduitsPrimesAndFilters(t *testing.T) {
	refs := &fakeRefs{}
	svc := NewService(magasinier(7), newRepo(), validation.New(), refs, zerolog.Nop())

	resp, err := svc.Produits(context.Background(), ProduitFilter{Low: true}, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	low := resp.Data.([]Produit)
	if len(low) != 1 || low[0].ID != 1 {
		t.Errorf("expected only the gloves under threshold, got %+v", low)
	}
	if len(refs.primed) != 3 || refs.primed[3].Display() != "Tensiomètre (Équipement)" {
		t.Errorf("expected every product primed, got %+v", refs.primed)
	}

	resp, _ = svc.Produits(context.Background(), ProduitFilter{Query: "equipement"}, pagination.Params{Limit: 10})
	if resp.Total != 1 {
		t.Errorf("expected accent-insensitive category match, got %d", resp.Total)
	}
}

func TestService_LivraisonsScopedToMagasinier(t *testing.T) {
	svc := NewService(magasinier(7), newRepo(), validation.New(), &fakeRefs{}, zerolog.Nop())

	resp, err := svc.Livraisons(context.Background(), "", pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected only own deliveries, got %d", resp.Total)
	}
	if _, err := svc.Livraison(context.Background(), 2); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("expected another magasinier's delivery hidden, got %v", err)
	}
	if err := svc.DeleteLivraison(context.Background(), 2); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("expected delete refused, got %v", err)
	}

	admin := NewService(auth.Actor{CIN: "A", Role: auth.RoleAdmin}, newRepo(), validation.New(), &fakeRefs{}, zerolog.Nop())
	resp, _ = admin.Livraisons(context.Background(), "", pagination.Params{Limit: 10})
	if resp.Total != 2 {
		t.Errorf("admin sees every delivery, got %d", resp.Total)
	}
}

func TestService_CreateLivraisonForcesOwnID(t *testing.T) {
	svc := NewService(magasinier(7), newRepo(), validation.New(), &fakeRefs{}, zerolog.Nop())

	l, err := svc.CreateLivraison(context.Background(), &LivraisonRequest{MagasinierID: 9, Fournisseur: "MedSupply", DateLivraison: "2026-10-17"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.MagasinierID != 7 {
		t.Errorf("expected own id 7, got %d", l.MagasinierID)
	}

	_, err = svc.CreateLivraison(context.Background(), &LivraisonRequest{Fournisseur: "MedSupply", DateLivraison: "17/10/2026"})
	var fe validation.FieldErrors
	if !errors.As(err, &fe) || len(fe["date_livraison"]) == 0 {
		t.Errorf("expected a date error, got %v", err)
	}
}

func TestService_CreateLigne(t *testing.T) {
	tests := []struct {
		name       string
		req        LigneRequest
		wantFields []string
	}{
		{"valid", LigneRequest{LivraisonID: 1, ProduitID: 3, Quantite: 4}, nil},
		{"zero quantity", LigneRequest{LivraisonID: 1, ProduitID: 3}, []string{"quantite"}},
		{"unknown product and foreign delivery", LigneRequest{LivraisonID: 2, ProduitID: 500, Quantite: 1}, []string{"id_livraison", "id_produit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := &fakeRefs{}
			svc := NewService(magasinier(7), newRepo(), validation.New(), refs, zerolog.Nop())
			req := tt.req
			_, err := svc.CreateLigne(context.Background(), &req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(refs.invalidated) != 1 || refs.invalidated[0] != 3 {
					t.Errorf("expected product 3 invalidated, got %v", refs.invalidated)
				}
				return
			}
			var fe validation.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("expected field errors, got %v", err)
			}
			for _, f := range tt.wantFields {
				if len(fe[f]) == 0 {
					t.Errorf("expected error on %s, got %v", f, fe)
				}
			}
		})
	}
}

func TestCatalog_FetchReference(t *testing.T) {
	c := NewCatalog(newRepo())
	ref, err := c.FetchReference(context.Background(), refresolver.KindProduit, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Name != "Seringues" {
		t.Errorf("unexpected reference %+v", ref)
	}
	if _, err := c.FetchReference(context.Background(), refresolver.KindPatient, 2); err == nil {
		t.Error("expected patients refused")
	}
}

func TestHandler_LivraisonRoutes(t *testing.T) {
	svc := NewService(magasinier(7), newRepo(), validation.New(), &fakeRefs{}, zerolog.Nop())
	h := NewHandler(func(echo.Context) (*Service, error) { return svc, nil })

	tests := []struct {
		name     string
		method   string
		id       string
		body     string
		call     func(*Handler, echo.Context) error
		wantCode int
	}{
		{"own delivery", http.MethodGet, "1", "", (*Handler).GetLivraison, http.StatusOK},
		{"foreign delivery", http.MethodGet, "2", "", (*Handler).GetLivraison, http.StatusNotFound},
		{"bad id", http.MethodGet, "abc", "", (*Handler).GetLivraison, http.StatusBadRequest},
		{"lines", http.MethodGet, "1", "", (*Handler).ListLignes, http.StatusOK},
		{"invalid product", http.MethodPost, "", `{"nom":"","quantite":-1}`, (*Handler).CreateProduit, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = httpx.ErrorHandler(zerolog.Nop())
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			} else {
				req = httptest.NewRequest(tt.method, "/", nil)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.id != "" {
				c.SetParamNames("id")
				c.SetParamValues(tt.id)
			}
			if err := tt.call(h, c); err != nil {
				e.HTTPErrorHandler(err, c)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.name == "lines" {
				var lignes []Ligne
				if err := json.Unmarshal(rec.Body.Bytes(), &lignes); err != nil || len(lignes) != 1 {
					t.Errorf("expected one line for delivery 1, got %s", rec.Body.String())
				}
			}
		})
	}
}
