package stock

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/rolefilter"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/textsearch"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

// References is the part of the reference resolver the stock service uses.
type References interface {
	validation.Resolver
	Prime(refs ...refresolver.Reference)
	Invalidate(kind refresolver.Kind, id int64)
}

type deliveries struct{}

func (deliveries) Admin() rolefilter.Scope[Livraison]   { return rolefilter.All[Livraison]() }
func (deliveries) Patient() rolefilter.Scope[Livraison] { return rolefilter.None[Livraison]() }
func (deliveries) Medecin() rolefilter.Scope[Livraison] { return rolefilter.None[Livraison]() }
func (deliveries) Infirmier() rolefilter.Scope[Livraison] {
	return rolefilter.None[Livraison]()
}
func (deliveries) Receptionniste() rolefilter.Scope[Livraison] {
	return rolefilter.None[Livraison]()
}
func (deliveries) Magasinier() rolefilter.Scope[Livraison] {
	return rolefilter.ByKey(func(l Livraison) int64 { return l.MagasinierID })
}

// DeliveryScope is what role may see of the delivery list.
func DeliveryScope(r auth.Role) rolefilter.Scope[Livraison] {
	s, ok := auth.Dispatch[rolefilter.Scope[Livraison]](r, deliveries{})
	if !ok {
		return rolefilter.None[Livraison]()
	}
	return s
}

type Service struct {
	repo   Repository
	v      *validation.Validator
	refs   References
	actor  auth.Actor
	logger zerolog.Logger
}

func NewService(actor auth.Actor, repo Repository, v *validation.Validator, refs References, logger zerolog.Logger) *Service {
	return &Service{repo: repo, v: v, refs: refs, actor: actor, logger: logger}
}

// ProduitFilter narrows the product list.
type ProduitFilter struct {
	Query string
	// Low keeps products at or under their alert threshold.
	Low bool
}

// Produits lists products. Every loaded product also primes the reference
// cache so signalement rows resolve without another call.
func (s *Service) Produits(ctx context.Context, f ProduitFilter, p pagination.Params) (*pagination.Response, error) {
	all, err := s.repo.Produits.List(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]refresolver.Reference, 0, len(all))
	out := make([]Produit, 0, len(all))
	for _, pr := range all {
		refs = append(refs, ProduitReference(pr))
		if f.Low && !pr.Low() {
			continue
		}
		if textsearch.Match(f.Query, pr.Nom, pr.Categorie, pr.Description) {
			out = append(out, pr)
		}
	}
	s.refs.Prime(refs...)
	return pagination.NewResponse(pagination.Slice(out, p), len(out), p.Limit, p.Offset), nil
}

func (s *Service) Produit(ctx context.Context, id int64) (Produit, error) {
	return s.repo.Produits.Get(ctx, id)
}

func (s *Service) CreateProduit(ctx context.Context, req *ProduitRequest) (Produit, error) {
	if err := s.v.Struct(req); err != nil {
		return Produit{}, err
	}
	return s.repo.Produits.Create(ctx, req)
}

func (s *Service) UpdateProduit(ctx context.Context, id int64, req *ProduitRequest) (Produit, error) {
	if err := s.v.Struct(req); err != nil {
		return Produit{}, err
	}
	pr, err := s.repo.Produits.Update(ctx, id, req)
	if err != nil {
		return pr, err
	}
	s.refs.Invalidate(refresolver.KindProduit, id)
	return pr, nil
}

func (s *Service) DeleteProduit(ctx context.Context, id int64) error {
	if err := s.repo.Produits.Delete(ctx, id); err != nil {
		return err
	}
	s.refs.Invalidate(refresolver.KindProduit, id)
	return nil
}

// Livraisons lists the deliveries visible to the actor, newest first as the
// backend returns them.
func (s *Service) Livraisons(ctx context.Context, query string, p pagination.Params) (*pagination.Response, error) {
	all, err := s.repo.Livraisons.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := DeliveryScope(s.actor.Role).Apply(all, s.actor.EntityID)
	out := make([]Livraison, 0, len(visible))
	for _, l := range visible {
		if textsearch.Match(query, l.Fournisseur, l.Reference, l.DateLivraison) {
			out = append(out, l)
		}
	}
	return pagination.NewResponse(pagination.Slice(out, p), len(out), p.Limit, p.Offset), nil
}

// Livraison returns one delivery if the actor may see it.
func (s *Service) Livraison(ctx context.Context, id int64) (Livraison, error) {
	l, err := s.repo.Livraisons.Get(ctx, id)
	if err != nil {
		if apiclient.IsKind(err, apiclient.KindNotFound) {
			return Livraison{}, board.NotFound("livraison", id)
		}
		return Livraison{}, err
	}
	if len(DeliveryScope(s.actor.Role).Apply([]Livraison{l}, s.actor.EntityID)) == 0 {
		return Livraison{}, board.NotFound("livraison", id)
	}
	return l, nil
}

// CreateLivraison records a delivery; a magasinier records it as their own.
func (s *Service) CreateLivraison(ctx context.Context, req *LivraisonRequest) (Livraison, error) {
	if s.actor.Role == auth.RoleMagasinier {
		if s.actor.EntityID == nil {
			return Livraison{}, validation.FieldErrors{"id_magasinier": {"Profil magasinier introuvable."}}
		}
		req.MagasinierID = *s.actor.EntityID
	}
	if err := s.checkLivraison(ctx, req); err != nil {
		return Livraison{}, err
	}
	return s.repo.Livraisons.Create(ctx, req)
}

func (s *Service) UpdateLivraison(ctx context.Context, id int64, req *LivraisonRequest) (Livraison, error) {
	cur, err := s.Livraison(ctx, id)
	if err != nil {
		return Livraison{}, err
	}
	if s.actor.Role == auth.RoleMagasinier {
		req.MagasinierID = cur.MagasinierID
	}
	if err := s.checkLivraison(ctx, req); err != nil {
		return Livraison{}, err
	}
	return s.repo.Livraisons.Update(ctx, id, req)
}

func (s *Service) DeleteLivraison(ctx context.Context, id int64) error {
	if _, err := s.Livraison(ctx, id); err != nil {
		return err
	}
	return s.repo.Livraisons.Delete(ctx, id)
}

func (s *Service) checkLivraison(ctx context.Context, req *LivraisonRequest) error {
	if err := s.v.Struct(req); err != nil {
		return err
	}
	fe, err := validation.CheckReferences(ctx, s.refs,
		validation.Ref{Field: "id_magasinier", Kind: refresolver.KindMagasinier, ID: req.MagasinierID})
	if err != nil {
		return err
	}
	if fe != nil {
		return fe
	}
	return nil
}

// Lignes lists the product lines of one visible delivery.
func (s *Service) Lignes(ctx context.Context, livraisonID int64) ([]Ligne, error) {
	if _, err := s.Livraison(ctx, livraisonID); err != nil {
		return nil, err
	}
	all, err := s.repo.Lignes.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []Ligne{}
	for _, l := range all {
		if l.LivraisonID == livraisonID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Service) CreateLigne(ctx context.Context, req *LigneRequest) (Ligne, error) {
	if err := s.checkLigne(ctx, req); err != nil {
		return Ligne{}, err
	}
	l, err := s.repo.Lignes.Create(ctx, req)
	if err != nil {
		return l, err
	}
	// the backend adjusts the product quantity
	s.refs.Invalidate(refresolver.KindProduit, req.ProduitID)
	return l, nil
}

func (s *Service) UpdateLigne(ctx context.Context, id int64, req *LigneRequest) (Ligne, error) {
	if err := s.checkLigne(ctx, req); err != nil {
		return Ligne{}, err
	}
	return s.repo.Lignes.Update(ctx, id, req)
}

func (s *Service) DeleteLigne(ctx context.Context, id int64) error {
	l, err := s.repo.Lignes.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.Livraison(ctx, l.LivraisonID); err != nil {
		return err
	}
	return s.repo.Lignes.Delete(ctx, id)
}

func (s *Service) checkLigne(ctx context.Context, req *LigneRequest) error {
	if err := s.v.Struct(req); err != nil {
		return err
	}
	fe := validation.FieldErrors{}
	if _, err := s.Livraison(ctx, req.LivraisonID); err != nil {
		if !errors.Is(err, board.ErrNotFound) {
			return err
		}
		fe.Add("id_livraison", "Livraison #"+strconv.FormatInt(req.LivraisonID, 10)+" introuvable.")
	}
	refErrs, err := validation.CheckReferences(ctx, s.refs,
		validation.Ref{Field: "id_produit", Kind: refresolver.KindProduit, ID: req.ProduitID})
	if err != nil {
		return err
	}
	for field, msgs := range refErrs {
		for _, m := range msgs {
			fe.Add(field, m)
		}
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}
