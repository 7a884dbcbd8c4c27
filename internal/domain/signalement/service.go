package signalement

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
)

type Service struct {
	repo Repository
	v    *validation.Validator
	refs validation.Resolver
}

func NewService(repo Repository, v *validation.Validator, refs validation.Resolver) *Service {
	return &Service{repo: repo, v: v, refs: refs}
}

// Create files a pending signalement in the name of the reporting infirmier.
func (s *Service) Create(ctx context.Context, actor auth.Actor, req *CreateRequest) (Signalement, error) {
	if actor.Role == auth.RoleInfirmier {
		if actor.EntityID == nil {
			return Signalement{}, validation.FieldErrors{"id_infirmier": {"Profil infirmier introuvable."}}
		}
		req.InfirmierID = *actor.EntityID
	}
	req.Statut = StatusPending

	if err := s.v.Struct(req); err != nil {
		return Signalement{}, err
	}
	fe, err := validation.CheckReferences(ctx, s.refs,
		validation.Ref{Field: "id_produit", Kind: refresolver.KindProduit, ID: req.ProduitID},
		validation.Ref{Field: "id_infirmier", Kind: refresolver.KindInfirmier, ID: req.InfirmierID},
		validation.Ref{Field: "id_magasinier", Kind: refresolver.KindMagasinier, ID: req.MagasinierID},
	)
	if err != nil {
		return Signalement{}, err
	}
	if fe != nil {
		return Signalement{}, fe
	}
	return s.repo.Create(ctx, req)
}

type Desk struct {
	*board.Board[Signalement, Status]
	actor   auth.Actor
	service *Service
	logger  zerolog.Logger
}

func NewDesk(actor auth.Actor, repo Repository, v *validation.Validator, refs *refresolver.Resolver, logger zerolog.Logger) *Desk {
	return &Desk{
		Board:   board.New(Definition, actor, repo.List, repo.SetStatus, refs, logger),
		actor:   actor,
		service: NewService(repo, v, refs),
		logger:  logger,
	}
}

func (d *Desk) Create(ctx context.Context, req *CreateRequest) (Signalement, error) {
	sig, err := d.service.Create(ctx, d.actor, req)
	if err != nil {
		return sig, err
	}
	if err := d.Load(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("reload after write failed")
	}
	return sig, nil
}
