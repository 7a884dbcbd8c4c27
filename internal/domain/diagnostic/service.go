package diagnostic

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/listing"
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

// Create records a pending diagnostic. A médecin creating one is its
// assigned médecin.
func (s *Service) Create(ctx context.Context, actor auth.Actor, req *CreateRequest) (Diagnostic, error) {
	if actor.Role == auth.RoleMedecin {
		if actor.EntityID == nil {
			return Diagnostic{}, validation.FieldErrors{"id_medecin": {"Profil médecin introuvable."}}
		}
		req.MedecinID = *actor.EntityID
	}
	req.Statut = StatusPending

	if err := s.v.Struct(req); err != nil {
		return Diagnostic{}, err
	}
	fe, err := validation.CheckReferences(ctx, s.refs,
		validation.Ref{Field: "id_patient", Kind: refresolver.KindPatient, ID: req.PatientID},
		validation.Ref{Field: "id_medecin", Kind: refresolver.KindMedecin, ID: req.MedecinID},
	)
	if err != nil {
		return Diagnostic{}, err
	}
	if fe != nil {
		return Diagnostic{}, fe
	}
	return s.repo.Create(ctx, req)
}

func (s *Service) Update(ctx context.Context, id int64, req *UpdateRequest) (Diagnostic, error) {
	if err := s.v.Struct(req); err != nil {
		return Diagnostic{}, err
	}
	return s.repo.Update(ctx, id, req)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Fetcher picks the list endpoint for actor: patients only load their own
// diagnostics.
func Fetcher(repo Repository, actor auth.Actor) listing.Fetcher[Diagnostic] {
	if actor.Role == auth.RolePatient {
		return func(ctx context.Context) ([]Diagnostic, error) {
			if actor.EntityID == nil {
				return []Diagnostic{}, nil
			}
			return repo.ListForPatient(ctx, *actor.EntityID)
		}
	}
	return repo.List
}

type Desk struct {
	*board.Board[Diagnostic, Status]
	actor   auth.Actor
	service *Service
	logger  zerolog.Logger
}

func NewDesk(actor auth.Actor, repo Repository, v *validation.Validator, refs *refresolver.Resolver, logger zerolog.Logger) *Desk {
	return &Desk{
		Board:   board.New(Definition, actor, Fetcher(repo, actor), repo.SetStatus, refs, logger),
		actor:   actor,
		service: NewService(repo, v, refs),
		logger:  logger,
	}
}

func (d *Desk) Create(ctx context.Context, req *CreateRequest) (Diagnostic, error) {
	diag, err := d.service.Create(ctx, d.actor, req)
	if err != nil {
		return diag, err
	}
	d.reload(ctx)
	return diag, nil
}

// Update edits a diagnostic still pending; decided diagnostics are frozen.
func (d *Desk) Update(ctx context.Context, id int64, req *UpdateRequest) (Diagnostic, error) {
	cur, ok := d.Get(id)
	if !ok {
		return Diagnostic{}, board.NotFound(Entity, id)
	}
	if cur.Statut != StatusPending {
		return Diagnostic{}, validation.FieldErrors{"statut": {"Un diagnostic validé ou rejeté ne peut plus être modifié."}}
	}
	diag, err := d.service.Update(ctx, id, req)
	if err != nil {
		return diag, err
	}
	d.reload(ctx)
	return diag, nil
}

func (d *Desk) Delete(ctx context.Context, id int64) error {
	if _, ok := d.Get(id); !ok {
		return board.NotFound(Entity, id)
	}
	if err := d.service.Delete(ctx, id); err != nil {
		return err
	}
	d.reload(ctx)
	return nil
}

func (d *Desk) reload(ctx context.Context) {
	if err := d.Load(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("reload after write failed")
	}
}
