package appointment

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

// Create books an appointment. A patient always books for themself and a
// receptionniste is recorded as the booking agent. New appointments start
// scheduled.
func (s *Service) Create(ctx context.Context, actor auth.Actor, req *CreateRequest) (Appointment, error) {
	switch actor.Role {
	case auth.RolePatient:
		if actor.EntityID == nil {
			return Appointment{}, validation.FieldErrors{"id_patient": {"Profil patient introuvable."}}
		}
		req.PatientID = *actor.EntityID
	case auth.RoleReceptionniste:
		if req.ReceptionnisteID == nil {
			req.ReceptionnisteID = actor.EntityID
		}
	}
	req.Statut = StatusScheduled

	if err := s.v.Struct(req); err != nil {
		return Appointment{}, err
	}
	fe, err := validation.CheckReferences(ctx, s.refs,
		validation.Ref{Field: "id_patient", Kind: refresolver.KindPatient, ID: req.PatientID},
		validation.Ref{Field: "id_medecin", Kind: refresolver.KindMedecin, ID: req.MedecinID},
	)
	if err != nil {
		return Appointment{}, err
	}
	if fe != nil {
		return Appointment{}, fe
	}
	return s.repo.Create(ctx, req)
}

func (s *Service) Update(ctx context.Context, id int64, req *UpdateRequest) (Appointment, error) {
	if err := s.v.Struct(req); err != nil {
		return Appointment{}, err
	}
	if req.MedecinID != nil {
		fe, err := validation.CheckReferences(ctx, s.refs,
			validation.Ref{Field: "id_medecin", Kind: refresolver.KindMedecin, ID: *req.MedecinID})
		if err != nil {
			return Appointment{}, err
		}
		if fe != nil {
			return Appointment{}, fe
		}
	}
	return s.repo.Update(ctx, id, req)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Desk is one session's appointment dashboard and the writes it allows.
type Desk struct {
	*board.Board[Appointment, Status]
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

// Create books an appointment and reloads the list.
func (d *Desk) Create(ctx context.Context, req *CreateRequest) (Appointment, error) {
	a, err := d.service.Create(ctx, d.actor, req)
	if err != nil {
		return a, err
	}
	d.reload(ctx)
	return a, nil
}

func (d *Desk) Update(ctx context.Context, id int64, req *UpdateRequest) (Appointment, error) {
	if _, ok := d.Get(id); !ok {
		return Appointment{}, board.NotFound(Entity, id)
	}
	a, err := d.service.Update(ctx, id, req)
	if err != nil {
		return a, err
	}
	d.reload(ctx)
	return a, nil
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

// reload refreshes the list after a write; a failure only sets the banner.
func (d *Desk) reload(ctx context.Context) {
	if err := d.Load(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("reload after write failed")
	}
}
