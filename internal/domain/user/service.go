package user

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/textsearch"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/pkg/pagination"
)

// Filter narrows the user list.
type Filter struct {
	Query string
	Role  string
	Etat  State
}

func (f Filter) match(u User) bool {
	if f.Role != "" && !strings.EqualFold(textsearch.Fold(u.Role), textsearch.Fold(f.Role)) {
		return false
	}
	if f.Etat != "" && u.Etat != f.Etat {
		return false
	}
	return textsearch.Match(f.Query, u.CIN, u.Nom, u.Prenom, u.Email, u.Role)
}

type Service struct {
	repo   Repository
	v      *validation.Validator
	logger zerolog.Logger
}

func NewService(repo Repository, v *validation.Validator, logger zerolog.Logger) *Service {
	return &Service{repo: repo, v: v, logger: logger}
}

// List returns one page of the users matching f, ordered by name.
func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) (*pagination.Response, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]User, 0, len(all))
	for _, u := range all {
		if f.match(u) {
			matched = append(matched, u)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return textsearch.Fold(matched[i].FullName()) < textsearch.Fold(matched[j].FullName())
	})
	return pagination.NewResponse(pagination.Slice(matched, p), len(matched), p.Limit, p.Offset), nil
}

func (s *Service) Get(ctx context.Context, cin string) (User, error) {
	if !validation.ValidCIN(cin) {
		return User{}, validation.FieldErrors{"CIN": {"CIN invalide."}}
	}
	return s.repo.Get(ctx, cin)
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (User, error) {
	req.CIN = strings.ToUpper(strings.TrimSpace(req.CIN))
	req.Email = strings.TrimSpace(req.Email)
	if err := s.v.Struct(req); err != nil {
		return User{}, err
	}
	u, err := s.repo.Create(ctx, req)
	if err != nil {
		return User{}, err
	}
	s.logger.Info().Str("cin", req.CIN).Str("role", req.Role).Msg("user created")
	return u, nil
}

// SetState activates or deactivates an account. Admins cannot deactivate
// their own account.
func (s *Service) SetState(ctx context.Context, actor auth.Actor, cin string, etat State) error {
	if err := s.v.Struct(&StateRequest{Etat: etat}); err != nil {
		return err
	}
	if etat == StateInactive && strings.EqualFold(actor.CIN, cin) {
		return validation.FieldErrors{"etat": {"Vous ne pouvez pas désactiver votre propre compte."}}
	}
	if err := s.repo.SetState(ctx, cin, etat); err != nil {
		return err
	}
	s.logger.Info().Str("cin", cin).Str("etat", string(etat)).Str("by", actor.CIN).Msg("user state changed")
	return nil
}

// Toggle flips the account state and returns the new one.
func (s *Service) Toggle(ctx context.Context, actor auth.Actor, cin string) (State, error) {
	u, err := s.Get(ctx, cin)
	if err != nil {
		return "", err
	}
	next := u.Etat.Toggled()
	if err := s.SetState(ctx, actor, cin, next); err != nil {
		return "", err
	}
	return next, nil
}
