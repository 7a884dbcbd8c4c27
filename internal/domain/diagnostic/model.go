package diagnostic

import (
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/rolefilter"
)

const Entity = "diagnostic"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var badges = map[Status]string{
	StatusPending:  "En attente",
	StatusApproved: "Approuvé",
	StatusRejected: "Rejeté",
}

func (s Status) Label() string {
	if l, ok := badges[s]; ok {
		return l
	}
	return string(s)
}

// Only the assigned médecin decides on a pending diagnostic.
var Machine = lifecycle.NewMachine(Entity,
	[]Status{StatusPending, StatusApproved, StatusRejected},
	lifecycle.Rule[Status]{
		From: StatusPending, To: StatusApproved, Action: "approve", Label: "Approuver",
		Roles: []auth.Role{auth.RoleMedecin}, Assigned: true,
	},
	lifecycle.Rule[Status]{
		From: StatusPending, To: StatusRejected, Action: "reject", Label: "Rejeter",
		Roles: []auth.Role{auth.RoleMedecin}, Assigned: true,
	},
)

type Diagnostic struct {
	ID          int64  `json:"id"`
	PatientID   int64  `json:"id_patient"`
	MedecinID   int64  `json:"id_medecin"`
	DateD       string `json:"dateD"`
	Description string `json:"description"`
	Resultats   string `json:"resultats"`
	Statut      Status `json:"statut"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func (d Diagnostic) Key() int64    { return d.ID }
func (d Diagnostic) State() Status { return d.Statut }

func (d Diagnostic) WithState(s Status) Diagnostic {
	d.Statut = s
	return d
}

func (d Diagnostic) Assignee(r auth.Role) (int64, bool) {
	return Scope(r).KeyOf(d)
}

type visibility struct{}

func (visibility) Admin() rolefilter.Scope[Diagnostic] { return rolefilter.All[Diagnostic]() }
func (visibility) Patient() rolefilter.Scope[Diagnostic] {
	return rolefilter.ByKey(func(d Diagnostic) int64 { return d.PatientID })
}
func (visibility) Medecin() rolefilter.Scope[Diagnostic] {
	return rolefilter.ByKey(func(d Diagnostic) int64 { return d.MedecinID })
}

// Infirmiers record diagnostics for any patient.
func (visibility) Infirmier() rolefilter.Scope[Diagnostic]      { return rolefilter.All[Diagnostic]() }
func (visibility) Receptionniste() rolefilter.Scope[Diagnostic] { return rolefilter.None[Diagnostic]() }
func (visibility) Magasinier() rolefilter.Scope[Diagnostic]     { return rolefilter.None[Diagnostic]() }

func Scope(r auth.Role) rolefilter.Scope[Diagnostic] {
	s, ok := auth.Dispatch[rolefilter.Scope[Diagnostic]](r, visibility{})
	if !ok {
		return rolefilter.None[Diagnostic]()
	}
	return s
}

var Definition = board.Definition[Diagnostic, Status]{
	Entity:  Entity,
	Machine: Machine,
	Scope:   Scope,
	Badge:   Status.Label,
	Refs: func(d Diagnostic) []board.RefField {
		return []board.RefField{
			{Field: "patient", Kind: refresolver.KindPatient, ID: d.PatientID},
			{Field: "medecin", Kind: refresolver.KindMedecin, ID: d.MedecinID},
		}
	},
	Search: func(d Diagnostic) []string { return []string{d.Description, d.Resultats, d.DateD} },
}

type CreateRequest struct {
	PatientID   int64  `json:"id_patient" validate:"required,gt=0"`
	MedecinID   int64  `json:"id_medecin" validate:"required,gt=0"`
	DateD       string `json:"dateD" validate:"required,date"`
	Description string `json:"description" validate:"required"`
	Resultats   string `json:"resultats,omitempty"`
	Statut      Status `json:"statut,omitempty"`
}

type UpdateRequest struct {
	DateD       *string `json:"dateD,omitempty" validate:"omitempty,date"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=1"`
	Resultats   *string `json:"resultats,omitempty"`
}

type TransitionRequest struct {
	Statut Status `json:"statut"`
}
