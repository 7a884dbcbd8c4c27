package appointment

import (
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/rolefilter"
)

const Entity = "rendez-vous"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var badges = map[Status]string{
	StatusScheduled: "Prévu",
	StatusConfirmed: "Confirmé",
	StatusCompleted: "Terminé",
	StatusCancelled: "Annulé",
}

// Label is the badge text of the status.
func (s Status) Label() string {
	if l, ok := badges[s]; ok {
		return l
	}
	return string(s)
}

// Machine: scheduled -> confirmed|cancelled, confirmed -> completed.
var Machine = lifecycle.NewMachine(Entity,
	[]Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled},
	lifecycle.Rule[Status]{
		From: StatusScheduled, To: StatusConfirmed, Action: "confirm", Label: "Confirmer",
		Roles: []auth.Role{auth.RoleMedecin, auth.RoleReceptionniste}, Assigned: true,
	},
	lifecycle.Rule[Status]{
		From: StatusScheduled, To: StatusCancelled, Action: "cancel", Label: "Annuler",
		Roles: []auth.Role{auth.RolePatient, auth.RoleMedecin, auth.RoleReceptionniste}, Assigned: true,
	},
	lifecycle.Rule[Status]{
		From: StatusConfirmed, To: StatusCompleted, Action: "complete", Label: "Terminer",
		Roles: []auth.Role{auth.RoleMedecin}, Assigned: true,
	},
)

// Appointment is a rendez-vous as the backend serves it.
type Appointment struct {
	ID               int64  `json:"id"`
	PatientID        int64  `json:"id_patient"`
	MedecinID        int64  `json:"id_medecin"`
	ReceptionnisteID *int64 `json:"id_receptionniste,omitempty"`
	DateRV           string `json:"date_rv"`
	Motif            string `json:"motif"`
	Statut           Status `json:"statut"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

func (a Appointment) Key() int64    { return a.ID }
func (a Appointment) State() Status { return a.Statut }

func (a Appointment) WithState(s Status) Appointment {
	a.Statut = s
	return a
}

// Assignee is the record's id for role: the patient's or the médecin's.
func (a Appointment) Assignee(r auth.Role) (int64, bool) {
	return Scope(r).KeyOf(a)
}

type visibility struct{}

func (visibility) Admin() rolefilter.Scope[Appointment] { return rolefilter.All[Appointment]() }
func (visibility) Patient() rolefilter.Scope[Appointment] {
	return rolefilter.ByKey(func(a Appointment) int64 { return a.PatientID })
}
func (visibility) Medecin() rolefilter.Scope[Appointment] {
	return rolefilter.ByKey(func(a Appointment) int64 { return a.MedecinID })
}
func (visibility) Infirmier() rolefilter.Scope[Appointment] { return rolefilter.None[Appointment]() }
func (visibility) Receptionniste() rolefilter.Scope[Appointment] {
	return rolefilter.All[Appointment]()
}
func (visibility) Magasinier() rolefilter.Scope[Appointment] { return rolefilter.None[Appointment]() }

// Scope is what role may see of the appointment list.
func Scope(r auth.Role) rolefilter.Scope[Appointment] {
	s, ok := auth.Dispatch[rolefilter.Scope[Appointment]](r, visibility{})
	if !ok {
		return rolefilter.None[Appointment]()
	}
	return s
}

var Definition = board.Definition[Appointment, Status]{
	Entity:  Entity,
	Machine: Machine,
	Scope:   Scope,
	Badge:   Status.Label,
	Refs: func(a Appointment) []board.RefField {
		return []board.RefField{
			{Field: "patient", Kind: refresolver.KindPatient, ID: a.PatientID},
			{Field: "medecin", Kind: refresolver.KindMedecin, ID: a.MedecinID},
		}
	},
	Search: func(a Appointment) []string { return []string{a.Motif, a.DateRV} },
}

// CreateRequest is the body of POST /rendezVous.
type CreateRequest struct {
	PatientID        int64  `json:"id_patient" validate:"required,gt=0"`
	MedecinID        int64  `json:"id_medecin" validate:"required,gt=0"`
	ReceptionnisteID *int64 `json:"id_receptionniste,omitempty" validate:"omitempty,gt=0"`
	DateRV           string `json:"date_rv" validate:"required,datetime"`
	Motif            string `json:"motif" validate:"required,max=255"`
	Statut           Status `json:"statut,omitempty"`
}

// UpdateRequest reschedules or edits an appointment; status changes go
// through transitions.
type UpdateRequest struct {
	MedecinID *int64  `json:"id_medecin,omitempty" validate:"omitempty,gt=0"`
	DateRV    *string `json:"date_rv,omitempty" validate:"omitempty,datetime"`
	Motif     *string `json:"motif,omitempty" validate:"omitempty,max=255"`
}

// TransitionRequest is the body of a status change.
type TransitionRequest struct {
	Statut Status `json:"statut"`
}
