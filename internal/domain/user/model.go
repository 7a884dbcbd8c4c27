package user

import (
	"strings"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
)

// State is the account state of a user.
type State string

const (
	StateActive   State = "active"
	StateInactive State = "inactive"
)

func (s State) Label() string {
	switch s {
	case StateActive:
		return "Actif"
	case StateInactive:
		return "Inactif"
	}
	return string(s)
}

// Toggled is the opposite state.
func (s State) Toggled() State {
	if s == StateActive {
		return StateInactive
	}
	return StateActive
}

// Profile is the role-specific sub-entity of a user. Its ID is the foreign
// id used by rendez-vous, diagnostics and signalements.
type Profile struct {
	ID            int64  `json:"id"`
	CIN           string `json:"CIN,omitempty"`
	Specialite    string `json:"specialite,omitempty"`
	Service       string `json:"service,omitempty"`
	GroupeSanguin string `json:"groupe_sanguin,omitempty"`
	User          *User  `json:"user,omitempty"`
}

type User struct {
	CIN           string `json:"CIN"`
	Nom           string `json:"nom"`
	Prenom        string `json:"prenom"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Etat          State  `json:"etat"`
	Telephone     string `json:"telephone,omitempty"`
	Adresse       string `json:"adresse,omitempty"`
	DateNaissance string `json:"date_naissance,omitempty"`

	Patient        *Profile `json:"patient,omitempty"`
	Medecin        *Profile `json:"medecin,omitempty"`
	Infirmier      *Profile `json:"infirmier,omitempty"`
	Receptionniste *Profile `json:"receptionniste,omitempty"`
	Magasinier     *Profile `json:"magasinier,omitempty"`
}

// FullName is "Prénom Nom".
func (u User) FullName() string {
	return strings.TrimSpace(u.Prenom + " " + u.Nom)
}

type profileOf struct{ u User }

func (profileOf) Admin() *Profile            { return nil }
func (p profileOf) Patient() *Profile        { return p.u.Patient }
func (p profileOf) Medecin() *Profile        { return p.u.Medecin }
func (p profileOf) Infirmier() *Profile      { return p.u.Infirmier }
func (p profileOf) Receptionniste() *Profile { return p.u.Receptionniste }
func (p profileOf) Magasinier() *Profile     { return p.u.Magasinier }

// Actor derives the acting identity of u. The entity id is the id of the
// sub-entity matching the role; admins and users without one have none.
func (u User) Actor() (auth.Actor, error) {
	role, err := auth.ParseRole(u.Role)
	if err != nil {
		return auth.Actor{}, err
	}
	a := auth.Actor{CIN: u.CIN, Name: u.FullName(), Role: role}
	if p, _ := auth.Dispatch[*Profile](role, profileOf{u}); p != nil && p.ID > 0 {
		id := p.ID
		a.EntityID = &id
	}
	return a, nil
}

// CreateRequest is the admin form creating a user and its sub-entity.
type CreateRequest struct {
	CIN           string `json:"CIN" validate:"required,cin"`
	Nom           string `json:"nom" validate:"required,max=100"`
	Prenom        string `json:"prenom" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Role          string `json:"role" validate:"required,oneof=admin patient medecin infirmier receptionniste magasinier"`
	Telephone     string `json:"telephone,omitempty" validate:"omitempty,max=20"`
	Adresse       string `json:"adresse,omitempty" validate:"omitempty,max=255"`
	DateNaissance string `json:"date_naissance,omitempty" validate:"omitempty,date"`
	Specialite    string `json:"specialite,omitempty" validate:"required_if=Role medecin"`
	Service       string `json:"service,omitempty" validate:"required_if=Role infirmier"`
	GroupeSanguin string `json:"groupe_sanguin,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
}

type StateRequest struct {
	Etat State `json:"etat" validate:"required,oneof=active inactive"`
}
