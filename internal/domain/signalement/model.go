package signalement

import (
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/rolefilter"
)

const Entity = "signalement"

type Status string

const (
	StatusPending    Status = "pending"
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
)

var badges = map[Status]string{
	StatusPending:    "En attente",
	StatusResolved:   "Résolu",
	StatusUnresolved: "Non résolu",
}

func (s Status) Label() string {
	if l, ok := badges[s]; ok {
		return l
	}
	return string(s)
}

// Type is the kind of incident reported.
type Type string

const (
	TypeRuptureStock      Type = "rupture_stock"
	TypeDysfonctionnement Type = "dysfonctionnement"
)

var typeLabels = map[Type]string{
	TypeRuptureStock:      "Rupture de stock",
	TypeDysfonctionnement: "Dysfonctionnement",
}

func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Machine: pending -> resolved|unresolved. Both outcomes are final.
var Machine = lifecycle.NewMachine(Entity,
	[]Status{StatusPending, StatusResolved, StatusUnresolved},
	lifecycle.Rule[Status]{
		From: StatusPending, To: StatusResolved, Action: "resolve", Label: "Résolu",
		Roles: []auth.Role{auth.RoleMagasinier}, Assigned: true,
	},
	lifecycle.Rule[Status]{
		From: StatusPending, To: StatusUnresolved, Action: "unresolve", Label: "Non résolu",
		Roles: []auth.Role{auth.RoleMagasinier}, Assigned: true,
	},
)

// Signalement is an incident raised by an infirmier against a product.
type Signalement struct {
	ID           int64  `json:"id"`
	Type         Type   `json:"type"`
	ProduitID    int64  `json:"id_produit"`
	Quantite     int    `json:"quantite"`
	InfirmierID  int64  `json:"id_infirmier"`
	MagasinierID int64  `json:"id_magasinier"`
	Description  string `json:"description"`
	Statut       Status `json:"statut"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func (s Signalement) Key() int64    { return s.ID }
func (s Signalement) State() Status { return s.Statut }

func (s Signalement) WithState(st Status) Signalement {
	s.Statut = st
	return s
}

func (s Signalement) Assignee(r auth.Role) (int64, bool) {
	return Scope(r).KeyOf(s)
}

type visibility struct{}

func (visibility) Admin() rolefilter.Scope[Signalement]   { return rolefilter.All[Signalement]() }
func (visibility) Patient() rolefilter.Scope[Signalement] { return rolefilter.None[Signalement]() }
func (visibility) Medecin() rolefilter.Scope[Signalement] { return rolefilter.None[Signalement]() }
func (visibility) Infirmier() rolefilter.Scope[Signalement] {
	return rolefilter.ByKey(func(s Signalement) int64 { return s.InfirmierID })
}
func (visibility) Receptionniste() rolefilter.Scope[Signalement] {
	return rolefilter.None[Signalement]()
}
func (visibility) Magasinier() rolefilter.Scope[Signalement] {
	return rolefilter.ByKey(func(s Signalement) int64 { return s.MagasinierID })
}

func Scope(r auth.Role) rolefilter.Scope[Signalement] {
	s, ok := auth.Dispatch[rolefilter.Scope[Signalement]](r, visibility{})
	if !ok {
		return rolefilter.None[Signalement]()
	}
	return s
}

var Definition = board.Definition[Signalement, Status]{
	Entity:  Entity,
	Machine: Machine,
	Scope:   Scope,
	Badge:   Status.Label,
	Refs: func(s Signalement) []board.RefField {
		return []board.RefField{
			{Field: "produit", Kind: refresolver.KindProduit, ID: s.ProduitID},
			{Field: "infirmier", Kind: refresolver.KindInfirmier, ID: s.InfirmierID},
			{Field: "magasinier", Kind: refresolver.KindMagasinier, ID: s.MagasinierID},
		}
	},
	Search: func(s Signalement) []string { return []string{s.Description, s.Type.Label()} },
}

type CreateRequest struct {
	Type         Type   `json:"type" validate:"required,oneof=rupture_stock dysfonctionnement"`
	ProduitID    int64  `json:"id_produit" validate:"required,gt=0"`
	Quantite     int    `json:"quantite" validate:"required,gt=0"`
	InfirmierID  int64  `json:"id_infirmier" validate:"required,gt=0"`
	MagasinierID int64  `json:"id_magasinier" validate:"required,gt=0"`
	Description  string `json:"description" validate:"required,max=1000"`
	Statut       Status `json:"statut,omitempty"`
}

type TransitionRequest struct {
	Statut Status `json:"statut"`
}
