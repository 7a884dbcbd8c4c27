package auth

import (
	"fmt"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/textsearch"
)

// Role is one of the six hospital roles. The zero value is not a valid role.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RolePatient
	RoleMedecin
	RoleInfirmier
	RoleReceptionniste
	RoleMagasinier
)

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleAdmin, RolePatient, RoleMedecin, RoleInfirmier, RoleReceptionniste, RoleMagasinier}

var roleNames = map[Role]string{
	RoleAdmin:          "admin",
	RolePatient:        "patient",
	RoleMedecin:        "medecin",
	RoleInfirmier:      "infirmier",
	RoleReceptionniste: "receptionniste",
	RoleMagasinier:     "magasinier",
}

var roleLabels = map[Role]string{
	RoleAdmin:          "Administrateur",
	RolePatient:        "Patient",
	RoleMedecin:        "Médecin",
	RoleInfirmier:      "Infirmier",
	RoleReceptionniste: "Réceptionniste",
	RoleMagasinier:     "Magasinier",
}

// ParseRole accepts the backend spelling of a role, ignoring case and accents.
func ParseRole(s string) (Role, error) {
	folded := textsearch.Fold(s)
	for r, name := range roleNames {
		if name == folded {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Label is the French display name of the role.
func (r Role) Label() string {
	return roleLabels[r]
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSwitch has one method per role. Every behaviour that depends on the
// acting role implements it, so adding or removing a role breaks the build of
// each implementation until it handles the change.
type RoleSwitch[T any] interface {
	Admin() T
	Patient() T
	Medecin() T
	Infirmier() T
	Receptionniste() T
	Magasinier() T
}

// Dispatch selects the RoleSwitch branch for r. It returns false for an
// invalid role so callers can fail closed.
func Dispatch[T any](r Role, s RoleSwitch[T]) (T, bool) {
	switch r {
	case RoleAdmin:
		return s.Admin(), true
	case RolePatient:
		return s.Patient(), true
	case RoleMedecin:
		return s.Medecin(), true
	case RoleInfirmier:
		return s.Infirmier(), true
	case RoleReceptionniste:
		return s.Receptionniste(), true
	case RoleMagasinier:
		return s.Magasinier(), true
	}
	var zero T
	return zero, false
}

// Actor is the user performing an operation. EntityID is the id of the user's
// role-specific record (id_patient, id_medecin, ...) and is nil when the
// backend did not provide one.
type Actor struct {
	CIN      string `json:"cin"`
	Name     string `json:"name,omitempty"`
	Role     Role   `json:"role"`
	EntityID *int64 `json:"entity_id,omitempty"`
}

// Is reports whether the actor's role entity id equals id.
func (a Actor) Is(id int64) bool {
	return a.EntityID != nil && *a.EntityID == id
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
