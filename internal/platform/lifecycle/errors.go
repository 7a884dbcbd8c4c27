package lifecycle

import "fmt"

// Reason says why a transition was refused.
type Reason string

const (
	ReasonNotFound      Reason = "not_found"
	ReasonUnknownStatus Reason = "unknown_status"
	ReasonTerminal      Reason = "terminal"
	ReasonNotAllowed    Reason = "not_allowed"
	ReasonRole          Reason = "role"
	ReasonNotAssigned   Reason = "not_assigned"
	ReasonInFlight      Reason = "in_flight"
)

var reasonMessages = map[Reason]string{
	ReasonNotFound:      "Enregistrement introuvable.",
	ReasonUnknownStatus: "Statut inconnu.",
	ReasonTerminal:      "Ce statut est définitif.",
	ReasonNotAllowed:    "Changement de statut non autorisé.",
	ReasonRole:          "Votre rôle ne permet pas cette action.",
	ReasonNotAssigned:   "Cet enregistrement ne vous est pas attribué.",
	ReasonInFlight:      "Une modification est déjà en cours pour cet enregistrement.",
}

// TransitionError is returned for a refused transition. The record is left
// unchanged and no backend call was made.
type TransitionError struct {
	Entity string
	ID     int64
	From   string
	To     string
	Reason Reason
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %d: transition %q -> %q refused: %s", e.Entity, e.ID, e.From, e.To, e.Reason)
}

// Message is the user facing explanation.
func (e *TransitionError) Message() string {
	return reasonMessages[e.Reason]
}
