// Package lifecycle implements the status state machines shared by
// appointments, diagnostics and signalements, and the controller that applies
// a transition to a cached collection after the backend acknowledged it.
//
// Allowed transitions depend only on the current status and the acting user.
// Hiding an action is not a security boundary: the backend still has to
// reject what it does not allow.
package lifecycle

import (
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
)

// Rule is one allowed edge of a state machine.
type Rule[S ~string] struct {
	From S
	To   S
	// Action is the stable action name ("confirm", "approve", ...).
	Action string
	// Label is the button text.
	Label string
	Roles []auth.Role
	// Assigned requires the actor to be the record's assignee for its role,
	// when the record has one for that role.
	Assigned bool
}

// Action is an operation offered to an actor for one record.
type Action[S ~string] struct {
	Action string `json:"action"`
	Target S      `json:"target"`
	Label  string `json:"label"`
}

// AssigneeFunc returns the record's foreign id for role, if it has one.
type AssigneeFunc func(auth.Role) (int64, bool)

type Machine[S ~string] struct {
	entity string
	states map[S]bool
	order  []S
	rules  []Rule[S]
}

// NewMachine declares the status set and the allowed edges. It panics on a
// rule naming an undeclared status.
func NewMachine[S ~string](entity string, states []S, rules ...Rule[S]) *Machine[S] {
	m := &Machine[S]{entity: entity, states: make(map[S]bool, len(states)), order: states}
	for _, s := range states {
		m.states[s] = true
	}
	for _, r := range rules {
		if !m.states[r.From] || !m.states[r.To] {
			panic("lifecycle: rule " + string(r.From) + " -> " + string(r.To) + " uses an undeclared status for " + entity)
		}
	}
	m.rules = rules
	return m
}

func (m *Machine[S]) Entity() string { return m.entity }

// States returns the declared statuses in declaration order.
func (m *Machine[S]) States() []S {
	out := make([]S, len(m.order))
	copy(out, m.order)
	return out
}

// Valid reports whether s is a declared status.
func (m *Machine[S]) Valid(s S) bool { return m.states[s] }

// Terminal reports whether no edge leaves s.
func (m *Machine[S]) Terminal(s S) bool {
	for _, r := range m.rules {
		if r.From == s {
			return false
		}
	}
	return true
}

// Next lists the statuses reachable from s for any role.
func (m *Machine[S]) Next(s S) []S {
	var out []S
	for _, r := range m.rules {
		if r.From == s {
			out = append(out, r.To)
		}
	}
	return out
}

// Actions lists what actor may do on a record in status current.
func (m *Machine[S]) Actions(current S, actor auth.Actor, assignee AssigneeFunc) []Action[S] {
	out := []Action[S]{}
	for _, r := range m.rules {
		if r.From != current {
			continue
		}
		if permits(r, actor, assignee) != "" {
			continue
		}
		out = append(out, Action[S]{Action: r.Action, Target: r.To, Label: r.Label})
	}
	return out
}

// Check validates current -> target for actor. It returns nil or a
// *TransitionError; id is only used to fill the error.
func (m *Machine[S]) Check(id int64, current, target S, actor auth.Actor, assignee AssigneeFunc) error {
	fail := func(reason Reason) error {
		return &TransitionError{Entity: m.entity, ID: id, From: string(current), To: string(target), Reason: reason}
	}
	if !m.states[target] || !m.states[current] {
		return fail(ReasonUnknownStatus)
	}
	if m.Terminal(current) {
		return fail(ReasonTerminal)
	}

	var reason Reason = ReasonNotAllowed
	for _, r := range m.rules {
		if r.From != current || r.To != target {
			continue
		}
		why := permits(r, actor, assignee)
		if why == "" {
			return nil
		}
		// Prefer the most specific refusal across matching rules.
		if reason == ReasonNotAllowed || why == ReasonNotAssigned {
			reason = why
		}
	}
	return fail(reason)
}

// CheckSettled validates a request for target on a record already in target.
// Such a request changes nothing, but only an actor some rule lets reach
// target may make it.
func (m *Machine[S]) CheckSettled(id int64, target S, actor auth.Actor, assignee AssigneeFunc) error {
	fail := func(reason Reason) error {
		return &TransitionError{Entity: m.entity, ID: id, From: string(target), To: string(target), Reason: reason}
	}
	if !m.states[target] {
		return fail(ReasonUnknownStatus)
	}
	var reason Reason = ReasonNotAllowed
	for _, r := range m.rules {
		if r.To != target {
			continue
		}
		why := permits(r, actor, assignee)
		if why == "" {
			return nil
		}
		if reason == ReasonNotAllowed || why == ReasonNotAssigned {
			reason = why
		}
	}
	return fail(reason)
}

func permits[S ~string](r Rule[S], actor auth.Actor, assignee AssigneeFunc) Reason {
	if !actor.HasRole(r.Roles...) {
		return ReasonRole
	}
	if r.Assigned && assignee != nil {
		if id, ok := assignee(actor.Role); ok && !actor.Is(id) {
			return ReasonNotAssigned
		}
	}
	return ""
}
