// Package workflow implements the appointment status state machine.
// The graph is configuration, not code: administrators edit the
// definition at runtime and every transition is validated against the
// currently active definition.
package workflow

import (
	"github.com/medagenda/scheduling-service/internal/apperror"
)

// Well-known state categories. Guards in the booking service key off
// the category, not the state name, so a renamed or translated graph
// keeps its domain rules.
const (
	CategoryNone      = ""
	CategoryCancelled = "cancelled"
	CategoryCompleted = "completed"
	CategoryNoShow    = "no_show"
)

// Action is one allowed transition out of a state.
type Action struct {
	Target       string `json:"target"`
	Label        string `json:"label,omitempty"`
	RequiresNote bool   `json:"requires_note,omitempty"`
}

// State is a node in the status graph. A state with no actions is
// terminal. Blocking states count toward double-booking checks.
type State struct {
	Name      string   `json:"name"`
	Label     string   `json:"label,omitempty"`
	Category  string   `json:"category,omitempty"`
	Initial   bool     `json:"initial,omitempty"`
	ReConfirm bool     `json:"re_confirm,omitempty"`
	Blocking  bool     `json:"blocking"`
	Actions   []Action `json:"actions,omitempty"`
}

// Terminal reports whether the state has no outgoing actions.
func (s *State) Terminal() bool { return len(s.Actions) == 0 }

// ActionTo returns the declared action reaching target, if any.
func (s *State) ActionTo(target string) (Action, bool) {
	for _, a := range s.Actions {
		if a.Target == target {
			return a, true
		}
	}
	return Action{}, false
}

// Definition is the full status graph.
type Definition struct {
	States []State `json:"states"`
}

// Validate checks referential integrity: every action target must name
// a defined state and exactly one state must be initial.
func (d *Definition) Validate() error {
	if len(d.States) == 0 {
		return apperror.Validation("empty_workflow", "workflow must define at least one state")
	}

	names := make(map[string]bool, len(d.States))
	initials := 0
	for _, s := range d.States {
		if s.Name == "" {
			return apperror.Validation("unnamed_state", "every workflow state needs a name")
		}
		if names[s.Name] {
			return apperror.Validation("duplicate_state", "state %q is defined twice", s.Name)
		}
		names[s.Name] = true
		if s.Initial {
			initials++
		}
	}
	if initials != 1 {
		return apperror.Validation("initial_state", "workflow must have exactly one initial state, found %d", initials)
	}

	for _, s := range d.States {
		for _, a := range s.Actions {
			if !names[a.Target] {
				return apperror.Validation("unknown_target", "state %q has an action to undefined state %q", s.Name, a.Target)
			}
		}
	}
	return nil
}

// State looks a state up by name.
func (d *Definition) State(name string) (*State, bool) {
	for i := range d.States {
		if d.States[i].Name == name {
			return &d.States[i], true
		}
	}
	return nil, false
}

// Initial returns the state new appointments start in. Validate
// guarantees it exists.
func (d *Definition) Initial() State {
	for _, s := range d.States {
		if s.Initial {
			return s
		}
	}
	return State{}
}

// NonBlocking lists the states that do not count toward conflict and
// double-booking checks.
func (d *Definition) NonBlocking() []string {
	var out []string
	for _, s := range d.States {
		if !s.Blocking {
			out = append(out, s.Name)
		}
	}
	return out
}

// StateByCategory returns the first state carrying the category.
func (d *Definition) StateByCategory(category string) (*State, bool) {
	for i := range d.States {
		if d.States[i].Category == category {
			return &d.States[i], true
		}
	}
	return nil, false
}

// Actor is whoever requests a transition or booking. Admins may force
// any transition; staff origin bypasses patient-facing lead-time rules.
type Actor struct {
	ID     int64
	Name   string
	Admin  bool
	Staff  bool
	Groups []string
}

// InGroup reports membership in any of the given groups.
func (a Actor) InGroup(groups []string) bool {
	for _, g := range groups {
		for _, mine := range a.Groups {
			if g == mine {
				return true
			}
		}
	}
	return false
}

// Decision is the outcome of authorizing a transition.
type Decision int

const (
	// DecisionApply performs the status change.
	DecisionApply Decision = iota
	// DecisionTouch means current == target == the re-confirm state:
	// persist a timestamp touch and report success without a real change.
	DecisionTouch
)

// Authorize checks a requested transition against the definition,
// before any domain guard runs. Rules in order: the target must exist;
// terminal states only move for admins; a re-confirm state may be
// re-asserted as a no-op; otherwise the move must be a declared action
// unless the actor is an admin.
func Authorize(d *Definition, current, target string, actor Actor) (Decision, Action, error) {
	if _, ok := d.State(target); !ok {
		return 0, Action{}, apperror.Validation("unknown_status", "status %q is not part of the workflow", target)
	}

	cur, ok := d.State(current)
	if !ok {
		// An appointment stuck in a state removed from the workflow can
		// only be rescued by an admin.
		if actor.Admin {
			return DecisionApply, Action{}, nil
		}
		return 0, Action{}, apperror.Validation("unknown_status", "appointment status %q is not part of the workflow", current)
	}

	if current == target {
		if cur.ReConfirm {
			return DecisionTouch, Action{}, nil
		}
		return 0, Action{}, apperror.Policy("transition_not_allowed", "appointment is already %s", target)
	}

	if cur.Terminal() && !actor.Admin {
		return 0, Action{}, apperror.Policy("terminal_status", "%s is a final status", current)
	}

	if action, ok := cur.ActionTo(target); ok {
		return DecisionApply, action, nil
	}
	if actor.Admin {
		return DecisionApply, Action{}, nil
	}
	return 0, Action{}, apperror.Policy("transition_not_allowed", "cannot move from %s to %s", current, target)
}
