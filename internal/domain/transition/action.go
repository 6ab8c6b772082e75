package transition

import (
	"strings"

	"github.com/itam/backend/internal/domain/shared"
)

// Action is one side effect a transition can perform on its assets
type Action string

const (
	ActionChangeStatus    Action = "change_status"
	ActionAssignUser      Action = "assign_user"
	ActionUnassignUser    Action = "unassign_user"
	ActionAssignWarehouse Action = "assign_warehouse"
	ActionReleaseReport   Action = "release_report"
	ActionReturnReport    Action = "return_report"
)

var knownActions = []Action{
	ActionChangeStatus,
	ActionAssignUser,
	ActionUnassignUser,
	ActionAssignWarehouse,
	ActionReleaseReport,
	ActionReturnReport,
}

// AllActions returns the action vocabulary
func AllActions() []Action {
	out := make([]Action, len(knownActions))
	copy(out, knownActions)
	return out
}

// ParseAction converts a configured action name to an Action
func ParseAction(name string) (Action, error) {
	a := Action(strings.TrimSpace(name))
	if !a.IsValid() {
		return "", shared.NewDomainError("UNKNOWN_ACTION", "Unknown transition action: "+name)
	}
	return a, nil
}

// IsValid reports whether the action is part of the vocabulary
func (a Action) IsValid() bool {
	for _, known := range knownActions {
		if a == known {
			return true
		}
	}
	return false
}

// IsReport reports whether the action generates a report document
func (a Action) IsReport() bool {
	return a == ActionReleaseReport || a == ActionReturnReport
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// ActionSet is the de-duplicated set of actions configured on a transition
type ActionSet map[Action]struct{}

// NewActionSet builds a set from a list that may contain duplicates
func NewActionSet(actions ...Action) ActionSet {
	set := make(ActionSet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Has reports whether a is in the set
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// HasReport reports whether any report action is in the set
func (s ActionSet) HasReport() bool {
	return s.Has(ActionReleaseReport) || s.Has(ActionReturnReport)
}
