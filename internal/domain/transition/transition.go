// Package transition models transitions of assets between users, warehouses
// and statuses, and the history records they leave behind.
package transition

import (
	"strings"

	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
)

// Transition is an administrator-defined workflow: a named set of actions
// and the status assets end up in.
type Transition struct {
	shared.BaseEntity
	Name     string
	Slug     string
	ToStatus asset.Status
	Actions  []Action
}

// NewTransition creates a transition. Duplicate actions are kept as configured;
// ActionSet collapses them.
func NewTransition(name, slug string, toStatus asset.Status, actions []Action) (*Transition, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Transition name cannot be empty")
	}
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Transition slug cannot be empty")
	}
	for _, a := range actions {
		if !a.IsValid() {
			return nil, shared.NewDomainError("UNKNOWN_ACTION", "Unknown transition action: "+string(a))
		}
	}
	t := &Transition{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Slug:       slug,
		ToStatus:   toStatus,
		Actions:    append([]Action(nil), actions...),
	}
	if t.Has(ActionChangeStatus) && !toStatus.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Transition changing status needs a valid target status")
	}
	return t, nil
}

// ActionSet returns the configured actions without duplicates
func (t *Transition) ActionSet() ActionSet {
	return NewActionSet(t.Actions...)
}

// Has reports whether the transition is configured with a
func (t *Transition) Has(a Action) bool {
	for _, configured := range t.Actions {
		if configured == a {
			return true
		}
	}
	return false
}

// AssignsUser reports whether running the transition needs a target user
func (t *Transition) AssignsUser() bool {
	return t.Has(ActionAssignUser)
}

// AssignsWarehouse reports whether running the transition needs a warehouse
func (t *Transition) AssignsWarehouse() bool {
	return t.Has(ActionAssignWarehouse)
}
