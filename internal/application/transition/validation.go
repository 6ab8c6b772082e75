package transition

import (
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/transition"
)

// ValidationState is where a transition request is in its precondition checks
type ValidationState string

const (
	StateUnvalidated ValidationState = "UNVALIDATED"
	StateValidating  ValidationState = "VALIDATING"
	StateReady       ValidationState = "READY"
	StateRejected    ValidationState = "REJECTED"
)

// User-facing messages
const (
	MsgTransitionsDisabled  = "Assets transitions is disabled"
	MsgUnsupportedType      = "Unsupported transition type"
	MsgTransitionNotFound   = "Transition object not found"
	MsgDifferentUsers       = "Asset has different user: %s"
	MsgNoAssignedUser       = "Asset has no assigned user"
	MsgTemplateNotFound     = "Report template does not exist"
	MsgNoAssetsSelected     = "No assets selected"
	MsgAssetNotFound        = "Asset not found: %s"
	MsgCorrectErrors        = "Please correct errors."
	MsgTransitionsSucceeded = "Transitions performed successfully"
)

// unassignedOwner stands in for a missing owner in MsgDifferentUsers
const unassignedOwner = "unassigned"

// Validation collects the outcome of the precondition checks of one request.
// Errors accumulate; a check is only skipped when it depends on the output of
// one that failed.
type Validation struct {
	State           ValidationState
	TransitionType  transition.TransitionType
	Transition      *transition.Transition
	Template        *transition.ReportTemplateSource
	Assets          []*asset.Asset
	AssignUser      bool
	AssignWarehouse bool
	Errors          []string
	FieldErrors     map[string]string
}

func newValidation(transitionType transition.TransitionType) *Validation {
	return &Validation{
		State:          StateUnvalidated,
		TransitionType: transitionType,
		FieldErrors:    make(map[string]string),
	}
}

func (v *Validation) begin() {
	if v.State == StateUnvalidated {
		v.State = StateValidating
	}
}

func (v *Validation) reject(message string) {
	v.Errors = append(v.Errors, message)
}

func (v *Validation) rejectField(field, message string) {
	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
}

// complete moves the validation to READY or REJECTED
func (v *Validation) complete() {
	if v.HasErrors() {
		v.State = StateRejected
		return
	}
	v.State = StateReady
}

// HasErrors reports whether any check failed so far
func (v *Validation) HasErrors() bool {
	return len(v.Errors) > 0 || len(v.FieldErrors) > 0
}

// Ready reports whether the request passed every check
func (v *Validation) Ready() bool {
	return v.State == StateReady
}

// Rejected reports whether the request failed a check
func (v *Validation) Rejected() bool {
	return v.State == StateRejected
}
