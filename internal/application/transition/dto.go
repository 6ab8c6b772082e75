package transition

import (
	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/transition"
)

// PrepareRequest asks whether a transition can be run on some assets
type PrepareRequest struct {
	TransitionType string
	AssetIDs       []uuid.UUID
}

// SubmitRequest runs a transition on some assets
type SubmitRequest struct {
	TransitionType string
	AssetIDs       []uuid.UUID
	LoggedUserID   uuid.UUID
	Form           TransitionForm
}

// SubmitResult is the outcome of a submitted transition. When the request
// was rejected only Validation is set.
type SubmitResult struct {
	Validation     *Validation
	History        *transition.TransitionHistory
	ReportFileName string
	ReportFilePath string
	Messages       []string
}

// Succeeded reports whether the transition was run
func (r *SubmitResult) Succeeded() bool {
	return r.History != nil
}
