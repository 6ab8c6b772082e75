package transition

import (
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/shared"
)

// TransitionHistory records one successful transition run. It is append-only.
type TransitionHistory struct {
	ID             uuid.UUID
	TransitionID   uuid.UUID
	AssetIDs       []uuid.UUID
	LoggedUserID   uuid.UUID
	AffectedUserID *uuid.UUID
	RunID          uuid.UUID
	ReportFilename *string
	ReportFilePath *string
	ReportFileURL  *string
	CreatedAt      time.Time
}

// HistoryParams holds what a run knows when it records itself
type HistoryParams struct {
	TransitionID   uuid.UUID
	AssetIDs       []uuid.UUID
	LoggedUserID   uuid.UUID
	AffectedUserID *uuid.UUID
	RunID          uuid.UUID
	ReportFilename string
	ReportFilePath string
	ReportFileURL  string
	CreatedAt      time.Time
}

// NewTransitionHistory creates a history record. Empty report fields are stored as null.
func NewTransitionHistory(p HistoryParams) (*TransitionHistory, error) {
	if p.TransitionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_HISTORY", "History needs a transition")
	}
	if len(p.AssetIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_HISTORY", "History needs at least one asset")
	}
	if p.RunID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_HISTORY", "History needs a run id")
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &TransitionHistory{
		ID:             uuid.New(),
		TransitionID:   p.TransitionID,
		AssetIDs:       append([]uuid.UUID(nil), p.AssetIDs...),
		LoggedUserID:   p.LoggedUserID,
		AffectedUserID: p.AffectedUserID,
		RunID:          p.RunID,
		ReportFilename: optional(p.ReportFilename),
		ReportFilePath: optional(p.ReportFilePath),
		ReportFileURL:  optional(p.ReportFileURL),
		CreatedAt:      createdAt,
	}, nil
}

// HasReport reports whether the run produced a report file
func (h *TransitionHistory) HasReport() bool {
	return h.ReportFilename != nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
