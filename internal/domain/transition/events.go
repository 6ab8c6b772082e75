package transition

import (
	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/shared"
)

// AggregateTypeTransitionHistory is the aggregate type of transition events
const AggregateTypeTransitionHistory = "TransitionHistory"

// EventTypeAssetsTransitioned is raised once per committed transition run
const EventTypeAssetsTransitioned = "AssetsTransitioned"

// AssetsTransitionedEvent is raised when a transition run commits. It is
// written to the outbox in the same transaction as the history record.
type AssetsTransitionedEvent struct {
	shared.BaseDomainEvent
	HistoryID      uuid.UUID    `json:"history_id"`
	TransitionID   uuid.UUID    `json:"transition_id"`
	TransitionSlug string       `json:"transition_slug"`
	ToStatus       asset.Status `json:"to_status,omitempty"`
	AssetIDs       []uuid.UUID  `json:"asset_ids"`
	LoggedUserID   uuid.UUID    `json:"logged_user_id"`
	AffectedUserID *uuid.UUID   `json:"affected_user_id,omitempty"`
	RunID          uuid.UUID    `json:"run_id"`
	ReportFilename string       `json:"report_filename,omitempty"`
	ReportFilePath string       `json:"report_file_path,omitempty"`
	// ReportFileURL is set when the report was archived
	ReportFileURL string `json:"report_file_url,omitempty"`
}

// NewAssetsTransitionedEvent creates the event for a recorded run of t
func NewAssetsTransitionedEvent(t *Transition, h *TransitionHistory) *AssetsTransitionedEvent {
	e := &AssetsTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetsTransitioned, AggregateTypeTransitionHistory, h.ID, h.CreatedAt),
		HistoryID:       h.ID,
		TransitionID:    t.ID,
		TransitionSlug:  t.Slug,
		AssetIDs:        append([]uuid.UUID(nil), h.AssetIDs...),
		LoggedUserID:    h.LoggedUserID,
		AffectedUserID:  h.AffectedUserID,
		RunID:           h.RunID,
	}
	if t.Has(ActionChangeStatus) {
		e.ToStatus = t.ToStatus
	}
	if h.ReportFilename != nil {
		e.ReportFilename = *h.ReportFilename
	}
	if h.ReportFilePath != nil {
		e.ReportFilePath = *h.ReportFilePath
	}
	if h.ReportFileURL != nil {
		e.ReportFileURL = *h.ReportFileURL
	}
	return e
}

// EventType returns the event type name
func (e *AssetsTransitionedEvent) EventType() string {
	return EventTypeAssetsTransitioned
}

// Archived reports whether the run's report was copied to the archive
func (e *AssetsTransitionedEvent) Archived() bool {
	return e.ReportFileURL != ""
}
