package transition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"go.uber.org/zap"
)

func assetsTransitioned(event shared.DomainEvent, logger *zap.Logger) (*transition.AssetsTransitionedEvent, error) {
	e, ok := event.(*transition.AssetsTransitionedEvent)
	if !ok {
		logger.Error("unexpected event type",
			zap.String("expected", transition.EventTypeAssetsTransitioned),
			zap.String("actual", event.EventType()),
		)
		return nil, fmt.Errorf("unexpected event type: expected %s, got %s",
			transition.EventTypeAssetsTransitioned, event.EventType())
	}
	return e, nil
}

// TransitionAuditHandler writes one structured audit line per committed run
type TransitionAuditHandler struct {
	logger *zap.Logger
}

// NewTransitionAuditHandler creates the audit handler
func NewTransitionAuditHandler(logger *zap.Logger) *TransitionAuditHandler {
	return &TransitionAuditHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *TransitionAuditHandler) EventTypes() []string {
	return []string{transition.EventTypeAssetsTransitioned}
}

// Handle logs the run
func (h *TransitionAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	e, err := assetsTransitioned(event, h.logger)
	if err != nil {
		return err
	}

	assetIDs := make([]string, len(e.AssetIDs))
	for i, id := range e.AssetIDs {
		assetIDs[i] = id.String()
	}
	fields := []zap.Field{
		zap.String("history_id", e.HistoryID.String()),
		zap.String("run_id", e.RunID.String()),
		zap.String("transition", e.TransitionSlug),
		zap.Strings("asset_ids", assetIDs),
		zap.String("logged_user_id", e.LoggedUserID.String()),
		zap.Time("occurred_at", e.OccurredAt()),
	}
	if e.ToStatus != "" {
		fields = append(fields, zap.String("to_status", string(e.ToStatus)))
	}
	if e.AffectedUserID != nil {
		fields = append(fields, zap.String("affected_user_id", e.AffectedUserID.String()))
	}
	if e.ReportFilename != "" {
		fields = append(fields, zap.String("report", e.ReportFilename), zap.Bool("archived", e.Archived()))
	}

	h.logger.Info("assets transitioned", fields...)
	return nil
}

// ArchivedReportCleanupHandler removes the temporary copy of a report once it
// has been archived elsewhere
type ArchivedReportCleanupHandler struct {
	logger *zap.Logger
}

// NewArchivedReportCleanupHandler creates the cleanup handler
func NewArchivedReportCleanupHandler(logger *zap.Logger) *ArchivedReportCleanupHandler {
	return &ArchivedReportCleanupHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ArchivedReportCleanupHandler) EventTypes() []string {
	return []string{transition.EventTypeAssetsTransitioned}
}

// Handle deletes ReportFilePath when the run's report was archived.
// An already missing file is not an error.
func (h *ArchivedReportCleanupHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	e, err := assetsTransitioned(event, h.logger)
	if err != nil {
		return err
	}
	if !e.Archived() || e.ReportFilePath == "" {
		return nil
	}

	tempPath := filepath.Clean(e.ReportFilePath)
	// An archive directory may be the temp directory itself
	if archived, ok := strings.CutPrefix(e.ReportFileURL, "file://"); ok && filepath.Clean(archived) == tempPath {
		return nil
	}

	if err := os.Remove(tempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove archived report %s: %w", tempPath, err)
	}

	h.logger.Debug("removed temporary report",
		zap.String("history_id", e.HistoryID.String()),
		zap.String("path", tempPath),
	)
	return nil
}

var (
	_ shared.EventHandler = (*TransitionAuditHandler)(nil)
	_ shared.EventHandler = (*ArchivedReportCleanupHandler)(nil)
)
