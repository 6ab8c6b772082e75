package transition

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/domain/transition"
	"go.uber.org/zap"
)

// ErrNoReport is returned when a history record has no report to download
var ErrNoReport = shared.NewDomainError("NOT_FOUND", "Transition has no report")

// HistoryFilter narrows history listings. Zero values are ignored.
type HistoryFilter struct {
	TransitionID   *uuid.UUID
	AssetID        *uuid.UUID
	LoggedUserID   *uuid.UUID
	AffectedUserID *uuid.UUID
	Page           int
	PageSize       int
	OrderDir       string
}

// ReportFile says where the report of a history record can be fetched.
// Location is the archived location when the report was archived, the
// local output path otherwise.
type ReportFile struct {
	FileName string
	Location string
	Archived bool
}

// HistoryService is the read side of transition history
type HistoryService struct {
	repo   transition.HistoryRepository
	logger *zap.Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(repo transition.HistoryRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, logger: logger}
}

// List returns a page of history records, newest first unless asked otherwise
func (s *HistoryService) List(ctx context.Context, f HistoryFilter) (*shared.Paginated[transition.TransitionHistory], error) {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = min(f.PageSize, 100)
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	setFilter(filter.Filters, "transition_id", f.TransitionID)
	setFilter(filter.Filters, "asset_id", f.AssetID)
	setFilter(filter.Filters, "logged_user_id", f.LoggedUserID)
	setFilter(filter.Filters, "affected_user_id", f.AffectedUserID)

	items, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transition history: %w", err)
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count transition history: %w", err)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Get returns one history record
func (s *HistoryService) Get(ctx context.Context, id uuid.UUID) (*transition.TransitionHistory, error) {
	h, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Transition history not found")
		}
		return nil, fmt.Errorf("failed to load transition history %s: %w", id, err)
	}
	return h, nil
}

// Report returns where the report of a history record is kept
func (s *HistoryService) Report(ctx context.Context, id uuid.UUID) (*ReportFile, error) {
	h, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !h.HasReport() {
		return nil, ErrNoReport
	}
	if h.ReportFileURL != nil {
		return &ReportFile{FileName: *h.ReportFilename, Location: *h.ReportFileURL, Archived: true}, nil
	}
	if h.ReportFilePath == nil {
		s.logger.Warn("history report has no location", zap.String("history_id", id.String()))
		return nil, ErrNoReport
	}
	return &ReportFile{FileName: *h.ReportFilename, Location: *h.ReportFilePath}, nil
}

func setFilter(filters map[string]any, key string, id *uuid.UUID) {
	if id != nil {
		filters[key] = *id
	}
}
