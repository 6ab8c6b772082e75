package transition_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/identity"
	"github.com/itam/backend/internal/domain/shared"
	domain "github.com/itam/backend/internal/domain/transition"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*asset.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asset.Asset), args.Error(1)
}

func (m *MockAssetRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]asset.Asset, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]asset.Asset), args.Error(1)
}

func (m *MockAssetRepository) Find(ctx context.Context, filter asset.AssetFilter) ([]asset.Asset, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]asset.Asset), args.Error(1)
}

func (m *MockAssetRepository) Save(ctx context.Context, a *asset.Asset) error {
	// Record a snapshot so later mutations do not change what was saved
	args := m.Called(ctx, a.Clone())
	return args.Error(0)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(ctx context.Context, history *domain.TransitionHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockHistoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TransitionHistory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransitionHistory), args.Error(1)
}

func (m *MockHistoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]domain.TransitionHistory, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TransitionHistory), args.Error(1)
}

func (m *MockHistoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockReportRenderer struct {
	mock.Mock
}

func (m *MockReportRenderer) Render(ctx context.Context, templatePath, outputPath string, data transition.ReportData) error {
	args := m.Called(ctx, templatePath, outputPath, data)
	return args.Error(0)
}

type MockReportArchive struct {
	mock.Mock
}

func (m *MockReportArchive) Archive(ctx context.Context, localPath, fileName string) (string, error) {
	args := m.Called(ctx, localPath, fileName)
	return args.String(0), args.Error(1)
}

func (m *MockReportArchive) Remove(ctx context.Context, location string) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]identity.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockWarehouseRepository struct {
	mock.Mock
}

func (m *MockWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*asset.Warehouse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asset.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) FindAll(ctx context.Context) ([]asset.Warehouse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]asset.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) Save(ctx context.Context, w *asset.Warehouse) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

type MockTransitionRepository struct {
	mock.Mock
}

func (m *MockTransitionRepository) FindBySlug(ctx context.Context, slug string) (*domain.Transition, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transition), args.Error(1)
}

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) FindBySlug(ctx context.Context, slug string) (*domain.ReportTemplateSource, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportTemplateSource), args.Error(1)
}

var (
	_ asset.AssetRepository           = (*MockAssetRepository)(nil)
	_ asset.WarehouseRepository       = (*MockWarehouseRepository)(nil)
	_ identity.UserRepository         = (*MockUserRepository)(nil)
	_ domain.HistoryRepository        = (*MockHistoryRepository)(nil)
	_ domain.TransitionRepository     = (*MockTransitionRepository)(nil)
	_ domain.ReportTemplateRepository = (*MockTemplateRepository)(nil)
	_ transition.ReportRenderer       = (*MockReportRenderer)(nil)
	_ transition.ReportArchive        = (*MockReportArchive)(nil)
)

// =============================================================================
// Fixtures
// =============================================================================

func newUser(username string) *identity.User {
	return &identity.User{BaseEntity: shared.NewBaseEntity(), Username: username, Active: true}
}

func newAsset(status asset.Status, owner *identity.User) *asset.Asset {
	sn := "SN-" + uuid.NewString()[:8]
	a := &asset.Asset{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              asset.AssetTypeBackOffice,
		SN:                &sn,
		Status:            status,
	}
	if owner != nil {
		a.AssignOwner(owner.ID)
	}
	return a
}

func newTransition(slug string, toStatus asset.Status, actions ...domain.Action) *domain.Transition {
	return &domain.Transition{
		BaseEntity: shared.NewBaseEntity(),
		Name:       slug,
		Slug:       slug,
		ToStatus:   toStatus,
		Actions:    actions,
	}
}

func newTemplate(slug string) *domain.ReportTemplateSource {
	return &domain.ReportTemplateSource{
		BaseEntity:   shared.NewBaseEntity(),
		Name:         slug,
		Slug:         slug,
		TemplatePath: "/templates/" + slug + ".html",
	}
}

// MockEventPublisher records published events. It expects one event per call.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var first shared.DomainEvent
	if len(events) > 0 {
		first = events[0]
	}
	args := m.Called(ctx, first)
	return args.Error(0)
}
