package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/transition"
)

// TransitionModel is the persistence model for a Transition
type TransitionModel struct {
	BaseModel
	Name     string                  `gorm:"type:varchar(75);not null"`
	Slug     string                  `gorm:"type:varchar(75);not null;uniqueIndex"`
	ToStatus asset.Status            `gorm:"type:varchar(30)"`
	Actions  []TransitionActionModel `gorm:"foreignKey:TransitionID"`
}

// TableName returns the table name for GORM
func (TransitionModel) TableName() string {
	return "transitions"
}

// TransitionActionModel is one configured action of a transition. Position
// keeps the configured order; duplicates are allowed.
type TransitionActionModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primary_key"`
	TransitionID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Action       transition.Action `gorm:"type:varchar(30);not null"`
	Position     int               `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (TransitionActionModel) TableName() string {
	return "transition_actions"
}

// ToDomain converts the persistence model to a domain Transition.
// Actions must be preloaded in position order.
func (m *TransitionModel) ToDomain() *transition.Transition {
	actions := make([]transition.Action, len(m.Actions))
	for i, a := range m.Actions {
		actions[i] = a.Action
	}
	return &transition.Transition{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Slug:       m.Slug,
		ToStatus:   m.ToStatus,
		Actions:    actions,
	}
}

// TransitionModelFromDomain creates a new persistence model from a domain Transition
func TransitionModelFromDomain(t *transition.Transition) *TransitionModel {
	m := &TransitionModel{
		Name:     t.Name,
		Slug:     t.Slug,
		ToStatus: t.ToStatus,
		Actions:  make([]TransitionActionModel, len(t.Actions)),
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	for i, a := range t.Actions {
		m.Actions[i] = TransitionActionModel{
			ID:           uuid.New(),
			TransitionID: t.ID,
			Action:       a,
			Position:     i,
		}
	}
	return m
}

// ReportTemplateModel is the persistence model for a report template source
type ReportTemplateModel struct {
	BaseModel
	Name         string `gorm:"type:varchar(100);not null"`
	Slug         string `gorm:"type:varchar(100);not null;uniqueIndex"`
	TemplatePath string `gorm:"type:varchar(500);not null"`
}

// TableName returns the table name for GORM
func (ReportTemplateModel) TableName() string {
	return "report_templates"
}

// ToDomain converts the persistence model to a domain ReportTemplateSource
func (m *ReportTemplateModel) ToDomain() *transition.ReportTemplateSource {
	return &transition.ReportTemplateSource{
		BaseEntity:   m.BaseModel.ToDomain(),
		Name:         m.Name,
		Slug:         m.Slug,
		TemplatePath: m.TemplatePath,
	}
}

// ReportTemplateModelFromDomain creates a new persistence model from a domain ReportTemplateSource
func ReportTemplateModelFromDomain(r *transition.ReportTemplateSource) *ReportTemplateModel {
	m := &ReportTemplateModel{
		Name:         r.Name,
		Slug:         r.Slug,
		TemplatePath: r.TemplatePath,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// TransitionHistoryModel is the persistence model for a transition history record
type TransitionHistoryModel struct {
	ID             uuid.UUID                     `gorm:"type:uuid;primary_key"`
	TransitionID   uuid.UUID                     `gorm:"type:uuid;not null;index"`
	LoggedUserID   uuid.UUID                     `gorm:"type:uuid;not null;index"`
	AffectedUserID *uuid.UUID                    `gorm:"type:uuid;index"`
	RunID          uuid.UUID                     `gorm:"type:uuid;not null;uniqueIndex"`
	ReportFilename *string                       `gorm:"type:varchar(256)"`
	ReportFilePath *string                       `gorm:"type:varchar(1024)"`
	ReportFileURL  *string                       `gorm:"column:report_file_url;type:varchar(1024)"`
	CreatedAt      time.Time                     `gorm:"not null;index"`
	Assets         []TransitionHistoryAssetModel `gorm:"foreignKey:HistoryID"`
}

// TableName returns the table name for GORM
func (TransitionHistoryModel) TableName() string {
	return "transition_histories"
}

// TransitionHistoryAssetModel links a history record to one asset of its batch
type TransitionHistoryAssetModel struct {
	HistoryID uuid.UUID `gorm:"type:uuid;primary_key"`
	AssetID   uuid.UUID `gorm:"type:uuid;primary_key;index"`
	Position  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (TransitionHistoryAssetModel) TableName() string {
	return "transition_history_assets"
}

// ToDomain converts the persistence model to a domain TransitionHistory.
// Assets must be preloaded in position order.
func (m *TransitionHistoryModel) ToDomain() *transition.TransitionHistory {
	assetIDs := make([]uuid.UUID, len(m.Assets))
	for i, a := range m.Assets {
		assetIDs[i] = a.AssetID
	}
	return &transition.TransitionHistory{
		ID:             m.ID,
		TransitionID:   m.TransitionID,
		AssetIDs:       assetIDs,
		LoggedUserID:   m.LoggedUserID,
		AffectedUserID: m.AffectedUserID,
		RunID:          m.RunID,
		ReportFilename: m.ReportFilename,
		ReportFilePath: m.ReportFilePath,
		ReportFileURL:  m.ReportFileURL,
		CreatedAt:      m.CreatedAt,
	}
}

// TransitionHistoryModelFromDomain creates a new persistence model from a domain TransitionHistory
func TransitionHistoryModelFromDomain(h *transition.TransitionHistory) *TransitionHistoryModel {
	m := &TransitionHistoryModel{
		ID:             h.ID,
		TransitionID:   h.TransitionID,
		LoggedUserID:   h.LoggedUserID,
		AffectedUserID: h.AffectedUserID,
		RunID:          h.RunID,
		ReportFilename: h.ReportFilename,
		ReportFilePath: h.ReportFilePath,
		ReportFileURL:  h.ReportFileURL,
		CreatedAt:      h.CreatedAt,
		Assets:         make([]TransitionHistoryAssetModel, len(h.AssetIDs)),
	}
	for i, id := range h.AssetIDs {
		m.Assets[i] = TransitionHistoryAssetModel{HistoryID: h.ID, AssetID: id, Position: i}
	}
	return m
}

