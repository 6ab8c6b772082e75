package models

import (
	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/shopspring/decimal"
)

// AssetModel is the persistence model for the Asset aggregate
type AssetModel struct {
	AggregateModel
	Type        asset.AssetType `gorm:"type:varchar(20);not null"`
	SN          *string         `gorm:"column:sn;type:varchar(200);uniqueIndex"`
	Barcode     *string         `gorm:"type:varchar(200);uniqueIndex"`
	Status      asset.Status    `gorm:"type:varchar(30);not null;index"`
	OwnerID     *uuid.UUID      `gorm:"type:uuid;index"`
	WarehouseID *uuid.UUID      `gorm:"type:uuid;index"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Remarks     string          `gorm:"type:text"`
	Deleted     bool            `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (AssetModel) TableName() string {
	return "assets"
}

// ToDomain converts the persistence model to a domain Asset
func (m *AssetModel) ToDomain() *asset.Asset {
	return &asset.Asset{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Type:              m.Type,
		SN:                m.SN,
		Barcode:           m.Barcode,
		Status:            m.Status,
		OwnerID:           m.OwnerID,
		WarehouseID:       m.WarehouseID,
		Price:             m.Price,
		Remarks:           m.Remarks,
		Deleted:           m.Deleted,
	}
}

// FromDomain populates the persistence model from a domain Asset
func (m *AssetModel) FromDomain(a *asset.Asset) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.Type = a.Type
	m.SN = a.SN
	m.Barcode = a.Barcode
	m.Status = a.Status
	m.OwnerID = a.OwnerID
	m.WarehouseID = a.WarehouseID
	m.Price = a.Price
	m.Remarks = a.Remarks
	m.Deleted = a.Deleted
}

// AssetModelFromDomain creates a new persistence model from a domain Asset
func AssetModelFromDomain(a *asset.Asset) *AssetModel {
	m := &AssetModel{}
	m.FromDomain(a)
	return m
}

// WarehouseModel is the persistence model for Warehouse
type WarehouseModel struct {
	BaseModel
	Name string `gorm:"type:varchar(75);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the persistence model to a domain Warehouse
func (m *WarehouseModel) ToDomain() *asset.Warehouse {
	return &asset.Warehouse{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
	}
}

// WarehouseModelFromDomain creates a new persistence model from a domain Warehouse
func WarehouseModelFromDomain(w *asset.Warehouse) *WarehouseModel {
	m := &WarehouseModel{Name: w.Name}
	m.FromDomainBaseEntity(w.BaseEntity)
	return m
}
