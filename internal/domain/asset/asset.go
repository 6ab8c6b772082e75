// Package asset holds the Asset aggregate and the warehouses assets are stored in.
package asset

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AssetType separates data center hardware from back office equipment
type AssetType string

const (
	AssetTypeDataCenter AssetType = "data_center"
	AssetTypeBackOffice AssetType = "back_office"
)

// IsValid reports whether the type is known
func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeDataCenter, AssetTypeBackOffice:
		return true
	}
	return false
}

// Status is the lifecycle status of an asset
type Status string

const (
	StatusNew               Status = "new"
	StatusInProgress        Status = "in_progress"
	StatusWaitingForRelease Status = "waiting_for_release"
	StatusUsed              Status = "used"
	StatusLoan              Status = "loan"
	StatusDamaged           Status = "damaged"
	StatusLiquidated        Status = "liquidated"
	StatusInService         Status = "in_service"
	StatusInRepair          Status = "in_repair"
	StatusOK                Status = "ok"
)

var allStatuses = []Status{
	StatusNew,
	StatusInProgress,
	StatusWaitingForRelease,
	StatusUsed,
	StatusLoan,
	StatusDamaged,
	StatusLiquidated,
	StatusInService,
	StatusInRepair,
	StatusOK,
}

// AllStatuses returns every known status in display order
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsValid reports whether the status is known
func (s Status) IsValid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Asset is a single piece of tracked IT equipment
type Asset struct {
	shared.BaseAggregateRoot
	Type        AssetType
	SN          *string
	Barcode     *string
	Status      Status
	OwnerID     *uuid.UUID
	WarehouseID *uuid.UUID
	Price       decimal.Decimal
	Remarks     string
	Deleted     bool
}

// NewAsset creates an asset. At least one of sn and barcode must be set.
func NewAsset(assetType AssetType, sn, barcode string) (*Asset, error) {
	if !assetType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ASSET_TYPE", "Invalid asset type: "+string(assetType))
	}
	sn = strings.TrimSpace(sn)
	barcode = strings.TrimSpace(barcode)
	if sn == "" && barcode == "" {
		return nil, shared.NewDomainError("INVALID_ASSET", "Either serial number or barcode is required")
	}

	a := &Asset{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              assetType,
		Status:            StatusNew,
		Price:             decimal.Zero,
	}
	if sn != "" {
		a.SN = &sn
	}
	if barcode != "" {
		a.Barcode = &barcode
	}
	return a, nil
}

// ChangeStatus moves the asset to a new status
func (a *Asset) ChangeStatus(status Status) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Invalid asset status: "+string(status))
	}
	a.Status = status
	a.touch()
	return nil
}

// AssignOwner makes userID the owner of the asset
func (a *Asset) AssignOwner(userID uuid.UUID) {
	id := userID
	a.OwnerID = &id
	a.touch()
}

// UnassignOwner clears the owner
func (a *Asset) UnassignOwner() {
	a.OwnerID = nil
	a.touch()
}

// MoveToWarehouse sets the warehouse the asset is kept in. nil clears it.
func (a *Asset) MoveToWarehouse(warehouseID *uuid.UUID) {
	if warehouseID == nil {
		a.WarehouseID = nil
	} else {
		id := *warehouseID
		a.WarehouseID = &id
	}
	a.touch()
}

// HasOwner reports whether the asset is assigned to a user
func (a *Asset) HasOwner() bool {
	return a.OwnerID != nil
}

// Identifier returns the serial number, or the barcode when there is none
func (a *Asset) Identifier() string {
	if a.SN != nil && *a.SN != "" {
		return *a.SN
	}
	if a.Barcode != nil {
		return *a.Barcode
	}
	return ""
}

// Clone returns a deep copy of the asset
func (a *Asset) Clone() *Asset {
	c := *a
	c.SN = cloneString(a.SN)
	c.Barcode = cloneString(a.Barcode)
	c.OwnerID = cloneUUID(a.OwnerID)
	c.WarehouseID = cloneUUID(a.WarehouseID)
	return &c
}

func (a *Asset) touch() {
	a.UpdatedAt = time.Now()
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
