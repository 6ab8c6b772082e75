package asset

import (
	"context"

	"github.com/google/uuid"
)

// AssetFilter narrows asset lookups. Zero values are ignored.
type AssetFilter struct {
	IDs            []uuid.UUID
	Status         Status
	OwnerID        *uuid.UUID
	WarehouseID    *uuid.UUID
	Search         string
	IncludeDeleted bool
	Limit          int
}

// AssetRepository defines the interface for asset persistence.
// Assets are never deleted through it; the Deleted flag is used instead.
type AssetRepository interface {
	// FindByID finds an asset by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// FindByIDs returns the non-deleted assets among ids, ordered as in ids.
	// Unknown IDs are skipped.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Asset, error)

	// Find returns assets matching the filter
	Find(ctx context.Context, filter AssetFilter) ([]Asset, error)

	// Save creates or updates an asset
	Save(ctx context.Context, asset *Asset) error
}

// WarehouseRepository defines the interface for warehouse persistence
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindAll(ctx context.Context) ([]Warehouse, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}
