package asset

import (
	"strings"

	"github.com/itam/backend/internal/domain/shared"
)

// Warehouse is a place where unassigned assets are kept
type Warehouse struct {
	shared.BaseEntity
	Name string
}

// NewWarehouse creates a warehouse
func NewWarehouse(name string) (*Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Warehouse name cannot be empty")
	}
	if len(name) > 75 {
		return nil, shared.NewDomainError("INVALID_NAME", "Warehouse name cannot exceed 75 characters")
	}
	return &Warehouse{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
	}, nil
}
