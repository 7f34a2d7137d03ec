package production

import (
	"context"

	"github.com/google/uuid"
)

// ProductionOrderRepository defines the interface for production order persistence
type ProductionOrderRepository interface {
	// FindByID finds a production order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionOrder, error)

	// FindByIDForUpdate finds a production order and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ProductionOrder, error)

	// Save creates or updates a production order
	Save(ctx context.Context, order *ProductionOrder) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, order *ProductionOrder) error
}

// OrderedItemRepository defines the interface for production unit persistence
type OrderedItemRepository interface {
	// CreateBatch inserts all units in one statement
	CreateBatch(ctx context.Context, items []OrderedItem) error

	// FindByProductionOrder lists the units of an order by sequence
	FindByProductionOrder(ctx context.Context, orderID uuid.UUID) ([]OrderedItem, error)

	// CountByProductionOrder counts the units of an order
	CountByProductionOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// ProjectReader is the read port for projects
type ProjectReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)
}
