package production

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the build state of a single production unit
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
)

// QCStatus is the quality-control state of a single production unit
type QCStatus string

const (
	QCStatusPending QCStatus = "pending"
	QCStatusPassed  QCStatus = "passed"
	QCStatusFailed  QCStatus = "failed"
)

// OrderedItem is one physical unit of a production order
type OrderedItem struct {
	ID                uuid.UUID
	ProductionOrderID uuid.UUID
	Sequence          int
	SKU               string
	Status            ItemStatus
	QCStatus          QCStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FormatItemSKU renders a unit SKU as <order_number>-<seq:03d>
func FormatItemSKU(orderNumber string, seq int) string {
	return fmt.Sprintf("%s-%03d", orderNumber, seq)
}

// NewOrderedItem creates the seq-th pending unit of an order
func NewOrderedItem(order *ProductionOrder, seq int) OrderedItem {
	now := time.Now()
	return OrderedItem{
		ID:                uuid.New(),
		ProductionOrderID: order.ID,
		Sequence:          seq,
		SKU:               FormatItemSKU(order.OrderNumber, seq),
		Status:            ItemStatusPending,
		QCStatus:          QCStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
