package production

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle state of a production order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"     // Waiting for the deposit
	OrderStatusInProgress OrderStatus = "in_progress" // Deposit received, units in production
	OrderStatusFinalPaid  OrderStatus = "final_paid"  // Final invoice settled
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusFinalPaid,
		OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// ProductionOrder is the aggregate root for a batch of units built for a project.
// Payment flags only move through MarkDepositPaid and MarkFinalPaid.
type ProductionOrder struct {
	shared.BaseAggregateRoot
	OrderNumber      string      `json:"order_number"`
	ProjectID        *uuid.UUID  `json:"project_id,omitempty"`
	Quantity         int         `json:"quantity"`
	Status           OrderStatus `json:"status"`
	DepositPaid      bool        `json:"deposit_paid"`
	FinalPaymentPaid bool        `json:"final_payment_paid"`
	DepositPaidAt    *time.Time  `json:"deposit_paid_at,omitempty"`
	FinalPaidAt      *time.Time  `json:"final_paid_at,omitempty"`
}

// NewProductionOrder creates a pending production order
func NewProductionOrder(orderNumber string, projectID *uuid.UUID, quantity int) (*ProductionOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return &ProductionOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		ProjectID:         projectID,
		Quantity:          quantity,
		Status:            OrderStatusPending,
	}, nil
}

// MarkDepositPaid records the deposit and moves the order into production.
// It returns false when the deposit had already been applied.
func (o *ProductionOrder) MarkDepositPaid(at time.Time) bool {
	if o.DepositPaid {
		return false
	}
	o.DepositPaid = true
	o.DepositPaidAt = &at
	o.Status = OrderStatusInProgress
	o.MarkModified(time.Now())

	o.AddDomainEvent(NewDepositPaidEvent(o))
	return true
}

// MarkFinalPaid records the final payment.
// It returns false when the final payment had already been applied.
func (o *ProductionOrder) MarkFinalPaid(at time.Time) bool {
	if o.FinalPaymentPaid {
		return false
	}
	o.FinalPaymentPaid = true
	o.FinalPaidAt = &at
	o.Status = OrderStatusFinalPaid
	o.MarkModified(time.Now())

	o.AddDomainEvent(NewFinalPaidEvent(o))
	return true
}

// NewOrderedItems builds one pending unit per ordered quantity
func (o *ProductionOrder) NewOrderedItems() []OrderedItem {
	items := make([]OrderedItem, 0, o.Quantity)
	for i := 1; i <= o.Quantity; i++ {
		items = append(items, NewOrderedItem(o, i))
	}
	return items
}
