package production

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type names
const (
	EventTypeDepositPaid = "ProductionDepositPaid"
	EventTypeFinalPaid   = "ProductionFinalPaid"
)

// AggregateTypeProductionOrder is the aggregate type of production order events
const AggregateTypeProductionOrder = "ProductionOrder"

// DepositPaidEvent is raised when a production order receives its deposit
type DepositPaidEvent struct {
	shared.BaseDomainEvent
	ProductionOrderID uuid.UUID `json:"production_order_id"`
	OrderNumber       string    `json:"order_number"`
	Quantity          int       `json:"quantity"`
	PaidAt            time.Time `json:"paid_at"`
}

// EventType returns the event type name
func (e *DepositPaidEvent) EventType() string {
	return EventTypeDepositPaid
}

// NewDepositPaidEvent creates a new DepositPaidEvent
func NewDepositPaidEvent(o *ProductionOrder) *DepositPaidEvent {
	e := &DepositPaidEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeDepositPaid, AggregateTypeProductionOrder, o.ID),
		ProductionOrderID: o.ID,
		OrderNumber:       o.OrderNumber,
		Quantity:          o.Quantity,
	}
	if o.DepositPaidAt != nil {
		e.PaidAt = *o.DepositPaidAt
	}
	return e
}

// FinalPaidEvent is raised when a production order's final invoice is settled
type FinalPaidEvent struct {
	shared.BaseDomainEvent
	ProductionOrderID uuid.UUID `json:"production_order_id"`
	OrderNumber       string    `json:"order_number"`
	PaidAt            time.Time `json:"paid_at"`
}

// EventType returns the event type name
func (e *FinalPaidEvent) EventType() string {
	return EventTypeFinalPaid
}

// NewFinalPaidEvent creates a new FinalPaidEvent
func NewFinalPaidEvent(o *ProductionOrder) *FinalPaidEvent {
	e := &FinalPaidEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeFinalPaid, AggregateTypeProductionOrder, o.ID),
		ProductionOrderID: o.ID,
		OrderNumber:       o.OrderNumber,
	}
	if o.FinalPaidAt != nil {
		e.PaidAt = *o.FinalPaidAt
	}
	return e
}
