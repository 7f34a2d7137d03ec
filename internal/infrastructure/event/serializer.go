package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/erp/ledgersync/internal/domain/finance"
	"github.com/erp/ledgersync/internal/domain/production"
	"github.com/erp/ledgersync/internal/domain/shared"
)

// EventSerializer converts events to and from outbox payloads. Payloads are
// plain JSON; the outbox row's event_type column selects the Go type on the
// way back.
type EventSerializer struct {
	mu    sync.RWMutex
	kinds map[string]func() shared.DomainEvent
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{kinds: make(map[string]func() shared.DomainEvent)}
}

// NewLedgerEventSerializer knows every event the ledger writes to the outbox
func NewLedgerEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterEvent[finance.InvoicePaymentAppliedEvent](s, finance.EventTypeInvoicePaymentApplied)
	RegisterEvent[finance.InvoicePaidEvent](s, finance.EventTypeInvoicePaid)
	RegisterEvent[finance.InvoiceCancelledEvent](s, finance.EventTypeInvoiceCancelled)
	RegisterEvent[finance.PaymentRecordedEvent](s, finance.EventTypePaymentRecorded)
	RegisterEvent[production.DepositPaidEvent](s, production.EventTypeDepositPaid)
	RegisterEvent[production.FinalPaidEvent](s, production.EventTypeFinalPaid)
	return s
}

// RegisterEvent maps eventType to the struct E, whose pointer must implement
// DomainEvent
func RegisterEvent[E any, P interface {
	*E
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds[eventType] = func() shared.DomainEvent { return P(new(E)) }
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data as eventType. A payload whose own type field
// disagrees with eventType is rejected.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	newEvent, ok := s.kinds[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unregistered event type %q", eventType)
	}

	// concrete events report their type from a constant, so the check reads
	// the type stored in the payload itself
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	if header.Type != "" && header.Type != eventType {
		return nil, fmt.Errorf("payload is a %s, row says %s", header.Type, eventType)
	}

	ev := newEvent()
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return ev, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.kinds[eventType]
	return ok
}
