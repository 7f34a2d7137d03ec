package event

import (
	"context"

	"github.com/erp/ledgersync/internal/domain/shared"
	"go.uber.org/zap"
)

// Delivery outcomes reported to a DeliveryRecorder
const (
	DeliveryHandled   = "handled"
	DeliveryDuplicate = "duplicate"
	DeliveryFailed    = "failed"
)

// DeliveryRecorder receives one call per event that reaches an IdempotentHandler
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, consumer, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordDelivery(context.Context, string, string) {}

// IdempotentHandler claims each event in the IdempotencyStore before handing it
// to the wrapped handler, so redelivery of an already handled event is a no-op.
// A failed run gives its claim back and the next outbox retry runs it again.
// If the store itself is down the event is handled anyway: a duplicate push is
// recoverable through the entity mapping, a dropped one is not.
type IdempotentHandler struct {
	next     shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	recorder DeliveryRecorder
	logger   *zap.Logger
}

type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.config = config }
}

func WithDeliveryRecorder(r DeliveryRecorder) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if r != nil {
			h.recorder = r
		}
	}
}

func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		next:     next,
		store:    store,
		config:   shared.DefaultIdempotencyConfig(),
		recorder: noopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.next.Handle(ctx, event)
	}

	key := h.config.Key(event.EventID())
	log := h.logger.With(
		zap.String("idempotency_key", key),
		zap.String("event_type", event.EventType()),
	)

	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	held := err == nil
	if err != nil {
		log.Warn("idempotency store unavailable, handling without a claim", zap.Error(err))
	} else if !fresh {
		h.recorder.RecordDelivery(ctx, h.config.Scope, DeliveryDuplicate)
		log.Debug("event already handled, skipping")
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		h.recorder.RecordDelivery(ctx, h.config.Scope, DeliveryFailed)
		log.Error("event handler failed", zap.Error(err))
		if held {
			if relErr := h.store.Release(ctx, key); relErr != nil {
				log.Warn("failed to release idempotency claim", zap.Error(relErr))
			}
		}
		return err
	}

	h.recorder.RecordDelivery(ctx, h.config.Scope, DeliveryHandled)
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
