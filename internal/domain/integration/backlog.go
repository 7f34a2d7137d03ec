package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UnmappedPayment is a recorded payment with no accounting counterpart yet
type UnmappedPayment struct {
	PaymentID     uuid.UUID
	InvoiceID     uuid.UUID
	PaymentNumber string
}

// UnmappedPaymentFinder lists payments that never reached the accounting ledger
type UnmappedPaymentFinder interface {
	// FindUnmappedPayments returns payments recorded at or after since that have
	// no payment mapping, oldest first
	FindUnmappedPayments(ctx context.Context, since time.Time, limit int) ([]UnmappedPayment, error)
}
