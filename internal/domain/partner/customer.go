package partner

import (
	"context"
	"strings"

	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
)

// Customer is the party billed by production invoices.
// The ledger core only reads customers; they are maintained elsewhere.
type Customer struct {
	shared.BaseEntity
	Name        string
	CompanyName string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
}

// NewCustomer creates a customer. Name is required.
func NewCustomer(name string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
	}, nil
}

// DisplayName returns the name shown on external documents: company first, then person, then name.
func (c *Customer) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	if full := strings.TrimSpace(c.FirstName + " " + c.LastName); full != "" {
		return full
	}
	return c.Name
}

// CustomerReader is the read port the ledger core uses for customers
type CustomerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
}
