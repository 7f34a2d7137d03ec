package production

import (
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/google/uuid"
)

// Project groups production orders for one customer
type Project struct {
	shared.BaseEntity
	Name       string
	CustomerID *uuid.UUID
}

// HasCustomer returns true if the project is linked to a customer
func (p *Project) HasCustomer() bool {
	return p.CustomerID != nil && *p.CustomerID != uuid.Nil
}
