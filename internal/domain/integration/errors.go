package integration

import (
	"errors"

	"github.com/erp/ledgersync/internal/domain/shared"
)

// External ledger transport errors
var (
	ErrExternalUnavailable     = errors.New("integration: accounting service temporarily unavailable")
	ErrExternalRequestFailed   = errors.New("integration: accounting request failed")
	ErrExternalInvalidResponse = errors.New("integration: invalid accounting response")
	ErrExternalAuthFailed      = errors.New("integration: accounting authentication failed")
	ErrExternalRateLimited     = errors.New("integration: accounting service rate limited")
	ErrSyncTimeout             = errors.New("integration: accounting call deadline exceeded")
	ErrTokenRefreshFailed      = errors.New("integration: token refresh failed")
)

// Mapping and log errors
var (
	ErrMappingInvalidEntityType = errors.New("integration: invalid entity type")
	ErrMappingInvalidInternalID = errors.New("integration: invalid internal ID")
	ErrMappingInvalidExternalID = errors.New("integration: invalid external ID")
	ErrMappingNotFound          = errors.New("integration: entity mapping not found")
	ErrCredentialNotFound       = errors.New("integration: no active credential")
)

// Errors surfaced to callers of the sync operations
var (
	ErrNotConnected = shared.NewDomainError(shared.CodeNotConnected,
		"Accounting ledger is not connected; connect an account first")
	ErrDefaultItemNotConfigured = shared.NewDomainError(shared.CodeConfiguration,
		"No default accounting item is configured for invoice lines")
	ErrInvoiceNotSynced = shared.NewDomainError(shared.CodePrerequisiteFailed,
		"Invoice must be synced to the accounting ledger before its payments")
)

// IsRetryable reports whether a failed push may succeed if attempted again later
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrExternalUnavailable),
		errors.Is(err, ErrExternalRateLimited),
		errors.Is(err, ErrExternalAuthFailed),
		errors.Is(err, ErrTokenRefreshFailed),
		errors.Is(err, ErrSyncTimeout),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrInvoiceNotSynced):
		return true
	}
	return false
}

// ErrCustomerNotLinked is returned when an invoice cannot be traced to a
// customer through its production order and project
var ErrCustomerNotLinked = shared.NewDomainError(shared.CodeNotFound,
	"Invoice is not linked to a customer through its production order and project")
