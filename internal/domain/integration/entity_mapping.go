package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// EntityMapping Entity
// ---------------------------------------------------------------------------

// EntityType identifies which kind of internal record a mapping points at
type EntityType string

const (
	EntityTypeCustomer EntityType = "customer"
	EntityTypeInvoice  EntityType = "invoice"
	EntityTypePayment  EntityType = "payment"
)

// IsValid returns true if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeCustomer, EntityTypeInvoice, EntityTypePayment:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}

// MappingStatus is the sync state recorded on a mapping
type MappingStatus string

const (
	MappingStatusSynced MappingStatus = "synced"
)

// EntityMapping links an internal record to its counterpart in the external
// ledger. There is at most one mapping per (EntityType, InternalID), and it
// is only written after the external call succeeded.
type EntityMapping struct {
	// ID is the unique identifier of this mapping
	ID uuid.UUID
	// EntityType is the kind of internal record
	EntityType EntityType
	// InternalID is our record ID
	InternalID uuid.UUID
	// ExternalID is the ID assigned by the external ledger
	ExternalID string
	// SyncToken is the external optimistic concurrency token from the last write
	SyncToken string
	// SyncStatus is the result of the last sync
	SyncStatus MappingStatus
	// LastSyncedAt is when the last successful sync finished
	LastSyncedAt time.Time
	// CreatedAt is when this mapping was created
	CreatedAt time.Time
	// UpdatedAt is when this mapping was last updated
	UpdatedAt time.Time
}

// NewEntityMapping creates a mapping for a freshly created external record
func NewEntityMapping(entityType EntityType, internalID uuid.UUID, ref ExternalRef) (*EntityMapping, error) {
	if !entityType.IsValid() {
		return nil, ErrMappingInvalidEntityType
	}
	if internalID == uuid.Nil {
		return nil, ErrMappingInvalidInternalID
	}
	if ref.ID == "" {
		return nil, ErrMappingInvalidExternalID
	}

	now := time.Now()
	return &EntityMapping{
		ID:           uuid.New(),
		EntityType:   entityType,
		InternalID:   internalID,
		ExternalID:   ref.ID,
		SyncToken:    ref.SyncToken,
		SyncStatus:   MappingStatusSynced,
		LastSyncedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// RecordSync stores the concurrency token returned by a successful update
func (m *EntityMapping) RecordSync(ref ExternalRef) {
	now := time.Now()
	if ref.ID != "" {
		m.ExternalID = ref.ID
	}
	m.SyncToken = ref.SyncToken
	m.SyncStatus = MappingStatusSynced
	m.LastSyncedAt = now
	m.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// EntityMapping Repository Interfaces
// ---------------------------------------------------------------------------

// EntityMappingReader defines read operations for entity mappings
type EntityMappingReader interface {
	// FindByEntity returns the mapping for an internal record, or ErrMappingNotFound
	FindByEntity(ctx context.Context, entityType EntityType, internalID uuid.UUID) (*EntityMapping, error)

	// FindByExternalID returns the mapping pointing at an external record, or ErrMappingNotFound
	FindByExternalID(ctx context.Context, entityType EntityType, externalID string) (*EntityMapping, error)

	// CountByType counts mappings of one entity type
	CountByType(ctx context.Context, entityType EntityType) (int64, error)
}

// EntityMappingWriter defines write operations for entity mappings
type EntityMappingWriter interface {
	// Save inserts or updates a mapping keyed on (EntityType, InternalID)
	Save(ctx context.Context, mapping *EntityMapping) error
}

// EntityMappingRepository combines read and write operations
type EntityMappingRepository interface {
	EntityMappingReader
	EntityMappingWriter
}
