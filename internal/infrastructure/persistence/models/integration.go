package models

import (
	"time"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/google/uuid"
)

// EntityMappingModel is the persistence model for an internal/external record link.
type EntityMappingModel struct {
	ID           uuid.UUID                 `gorm:"type:uuid;primary_key"`
	EntityType   integration.EntityType    `gorm:"type:varchar(20);not null;uniqueIndex:idx_entity_mapping_internal,priority:1;index:idx_entity_mapping_external,priority:1"`
	InternalID   uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_entity_mapping_internal,priority:2"`
	ExternalID   string                    `gorm:"type:varchar(100);not null;index:idx_entity_mapping_external,priority:2"`
	SyncToken    string                    `gorm:"type:varchar(50)"`
	SyncStatus   integration.MappingStatus `gorm:"type:varchar(20);not null"`
	LastSyncedAt time.Time                 `gorm:"not null"`
	CreatedAt    time.Time                 `gorm:"not null"`
	UpdatedAt    time.Time                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityMappingModel) TableName() string {
	return "entity_mappings"
}

// ToDomain converts the persistence model to a domain EntityMapping
func (m *EntityMappingModel) ToDomain() *integration.EntityMapping {
	return &integration.EntityMapping{
		ID:           m.ID,
		EntityType:   m.EntityType,
		InternalID:   m.InternalID,
		ExternalID:   m.ExternalID,
		SyncToken:    m.SyncToken,
		SyncStatus:   m.SyncStatus,
		LastSyncedAt: m.LastSyncedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// EntityMappingModelFromDomain creates a persistence model from a domain EntityMapping
func EntityMappingModelFromDomain(e *integration.EntityMapping) *EntityMappingModel {
	return &EntityMappingModel{
		ID:           e.ID,
		EntityType:   e.EntityType,
		InternalID:   e.InternalID,
		ExternalID:   e.ExternalID,
		SyncToken:    e.SyncToken,
		SyncStatus:   e.SyncStatus,
		LastSyncedAt: e.LastSyncedAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// SyncLogModel is the persistence model for one push attempt. Rows are never updated.
type SyncLogModel struct {
	ID              uuid.UUID                 `gorm:"type:uuid;primary_key"`
	SyncType        integration.EntityType    `gorm:"type:varchar(20);not null;index"`
	Direction       integration.SyncDirection `gorm:"type:varchar(10);not null"`
	EntityID        uuid.UUID                 `gorm:"type:uuid;not null;index"`
	ExternalID      *string                   `gorm:"type:varchar(100)"`
	Action          integration.SyncAction    `gorm:"type:varchar(10);not null"`
	Status          integration.SyncLogStatus `gorm:"type:varchar(20);not null;index"`
	RequestPayload  string                    `gorm:"type:text"`
	ResponsePayload string                    `gorm:"type:text"`
	ErrorMessage    string                    `gorm:"type:text"`
	StartedAt       time.Time                 `gorm:"not null"`
	CompletedAt     time.Time                 `gorm:"not null"`
	CreatedAt       time.Time                 `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLogEntry
func (m *SyncLogModel) ToDomain() integration.SyncLogEntry {
	return integration.SyncLogEntry{
		ID:              m.ID,
		SyncType:        m.SyncType,
		Direction:       m.Direction,
		EntityID:        m.EntityID,
		ExternalID:      m.ExternalID,
		Action:          m.Action,
		Status:          m.Status,
		RequestPayload:  m.RequestPayload,
		ResponsePayload: m.ResponsePayload,
		ErrorMessage:    m.ErrorMessage,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		CreatedAt:       m.CreatedAt,
	}
}

// SyncLogModelFromDomain creates a persistence model from a domain SyncLogEntry
func SyncLogModelFromDomain(e *integration.SyncLogEntry) *SyncLogModel {
	return &SyncLogModel{
		ID:              e.ID,
		SyncType:        e.SyncType,
		Direction:       e.Direction,
		EntityID:        e.EntityID,
		ExternalID:      e.ExternalID,
		Action:          e.Action,
		Status:          e.Status,
		RequestPayload:  e.RequestPayload,
		ResponsePayload: e.ResponsePayload,
		ErrorMessage:    e.ErrorMessage,
		StartedAt:       e.StartedAt,
		CompletedAt:     e.CompletedAt,
		CreatedAt:       e.CreatedAt,
	}
}

// CredentialModel is the persistence model for the ledger OAuth connection.
type CredentialModel struct {
	ID                    uuid.UUID `gorm:"type:uuid;primary_key"`
	RealmID               string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	CompanyName           string    `gorm:"type:varchar(200)"`
	AccessToken           string    `gorm:"type:text;not null"`
	RefreshToken          string    `gorm:"type:text;not null"`
	AccessTokenExpiresAt  time.Time `gorm:"not null"`
	RefreshTokenExpiresAt time.Time
	IsActive              bool      `gorm:"not null;index"`
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "accounting_credentials"
}

// ToDomain converts the persistence model to a domain Credential
func (m *CredentialModel) ToDomain() *integration.Credential {
	return &integration.Credential{
		ID:                    m.ID,
		RealmID:               m.RealmID,
		CompanyName:           m.CompanyName,
		AccessToken:           m.AccessToken,
		RefreshToken:          m.RefreshToken,
		AccessTokenExpiresAt:  m.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: m.RefreshTokenExpiresAt,
		IsActive:              m.IsActive,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// CredentialModelFromDomain creates a persistence model from a domain Credential
func CredentialModelFromDomain(c *integration.Credential) *CredentialModel {
	return &CredentialModel{
		ID:                    c.ID,
		RealmID:               c.RealmID,
		CompanyName:           c.CompanyName,
		AccessToken:           c.AccessToken,
		RefreshToken:          c.RefreshToken,
		AccessTokenExpiresAt:  c.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: c.RefreshTokenExpiresAt,
		IsActive:              c.IsActive,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}
