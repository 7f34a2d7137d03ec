package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Credential is the OAuth connection to the external ledger. Only one is active at a time.
type Credential struct {
	ID                    uuid.UUID
	RealmID               string
	CompanyName           string
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	IsActive              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AccessTokenExpired reports whether the access token is expired, or will be within skew
func (c *Credential) AccessTokenExpired(now time.Time, skew time.Duration) bool {
	return c.AccessToken == "" || !now.Add(skew).Before(c.AccessTokenExpiresAt)
}

// RefreshTokenExpired reports whether the refresh token can no longer be exchanged
func (c *Credential) RefreshTokenExpired(now time.Time) bool {
	if c.RefreshToken == "" {
		return true
	}
	if c.RefreshTokenExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.RefreshTokenExpiresAt)
}

// Rotate stores a freshly issued token pair
func (c *Credential) Rotate(accessToken, refreshToken string, accessExpiry, refreshExpiry time.Time) {
	c.AccessToken = accessToken
	if refreshToken != "" {
		c.RefreshToken = refreshToken
	}
	c.AccessTokenExpiresAt = accessExpiry
	if !refreshExpiry.IsZero() {
		c.RefreshTokenExpiresAt = refreshExpiry
	}
	c.UpdatedAt = time.Now()
}

// CredentialRepository persists the ledger credential
type CredentialRepository interface {
	// FindActive returns the active credential, or ErrCredentialNotFound
	FindActive(ctx context.Context) (*Credential, error)

	// Save inserts or updates a credential
	Save(ctx context.Context, credential *Credential) error
}

// ConnectionStatus describes the health of the ledger connection
type ConnectionStatus struct {
	Connected           bool
	RealmID             string
	CompanyName         string
	AccessTokenExpired  bool
	RefreshTokenExpired bool
	AccessTokenExpires  *time.Time
	RefreshTokenExpires *time.Time
}

// CredentialProvider hands out a credential ready for use. Implementations
// refresh an expired access token and persist the rotated pair before returning,
// and concurrent callers share a single refresh.
type CredentialProvider interface {
	// Credential returns a usable credential or ErrNotConnected
	Credential(ctx context.Context) (*Credential, error)

	// Status reports the connection state without refreshing
	Status(ctx context.Context) (ConnectionStatus, error)
}
