package accounting

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	defaultMinorVersion = "73"
	defaultHTTPTimeout  = 30 * time.Second
	defaultRefreshSkew  = 5 * time.Minute
	// maxResponseBytes caps how much of a response body is read
	maxResponseBytes = 1 << 20
)

// Config holds the QuickBooks Online connection settings
type Config struct {
	// APIBaseURL is the accounting API host, e.g. https://quickbooks.api.intuit.com
	APIBaseURL string
	// MinorVersion is sent as the minorversion query parameter on every call
	MinorVersion string
	// ClientID and ClientSecret identify the OAuth app
	ClientID     string
	ClientSecret string
	// TokenURL is the OAuth token endpoint used for code exchange and refresh
	TokenURL string
	// AuthURL is the OAuth consent page
	AuthURL string
	// RedirectURL must match the redirect registered with the OAuth app
	RedirectURL string
	// RefreshSkew refreshes access tokens this long before they expire
	RefreshSkew time.Duration
	// HTTPTimeout bounds each HTTP round trip
	HTTPTimeout time.Duration
}

// Errors for configuration validation
var (
	ErrMissingAPIBaseURL   = errors.New("accounting: missing API base URL")
	ErrInvalidAPIBaseURL   = errors.New("accounting: invalid API base URL")
	ErrMissingClientID     = errors.New("accounting: missing OAuth client ID")
	ErrMissingClientSecret = errors.New("accounting: missing OAuth client secret")
	ErrMissingTokenURL     = errors.New("accounting: missing OAuth token URL")
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	if u, err := url.ParseRequestURI(c.APIBaseURL); err != nil || u.Host == "" {
		return ErrInvalidAPIBaseURL
	}
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	if c.TokenURL == "" {
		return ErrMissingTokenURL
	}
	return nil
}

func (c *Config) withDefaults() Config {
	cfg := *c
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.MinorVersion == "" {
		cfg.MinorVersion = defaultMinorVersion
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if cfg.RefreshSkew <= 0 {
		cfg.RefreshSkew = defaultRefreshSkew
	}
	return cfg
}
