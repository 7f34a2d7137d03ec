package accounting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// refreshTokenExpiresInField is the token response field carrying the refresh token lifetime in seconds
const refreshTokenExpiresInField = "x_refresh_token_expires_in"

// OAuthCredentialProvider implements integration.CredentialProvider on top of
// the credential repository. An expired access token is refreshed with the
// refresh token and the rotated pair is saved before the credential is handed
// out. Concurrent callers share one refresh.
type OAuthCredentialProvider struct {
	repo       integration.CredentialRepository
	oauth      *oauth2.Config
	skew       time.Duration
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
	group      singleflight.Group
}

// CredentialProviderOption configures an OAuthCredentialProvider
type CredentialProviderOption func(*OAuthCredentialProvider)

// WithTokenHTTPClient sets the HTTP client used against the token endpoint
func WithTokenHTTPClient(client *http.Client) CredentialProviderOption {
	return func(p *OAuthCredentialProvider) {
		p.httpClient = client
	}
}

// WithProviderClock overrides the clock used for expiry checks
func WithProviderClock(now func() time.Time) CredentialProviderOption {
	return func(p *OAuthCredentialProvider) {
		p.now = now
	}
}

// NewOAuthCredentialProvider creates a new OAuthCredentialProvider
func NewOAuthCredentialProvider(
	config Config,
	repo integration.CredentialRepository,
	logger *zap.Logger,
	opts ...CredentialProviderOption,
) *OAuthCredentialProvider {
	cfg := config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &OAuthCredentialProvider{
		repo: repo,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"com.intuit.quickbooks.accounting"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		skew:       cfg.RefreshSkew,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Credential returns the active credential, refreshing its access token first when it expired
func (p *OAuthCredentialProvider) Credential(ctx context.Context) (*integration.Credential, error) {
	cred, err := p.loadActive(ctx)
	if err != nil {
		return nil, err
	}
	if !cred.AccessTokenExpired(p.now(), p.skew) {
		return cred, nil
	}

	// The refresh outlives a cancelled caller; the token endpoint call is
	// bounded by the HTTP client timeout.
	ch := p.group.DoChan("refresh:"+cred.RealmID, func() (any, error) {
		return p.refresh(context.WithoutCancel(ctx))
	})
	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Shared {
		p.logger.Debug("joined in-flight token refresh", zap.String("realm_id", cred.RealmID))
	}
	refreshed := *r.Val.(*integration.Credential)
	return &refreshed, nil
}

// Status reports the connection state without refreshing
func (p *OAuthCredentialProvider) Status(ctx context.Context) (integration.ConnectionStatus, error) {
	cred, err := p.repo.FindActive(ctx)
	if errors.Is(err, integration.ErrCredentialNotFound) {
		return integration.ConnectionStatus{}, nil
	}
	if err != nil {
		return integration.ConnectionStatus{}, err
	}

	now := p.now()
	status := integration.ConnectionStatus{
		RealmID:             cred.RealmID,
		CompanyName:         cred.CompanyName,
		AccessTokenExpired:  cred.AccessTokenExpired(now, 0),
		RefreshTokenExpired: cred.RefreshTokenExpired(now),
	}
	status.Connected = cred.IsActive && !status.RefreshTokenExpired
	if !cred.AccessTokenExpiresAt.IsZero() {
		t := cred.AccessTokenExpiresAt
		status.AccessTokenExpires = &t
	}
	if !cred.RefreshTokenExpiresAt.IsZero() {
		t := cred.RefreshTokenExpiresAt
		status.RefreshTokenExpires = &t
	}
	return status, nil
}

// AuthCodeURL returns the consent page URL an operator visits to connect a company
func (p *OAuthCredentialProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Connect exchanges an authorization code for a token pair and stores it as
// the active credential for realmID
func (p *OAuthCredentialProvider) Connect(ctx context.Context, code, realmID, companyName string) (*integration.Credential, error) {
	realmID = strings.TrimSpace(realmID)
	if code == "" || realmID == "" {
		return nil, fmt.Errorf("%w: authorization code and realm id are required", integration.ErrTokenRefreshFailed)
	}

	token, err := p.oauth.Exchange(p.tokenContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}

	now := p.now()
	cred := &integration.Credential{
		ID:          uuid.New(),
		RealmID:     realmID,
		CompanyName: companyName,
		IsActive:    true,
		CreatedAt:   now,
	}
	cred.Rotate(token.AccessToken, token.RefreshToken, token.Expiry, refreshExpiry(token, now))
	if err := p.repo.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	p.logger.Info("accounting ledger connected",
		zap.String("realm_id", realmID),
		zap.Time("access_token_expires_at", cred.AccessTokenExpiresAt),
	)
	return cred, nil
}

func (p *OAuthCredentialProvider) loadActive(ctx context.Context) (*integration.Credential, error) {
	cred, err := p.repo.FindActive(ctx)
	if errors.Is(err, integration.ErrCredentialNotFound) {
		return nil, integration.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return cred, nil
}

// refresh reloads the credential, since another process may have rotated it,
// and exchanges the refresh token when the access token is still expired
func (p *OAuthCredentialProvider) refresh(ctx context.Context) (*integration.Credential, error) {
	cred, err := p.loadActive(ctx)
	if err != nil {
		return nil, err
	}
	now := p.now()
	if !cred.AccessTokenExpired(now, p.skew) {
		return cred, nil
	}
	if cred.RefreshTokenExpired(now) {
		return nil, fmt.Errorf("%w: refresh token expired, reconnect the company", integration.ErrNotConnected)
	}

	source := p.oauth.TokenSource(p.tokenContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: refresh token rejected, reconnect the company", integration.ErrNotConnected)
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}

	cred.Rotate(token.AccessToken, token.RefreshToken, token.Expiry, refreshExpiry(token, now))
	if err := p.repo.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("%w: persisting rotated tokens: %v", integration.ErrTokenRefreshFailed, err)
	}

	p.logger.Info("accounting access token refreshed",
		zap.String("realm_id", cred.RealmID),
		zap.Time("access_token_expires_at", cred.AccessTokenExpiresAt),
	)
	return cred, nil
}

// tokenContext makes the oauth2 package use the provider's HTTP client
func (p *OAuthCredentialProvider) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// refreshExpiry reads the refresh token lifetime from the token response, zero when absent
func refreshExpiry(token *oauth2.Token, now time.Time) time.Time {
	var seconds int64
	switch v := token.Extra(refreshTokenExpiresInField).(type) {
	case float64:
		seconds = int64(v)
	case int64:
		seconds = v
	case string:
		if _, err := fmt.Sscan(v, &seconds); err != nil {
			return time.Time{}
		}
	}
	if seconds <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(seconds) * time.Second)
}

// Ensure OAuthCredentialProvider implements CredentialProvider
var _ integration.CredentialProvider = (*OAuthCredentialProvider)(nil)
