// Package oauth2 owns the authorization-code and refresh-token lifecycle
// against the remote notebook service.
package oauth2

import (
	"context"
	"time"

	"github.com/mrlokans/notebridge/internal/entities"
)

// ProviderConfig contains the configuration needed for OAuth2 authorization
type ProviderConfig struct {
	ClientID string
	AuthURL  string
	TokenURL string
	Scopes   []string
}

// TokenResponse contains tokens returned from the OAuth2 provider
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int // seconds until expiry
	Scope        string
	AccountID    string // Provider-specific account identifier
}

// ExpiresAt calculates the absolute expiry time from ExpiresIn
func (t *TokenResponse) ExpiresAt() *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	exp := time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	return &exp
}

// Provider defines the interface for OAuth2 providers
type Provider interface {
	// Name returns the provider identifier
	Name() entities.OAuthProvider

	// Config returns the provider's OAuth2 configuration
	Config() ProviderConfig

	// BuildAuthURL constructs the authorization URL for the OAuth2 flow.
	// Returns the auth URL, PKCE code verifier, and state parameter.
	BuildAuthURL(redirectURL string) (authURL, codeVerifier, state string, err error)

	// ExchangeCode exchanges an authorization code for tokens
	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURL string) (*TokenResponse, error)

	// RefreshToken exchanges a refresh token for a new access token
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// GetAccountInfo retrieves the account identifier for the authenticated user
	GetAccountInfo(ctx context.Context, accessToken string) (accountID string, err error)
}
