package oauth2

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/notebridge/internal/tokenstore"
)

// TokenSource provides access tokens with automatic refresh capability
type TokenSource interface {
	// Token returns a valid access token, refreshing if necessary
	Token(ctx context.Context) (string, error)

	// ForceRefresh forces a token refresh regardless of expiry status
	ForceRefresh(ctx context.Context) error

	// IsValid returns true if the current token is valid and not expired
	IsValid() bool

	// ExpiresAt returns the token expiry time, or nil if unknown/no expiry
	ExpiresAt() *time.Time

	// AccountID returns the account identifier associated with this token
	AccountID() string
}

// StoredTokenSource provides tokens from the token store with automatic refresh
type StoredTokenSource struct {
	mu sync.RWMutex

	provider   Provider
	tokenStore *tokenstore.TokenStore
	accountID  string

	// Cached token data
	accessToken string
	expiresAt   *time.Time

	// Margin before expiry to trigger refresh (default: 5 minutes)
	refreshMargin time.Duration
}

// StoredTokenSourceOption configures a StoredTokenSource
type StoredTokenSourceOption func(*StoredTokenSource)

// WithRefreshMargin sets the time before expiry to trigger automatic refresh
func WithRefreshMargin(d time.Duration) StoredTokenSourceOption {
	return func(s *StoredTokenSource) {
		s.refreshMargin = d
	}
}

// NewStoredTokenSource creates a TokenSource that retrieves and refreshes tokens from the store
func NewStoredTokenSource(
	provider Provider,
	store *tokenstore.TokenStore,
	accountID string,
	opts ...StoredTokenSourceOption,
) *StoredTokenSource {
	ts := &StoredTokenSource{
		provider:      provider,
		tokenStore:    store,
		accountID:     accountID,
		refreshMargin: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts
}

// Token returns a valid access token, refreshing if necessary
func (s *StoredTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// If we have a valid cached token, return it
	if s.accessToken != "" && !s.isExpiringSoon() {
		return s.accessToken, nil
	}

	// Load from store
	cred, err := s.tokenStore.GetToken(s.provider.Name(), s.accountID)
	if errors.Is(err, tokenstore.ErrTokenNotFound) {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token from store: %w", err)
	}

	// Update cache
	s.accessToken = cred.AccessToken
	s.expiresAt = cred.ExpiresAt

	// Check if refresh is needed
	if s.isExpiringSoon() {
		if cred.RefreshToken == "" {
			return "", fmt.Errorf("token expired: %w", ErrUnauthenticated)
		}

		if err := s.refreshLocked(ctx, cred.RefreshToken); err != nil {
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}
	}

	// Update last used timestamp
	_ = s.tokenStore.UpdateLastUsed(s.provider.Name(), s.accountID)

	return s.accessToken, nil
}

// ForceRefresh forces a token refresh
func (s *StoredTokenSource) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.tokenStore.GetToken(s.provider.Name(), s.accountID)
	if errors.Is(err, tokenstore.ErrTokenNotFound) {
		return ErrUnauthenticated
	}
	if err != nil {
		return fmt.Errorf("failed to get token from store: %w", err)
	}
	if cred.RefreshToken == "" {
		return fmt.Errorf("%w: %s", ErrUnauthenticated, ErrNoRefreshToken)
	}

	return s.refreshLocked(ctx, cred.RefreshToken)
}

// refreshLocked performs token refresh (caller must hold the lock).
// The store is updated before the cached token, so a crash mid-refresh
// never leaves a persisted token behind the in-memory one.
func (s *StoredTokenSource) refreshLocked(ctx context.Context, refreshToken string) error {
	resp, err := s.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	// Keep existing refresh token if the provider did not rotate it
	newRefreshToken := resp.RefreshToken
	if newRefreshToken == "" {
		newRefreshToken = refreshToken
	}

	expiresAt := resp.ExpiresAt()
	if err := s.tokenStore.UpdateTokenAfterRefresh(
		s.provider.Name(),
		s.accountID,
		resp.AccessToken,
		newRefreshToken,
		expiresAt,
	); err != nil {
		return fmt.Errorf("failed to save refreshed token: %w", err)
	}

	s.accessToken = resp.AccessToken
	s.expiresAt = expiresAt

	return nil
}

// IsValid returns true if the current token exists and is not expired
func (s *StoredTokenSource) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accessToken == "" {
		return false
	}
	return !s.isExpiringSoon()
}

// ExpiresAt returns the token expiry time
func (s *StoredTokenSource) ExpiresAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// AccountID returns the associated account identifier
func (s *StoredTokenSource) AccountID() string {
	return s.accountID
}

// isExpiringSoon checks if the token is expired or expiring within the refresh margin
func (s *StoredTokenSource) isExpiringSoon() bool {
	if s.expiresAt == nil {
		return false // No expiry means token doesn't expire
	}
	return time.Now().Add(s.refreshMargin).After(*s.expiresAt)
}

// StaticTokenSource provides a fixed access token without refresh capability
type StaticTokenSource struct {
	accessToken string
	accountID   string
}

// NewStaticTokenSource creates a TokenSource with a fixed token
func NewStaticTokenSource(accessToken, accountID string) *StaticTokenSource {
	return &StaticTokenSource{
		accessToken: accessToken,
		accountID:   accountID,
	}
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	return s.accessToken, nil
}

func (s *StaticTokenSource) ForceRefresh(ctx context.Context) error {
	return fmt.Errorf("static token source does not support refresh")
}

func (s *StaticTokenSource) IsValid() bool {
	return s.accessToken != ""
}

func (s *StaticTokenSource) ExpiresAt() *time.Time {
	return nil
}

func (s *StaticTokenSource) AccountID() string {
	return s.accountID
}

// ProviderTokenSource creates a TokenSource from the most recently stored
// credential for the provider.
func ProviderTokenSource(
	provider Provider,
	store *tokenstore.TokenStore,
	opts ...StoredTokenSourceOption,
) (*StoredTokenSource, error) {
	cred, err := store.GetTokenByProvider(provider.Name())
	if errors.Is(err, tokenstore.ErrTokenNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return NewStoredTokenSource(provider, store, cred.AccountID, opts...), nil
}
