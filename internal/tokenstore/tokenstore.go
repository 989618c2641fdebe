// Package tokenstore persists OAuth tokens in a dedicated sqlite database,
// kept separate from the import-state database so credentials can be managed
// (and deleted) independently of migration history.
package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/notebridge/internal/entities"
)

// ErrTokenNotFound is returned when no token is stored for the requested
// provider or account.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore provides storage for OAuth tokens.
type TokenStore struct {
	db *gorm.DB
}

// New opens the token database at the given path and migrates the schema.
// The database file is created with owner-only permissions.
func New(dbPath string) (*TokenStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}

	if err := db.AutoMigrate(&entities.OAuthToken{}); err != nil {
		return nil, fmt.Errorf("failed to migrate token schema: %w", err)
	}

	// Tokens are stored in plaintext; restrict the file to the owner.
	if err := os.Chmod(dbPath, 0600); err != nil {
		return nil, fmt.Errorf("failed to restrict token database permissions: %w", err)
	}

	return &TokenStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *TokenStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveToken creates or replaces the stored token for a provider/account pair.
func (s *TokenStore) SaveToken(cred *entities.Credential) error {
	var existing entities.OAuthToken
	result := s.db.Where("provider = ? AND account_id = ?", cred.Provider, cred.AccountID).
		First(&existing)

	if result.Error == gorm.ErrRecordNotFound {
		token := entities.OAuthToken{
			Provider:     cred.Provider,
			AccountID:    cred.AccountID,
			AccessToken:  cred.AccessToken,
			RefreshToken: cred.RefreshToken,
			TokenType:    cred.TokenType,
			ExpiresAt:    cred.ExpiresAt,
			Scope:        cred.Scope,
		}
		return s.db.Create(&token).Error
	} else if result.Error != nil {
		return result.Error
	}

	existing.AccessToken = cred.AccessToken
	if cred.RefreshToken != "" {
		existing.RefreshToken = cred.RefreshToken
	}
	existing.TokenType = cred.TokenType
	existing.ExpiresAt = cred.ExpiresAt
	existing.Scope = cred.Scope
	return s.db.Save(&existing).Error
}

// GetToken retrieves the token for a provider/account pair, or
// ErrTokenNotFound when absent.
func (s *TokenStore) GetToken(provider entities.OAuthProvider, accountID string) (*entities.Credential, error) {
	var token entities.OAuthToken
	err := s.db.Where("provider = ? AND account_id = ?", provider, accountID).
		First(&token).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return credentialFromToken(&token), nil
}

// GetTokenByProvider retrieves the most recently updated token for a provider,
// or ErrTokenNotFound when the provider has no stored token.
func (s *TokenStore) GetTokenByProvider(provider entities.OAuthProvider) (*entities.Credential, error) {
	var token entities.OAuthToken
	err := s.db.Where("provider = ?", provider).
		Order("updated_at DESC").
		First(&token).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return credentialFromToken(&token), nil
}

// UpdateTokenAfterRefresh stores a refreshed access token and, if rotated,
// the new refresh token. The update is committed before this returns.
func (s *TokenStore) UpdateTokenAfterRefresh(
	provider entities.OAuthProvider,
	accountID string,
	accessToken, refreshToken string,
	expiresAt *time.Time,
) error {
	now := time.Now()
	return s.db.Model(&entities.OAuthToken{}).
		Where("provider = ? AND account_id = ?", provider, accountID).
		Updates(map[string]any{
			"access_token":      accessToken,
			"refresh_token":     refreshToken,
			"expires_at":        expiresAt,
			"last_refreshed_at": now,
			"updated_at":        now,
		}).Error
}

// UpdateLastUsed records that the token was just used.
func (s *TokenStore) UpdateLastUsed(provider entities.OAuthProvider, accountID string) error {
	now := time.Now()
	return s.db.Model(&entities.OAuthToken{}).
		Where("provider = ? AND account_id = ?", provider, accountID).
		Update("last_used_at", now).Error
}

// DeleteToken removes the stored token for a provider/account pair.
func (s *TokenStore) DeleteToken(provider entities.OAuthProvider, accountID string) error {
	return s.db.Where("provider = ? AND account_id = ?", provider, accountID).
		Delete(&entities.OAuthToken{}).Error
}

func credentialFromToken(token *entities.OAuthToken) *entities.Credential {
	return &entities.Credential{
		Provider:     token.Provider,
		AccountID:    token.AccountID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.ExpiresAt,
		Scope:        token.Scope,
	}
}
