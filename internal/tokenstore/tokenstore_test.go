package tokenstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/notebridge/internal/entities"
)

func setupStore(t *testing.T) *TokenStore {
	store, err := New(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetToken(t *testing.T) {
	store := setupStore(t)

	expiry := time.Now().Add(time.Hour)
	err := store.SaveToken(&entities.Credential{
		Provider:     entities.OAuthProviderMicrosoft,
		AccountID:    "user@example.com",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		ExpiresAt:    &expiry,
		Scope:        "Notes.Read offline_access",
	})
	require.NoError(t, err)

	cred, err := store.GetToken(entities.OAuthProviderMicrosoft, "user@example.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
}

func TestGetToken_Missing(t *testing.T) {
	store := setupStore(t)

	cred, err := store.GetToken(entities.OAuthProviderMicrosoft, "nobody")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Nil(t, cred)
}

func TestSaveToken_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.SaveToken(&entities.Credential{
		Provider:     entities.OAuthProviderMicrosoft,
		AccountID:    "a",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}))

	// Second save without a refresh token must not clear the stored one.
	require.NoError(t, store.SaveToken(&entities.Credential{
		Provider:    entities.OAuthProviderMicrosoft,
		AccountID:   "a",
		AccessToken: "access-2",
	}))

	cred, err := store.GetToken(entities.OAuthProviderMicrosoft, "a")
	require.NoError(t, err)
	assert.Equal(t, "access-2", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
}

func TestUpdateTokenAfterRefresh(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.SaveToken(&entities.Credential{
		Provider:     entities.OAuthProviderMicrosoft,
		AccountID:    "a",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}))

	expiry := time.Now().Add(30 * time.Minute)
	require.NoError(t, store.UpdateTokenAfterRefresh(
		entities.OAuthProviderMicrosoft, "a", "access-2", "refresh-2", &expiry))

	cred, err := store.GetToken(entities.OAuthProviderMicrosoft, "a")
	require.NoError(t, err)
	assert.Equal(t, "access-2", cred.AccessToken)
	assert.Equal(t, "refresh-2", cred.RefreshToken)
	require.NotNil(t, cred.ExpiresAt)
}

func TestGetTokenByProvider(t *testing.T) {
	store := setupStore(t)

	cred, err := store.GetTokenByProvider(entities.OAuthProviderMicrosoft)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Nil(t, cred)

	require.NoError(t, store.SaveToken(&entities.Credential{
		Provider:    entities.OAuthProviderMicrosoft,
		AccountID:   "a",
		AccessToken: "access-1",
	}))

	cred, err = store.GetTokenByProvider(entities.OAuthProviderMicrosoft)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "a", cred.AccountID)
}
