package providers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrlokans/notebridge/internal/entities"
	"github.com/mrlokans/notebridge/internal/oauth2"
)

const (
	microsoftAuthURL  = "https://login.microsoftonline.com/common/oauth2/v2.0/authorize"
	microsoftTokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	microsoftGraphURL = "https://graph.microsoft.com/v1.0"
)

// microsoftScopes includes offline_access so a refresh token is issued.
var microsoftScopes = []string{"offline_access", "User.Read", "Notes.Read"}

// MicrosoftProvider implements OAuth2 for the Microsoft identity platform using PKCE
type MicrosoftProvider struct {
	clientID   string
	httpClient *http.Client
}

// NewMicrosoftProvider creates a new Microsoft OAuth2 provider
func NewMicrosoftProvider(clientID string) *MicrosoftProvider {
	return &MicrosoftProvider{
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *MicrosoftProvider) Name() entities.OAuthProvider {
	return entities.OAuthProviderMicrosoft
}

func (p *MicrosoftProvider) Config() oauth2.ProviderConfig {
	return oauth2.ProviderConfig{
		ClientID: p.clientID,
		AuthURL:  microsoftAuthURL,
		TokenURL: microsoftTokenURL,
		Scopes:   microsoftScopes,
	}
}

func (p *MicrosoftProvider) BuildAuthURL(redirectURL string) (authURL, codeVerifier, state string, err error) {
	codeVerifier, err = generateCodeVerifier()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	codeChallenge := generateCodeChallenge(codeVerifier)

	state, err = generateState()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", p.clientID)
	params.Set("response_type", "code")
	params.Set("response_mode", "query")
	params.Set("scope", strings.Join(microsoftScopes, " "))
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", "S256")
	params.Set("state", state)

	if redirectURL != "" {
		params.Set("redirect_uri", redirectURL)
	}

	authURL = microsoftAuthURL + "?" + params.Encode()
	return authURL, codeVerifier, state, nil
}

func (p *MicrosoftProvider) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURL string) (*oauth2.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", p.clientID)
	data.Set("code_verifier", codeVerifier)
	data.Set("scope", strings.Join(microsoftScopes, " "))

	if redirectURL != "" {
		data.Set("redirect_uri", redirectURL)
	}

	return p.tokenRequest(ctx, data, "token exchange")
}

func (p *MicrosoftProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", p.clientID)
	data.Set("scope", strings.Join(microsoftScopes, " "))

	return p.tokenRequest(ctx, data, "token refresh")
}

// tokenRequest posts form data to the token endpoint and parses the response.
// The Microsoft identity platform rotates refresh tokens on every refresh.
func (p *MicrosoftProvider) tokenRequest(ctx context.Context, data url.Values, op string) (*oauth2.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", microsoftTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s failed: %s - %s", op, errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		Scope        string `json:"scope"`
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", op, err)
	}

	return &oauth2.TokenResponse{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    tokenResp.ExpiresIn,
		Scope:        tokenResp.Scope,
	}, nil
}

func (p *MicrosoftProvider) GetAccountInfo(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", microsoftGraphURL+"/me", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get account info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to get account info (status %d): %s", resp.StatusCode, string(body))
	}

	var accountResp struct {
		ID                string `json:"id"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accountResp); err != nil {
		return "", fmt.Errorf("failed to parse account response: %w", err)
	}

	if accountResp.UserPrincipalName != "" {
		return accountResp.UserPrincipalName, nil
	}
	return accountResp.ID, nil
}

// generateCodeVerifier creates a random code verifier for PKCE
func generateCodeVerifier() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// generateCodeChallenge creates a code challenge from the verifier using S256
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// generateState creates a random state value for CSRF protection
func generateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
