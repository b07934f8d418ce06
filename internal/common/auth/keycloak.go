// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"onboarding-workers/internal/common/errors"
)

// AdminDirectory confirms that an admin may act on onboarding approvals.
type AdminDirectory interface {
	VerifyAdmin(ctx context.Context, adminID string) error
}

// KeycloakDirectory looks admins up in a Keycloak realm through the admin
// REST API using the client credentials flow.
type KeycloakDirectory struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	adminRole    string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User is the subset of the Keycloak user representation read here.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Enabled  bool   `json:"enabled"`
}

type role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func NewKeycloakDirectory(baseURL, realm, clientID, clientSecret, adminRole string) *KeycloakDirectory {
	return &KeycloakDirectory{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		adminRole:    adminRole,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifyAdmin fails with a validation error when the admin is unknown,
// disabled, or lacks the configured realm role. Directory outages are
// retryable external service errors.
func (k *KeycloakDirectory) VerifyAdmin(ctx context.Context, adminID string) error {
	if adminID == "" {
		return errors.NewValidationError("An acting admin is required", "admin")
	}

	var user User
	status, err := k.get(ctx, fmt.Sprintf("/admin/realms/%s/users/%s", k.realm, url.PathEscape(adminID)), &user)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound || !user.Enabled {
		return notAnAdmin(adminID)
	}

	if k.adminRole == "" {
		return nil
	}

	var roles []role
	status, err = k.get(ctx, fmt.Sprintf("/admin/realms/%s/users/%s/role-mappings/realm", k.realm, url.PathEscape(adminID)), &roles)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return notAnAdmin(adminID)
	}
	for _, r := range roles {
		if r.Name == k.adminRole {
			return nil
		}
	}
	return notAnAdmin(adminID)
}

func notAnAdmin(adminID string) error {
	e := errors.NewValidationError("Acting admin is not an active onboarding admin", "admin")
	e.Details = "adminId: " + adminID
	return e
}

// get performs an authenticated GET and decodes a 200 body into out. A 404 is
// returned as a status, not an error.
func (k *KeycloakDirectory) get(ctx context.Context, path string, out interface{}) (int, error) {
	token, err := k.token(ctx)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+path, nil)
	if err != nil {
		return 0, errors.NewExternalServiceError("keycloak", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return 0, errors.NewExternalServiceError("keycloak", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusUnauthorized:
		k.invalidateToken()
		return 0, errors.NewAuthenticationError("keycloak rejected the service token")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return 0, errors.NewExternalServiceError("keycloak",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return 0, errors.NewExternalServiceError("keycloak", fmt.Errorf("decode response: %w", err))
	}
	return resp.StatusCode, nil
}

// token returns a cached service token, fetching a new one shortly before the
// old one expires.
func (k *KeycloakDirectory) token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		return k.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", errors.NewExternalServiceError("keycloak", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", errors.NewExternalServiceError("keycloak", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.NewAuthenticationError(fmt.Sprintf("token request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", errors.NewExternalServiceError("keycloak", fmt.Errorf("decode token response: %w", err))
	}

	k.accessToken = tokenResp.AccessToken
	// Refresh 30s early so an in-flight request never carries an expired token.
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 30*time.Second)
	return k.accessToken, nil
}

func (k *KeycloakDirectory) invalidateToken() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.accessToken = ""
}

// AllowAll accepts every non-empty admin id. It is used when no directory is
// configured.
type AllowAll struct{}

func (AllowAll) VerifyAdmin(_ context.Context, adminID string) error {
	if adminID == "" {
		return errors.NewValidationError("An acting admin is required", "admin")
	}
	return nil
}
