package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// refreshRejectedError marks a refresh the backend explicitly refused, or
// one that could not be attempted for lack of a refresh token. Transport
// failures are ordinary errors: they say nothing about the session.
type refreshRejectedError struct {
	reason string
}

func (e *refreshRejectedError) Error() string { return e.reason }

// isRefreshRejected reports whether err means the session is genuinely over.
func isRefreshRejected(err error) bool {
	_, ok := errors.Cause(err).(*refreshRejectedError)
	return ok
}

// tokenManager owns the credential pair and the silent-refresh flow. It is
// the sole writer of the access token after a refresh; the refresh token is
// only replaced by a fresh login.
type tokenManager struct {
	baseURL    string
	httpClient *http.Client
	store      CredentialStore
	logger     *zap.SugaredLogger

	// group collapses concurrent refresh attempts into a single network
	// call; every waiter observes the same outcome.
	group singleflight.Group
}

func newTokenManager(baseURL string, httpClient *http.Client, store CredentialStore, logger *zap.SugaredLogger) *tokenManager {
	return &tokenManager{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
		logger:     logger,
	}
}

// AccessToken returns the stored access token, or "" when none is stored.
func (m *tokenManager) AccessToken() string {
	creds, err := m.store.Load()
	if err != nil {
		m.logger.Warnw("Failed to load stored credentials", "error", err)
		return ""
	}
	return creds.Access
}

// refreshResponse is the body of a successful token refresh.
type refreshResponse struct {
	Access string `json:"access"`
}

// Refresh exchanges the stored refresh token for a new access token. At most
// one refresh call is in flight at a time; concurrent callers await the same
// result. A rejected refresh clears the stored credential pair, so a later
// caller starts from a clean logged-out state; transport failures leave the
// pair intact for a retry.
func (m *tokenManager) Refresh(ctx context.Context) (string, error) {
	token, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (m *tokenManager) refresh(ctx context.Context) (string, error) {
	creds, err := m.store.Load()
	if err != nil {
		return "", errors.Wrap(err, "failed to load credentials")
	}
	if creds.Refresh == "" {
		return "", &refreshRejectedError{reason: "no refresh token stored"}
	}

	payload, err := json.Marshal(map[string]string{"refresh": creds.Refresh})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal refresh request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+RefreshPath, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to create refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "refresh request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Infow("Token refresh rejected, clearing credentials", "status", resp.StatusCode)
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warnw("Failed to clear credentials", "error", clearErr)
		}
		return "", &refreshRejectedError{reason: fmt.Sprintf("refresh rejected with HTTP %d", resp.StatusCode)}
	}

	var refreshed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		return "", errors.Wrap(err, "failed to parse refresh response")
	}
	if refreshed.Access == "" {
		return "", errors.New("refresh response missing access token")
	}

	// New access token, refresh token untouched.
	creds.Access = refreshed.Access
	if err := m.store.Save(creds); err != nil {
		return "", errors.Wrap(err, "failed to save refreshed credentials")
	}

	m.logger.Debugw("Access token refreshed")
	return refreshed.Access, nil
}
