package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// AccountService covers authentication and profile endpoints.
type AccountService struct {
	client *Client
}

// Profile is the authenticated user's own profile.
type Profile struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	LastName      string `json:"nom"`
	FirstName     string `json:"prenom"`
	FullName      string `json:"nom_complet"`
	Phone         string `json:"telephone"`
	PhotoURL      string `json:"photo_profil"`
	IsSeller      bool   `json:"is_vendeur"`
	EmailVerified bool   `json:"email_verifie"`
	JoinedAt      string `json:"date_inscription"`
}

// Login exchanges an email/password pair for a credential pair and stores
// it. Any previously stored credentials are replaced.
func (s *AccountService) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}

	var creds Credentials
	if err := s.client.Do(ctx, http.MethodPost, "/api/auth/token/", body, &creds); err != nil {
		return err
	}
	if creds.Access == "" || creds.Refresh == "" {
		return errors.New("login response missing tokens")
	}

	return s.client.store.Save(creds)
}

// Logout tells the backend to blacklist the refresh token and clears the
// stored credential pair. The store is cleared even when the backend call
// fails: the local session is gone either way.
func (s *AccountService) Logout(ctx context.Context) error {
	creds, loadErr := s.client.store.Load()

	var reqErr error
	if loadErr == nil && creds.Refresh != "" {
		body := map[string]string{"refresh": creds.Refresh}
		reqErr = s.client.Do(ctx, http.MethodPost, "/api/auth/logout/", body, nil, Silent())
	}

	if err := s.client.store.Clear(); err != nil {
		return err
	}
	return reqErr
}

// Profile fetches the authenticated user's profile.
func (s *AccountService) Profile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := s.client.Do(ctx, http.MethodGet, "/api/auth/profil/", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
