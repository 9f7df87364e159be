package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Constants for client behavior and defaults
const (
	// DefaultTimeout bounds every HTTP request issued by the client.
	DefaultTimeout = 30 * time.Second

	// RefreshPath is the token refresh endpoint. A 401 from this path is
	// terminal: it never triggers another refresh.
	RefreshPath = "/api/auth/token/refresh/"

	// CSRFCookieName is the cookie Django sets with the CSRF token.
	CSRFCookieName = "csrftoken"

	// CSRFHeaderName carries the CSRF token back on mutating requests.
	CSRFHeaderName = "X-CSRFToken"

	// RequestIDHeaderName carries a per-attempt correlation ID.
	RequestIDHeaderName = "X-Request-ID"
)

// Config captures everything a Client needs. The zero value is not usable;
// BaseURL is required and the remaining fields have working defaults.
type Config struct {
	// BaseURL is the root of the HooYia Market backend, e.g.
	// "https://market.example.com". Required.
	BaseURL string

	// HTTPClient issues the requests. When nil a client with DefaultTimeout
	// is created. A cookie jar is attached if the client has none, so the
	// CSRF cookie set by the backend can be echoed back.
	HTTPClient *http.Client

	// Store holds the credential pair. Defaults to an in-process MemoryStore.
	Store CredentialStore

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.SugaredLogger

	// Notifier, when set, receives the human-readable message extracted from
	// every non-silent failed request. Hosts typically show it as a toast.
	Notifier func(message string)

	// OnSessionExpired fires once per terminal authorization failure (the
	// refresh itself failed and the stored credentials were cleared). Hosts
	// typically start a login flow.
	OnSessionExpired func()
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("missing required field 'BaseURL'")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrap(err, "invalid BaseURL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("BaseURL must use http or https scheme, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("BaseURL must include a host")
	}

	return nil
}
