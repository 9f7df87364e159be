// Package api is the REST half of the HooYia Market Go client. It wraps
// every outbound call with bearer-token auth, CSRF header injection and a
// single-flight silent token refresh on authorization failure, and exposes
// typed services for the backend's resource endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client is the resilient request client. It owns the credential pair
// (through its CredentialStore) and is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      CredentialStore
	tokens     *tokenManager
	logger     *zap.SugaredLogger

	notifier         func(string)
	onSessionExpired func()

	// Typed access to the backend's resource endpoints.
	Account       *AccountService
	Cart          *CartService
	Chat          *ChatService
	Notifications *NotificationService
	Products      *ProductService
}

// NewClient validates the configuration and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid client configuration")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid base URL")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create cookie jar")
		}
		httpClient.Jar = jar
	}

	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &Client{
		baseURL:          base,
		httpClient:       httpClient,
		store:            store,
		tokens:           newTokenManager(base.String(), httpClient, store, logger),
		logger:           logger,
		notifier:         cfg.Notifier,
		onSessionExpired: cfg.OnSessionExpired,
	}

	c.Account = &AccountService{client: c}
	c.Cart = &CartService{client: c}
	c.Chat = &ChatService{client: c}
	c.Notifications = &NotificationService{client: c}
	c.Products = &ProductService{client: c}

	return c, nil
}

// RequestOptions tune a single request.
type RequestOptions struct {
	// Silent suppresses the Notifier callback for this request. The error is
	// still returned.
	Silent bool
}

// RequestOption mutates RequestOptions.
type RequestOption func(*RequestOptions)

// Silent suppresses the Notifier callback for one request.
func Silent() RequestOption {
	return func(o *RequestOptions) { o.Silent = true }
}

// Do issues a JSON request against path and decodes the response body into
// out when out is non-nil. A 204 response, an empty body or a non-JSON body
// all leave out untouched. Non-2xx responses return an *APIError; a terminal
// authorization failure returns ErrSessionExpired.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...RequestOption) error {
	options := RequestOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	raw, err := c.request(ctx, method, path, body, options)
	if err != nil {
		return err
	}
	if raw == nil || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// request performs one logical request, including the 401 refresh-and-retry
// path, and returns the raw JSON payload (nil for 204, empty and non-JSON
// bodies).
func (c *Client) request(ctx context.Context, method, path string, body interface{}, options RequestOptions) (json.RawMessage, error) {
	resp, err := c.attempt(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && path != RefreshPath {
		// Drain so the connection can be reused for the retry.
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()

		if _, err := c.tokens.Refresh(ctx); err != nil {
			if !isRefreshRejected(err) {
				// The refresh never got an answer; the session may still be
				// good, so keep the credentials and surface the failure.
				c.logger.Debugw("Token refresh failed", "method", method, "path", path, "error", err)
				return nil, errors.Wrap(err, "token refresh failed")
			}
			c.logger.Infow("Session expired", "method", method, "path", path, "error", err)
			if clearErr := c.store.Clear(); clearErr != nil {
				c.logger.Warnw("Failed to clear credentials", "error", clearErr)
			}
			if c.onSessionExpired != nil {
				c.onSessionExpired()
			}
			return nil, ErrSessionExpired
		}

		resp, err = c.attempt(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(data) == 0 || !json.Valid(data) {
			return nil, nil
		}
		return json.RawMessage(data), nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Body:       data,
		Message:    extractMessage(data),
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("Error %d", resp.StatusCode)
	}

	c.logger.Debugw("Request failed", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
	if !options.Silent && c.notifier != nil {
		c.notifier(apiErr.Message)
	}
	return nil, apiErr
}

// attempt issues a single HTTP attempt with fresh headers. The body is
// re-marshaled per attempt so the 401 retry never reuses a drained reader.
func (c *Client) attempt(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeaderName, uuid.NewString())
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet {
		if csrf := c.csrfToken(); csrf != "" {
			req.Header.Set(CSRFHeaderName, csrf)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", method, path)
	}
	return resp, nil
}

// csrfToken reads the CSRF token Django set as a cookie, if any.
func (c *Client) csrfToken() string {
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		if cookie.Name == CSRFCookieName {
			return cookie.Value
		}
	}
	return ""
}
