// Package session holds the authenticated identity and credential for an
// application run. The store is created once, bound to the API client, and
// injected into every other component.
package session

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quickmed/storefront/internal/api"
	"github.com/quickmed/storefront/internal/domain/user"
	"github.com/quickmed/storefront/internal/logging"
	"github.com/quickmed/storefront/internal/metrics"
)

// authAPI is the slice of the API client the store depends on.
type authAPI interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	PostForm(ctx context.Context, path string, form url.Values, out any) error
}

// Store holds the session credential and validated identity.
// Invariant: identity is non-nil iff the credential has been validated against
// the server since it was last set.
type Store struct {
	mu       sync.Mutex
	token    string
	identity *user.User

	client  authAPI
	storage CredentialStorage
	log     *logging.Logger
}

// New creates an empty session store. Bind must be called before any
// operation that talks to the API.
func New(storage CredentialStorage, log *logging.Logger) *Store {
	if log == nil {
		log = logging.NewDefault("session")
	}
	return &Store{storage: storage, log: log}
}

// Bind attaches the API client. Split from New because the client itself
// needs the store as its token source.
func (s *Store) Bind(client authAPI) {
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// IsAuthenticated reports whether a validated identity is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// User returns a copy of the validated identity, or false when absent.
func (s *Store) User() (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return user.User{}, false
	}
	return *s.identity, true
}

// Login exchanges credentials for a token and fetches the identity. On
// failure the session stays empty; the returned error carries the
// server-provided reason when one was given.
func (s *Store) Login(ctx context.Context, email, password string) error {
	client := s.apiClient()
	if client == nil {
		return fmt.Errorf("session: store is not bound to an API client")
	}

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := client.PostForm(ctx, "/auth/login", form, &tokenResp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return fmt.Errorf("login: server returned no access token")
	}

	s.mu.Lock()
	s.token = tokenResp.AccessToken
	s.identity = nil
	s.mu.Unlock()

	identity, err := s.fetchIdentity(ctx, client)
	if err != nil {
		s.clear()
		return fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()

	if err := s.storage.Save(tokenResp.AccessToken); err != nil {
		s.log.Error(err, "persist credential")
	}
	s.log.Infof("logged in as %s", identity.Email)
	return nil
}

// Register creates a new account. The password/confirmation match is checked
// locally before any network call.
func (s *Store) Register(ctx context.Context, reg user.Registration) error {
	client := s.apiClient()
	if client == nil {
		return fmt.Errorf("session: store is not bound to an API client")
	}
	if reg.Password != reg.ConfirmPassword {
		return api.NewValidationError("passwords do not match")
	}
	if err := client.Post(ctx, "/auth/register", reg, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Restore validates a persisted credential on startup. A credential whose
// token is already expired is cleared without a network call; a rejected
// credential is cleared rather than retried. A transport failure keeps the
// credential but leaves the session unauthenticated.
func (s *Store) Restore(ctx context.Context) error {
	client := s.apiClient()
	if client == nil {
		return fmt.Errorf("session: store is not bound to an API client")
	}

	token, err := s.storage.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	if expired(token) {
		s.log.Info("stored credential expired, clearing")
		s.clear()
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.identity = nil
	s.mu.Unlock()

	identity, err := s.fetchIdentity(ctx, client)
	if err != nil {
		if api.IsUnauthorized(err) {
			// The API client's unauthorized hook has already cleared the
			// session; clear again in case the hook is not wired.
			s.clear()
			return nil
		}
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()
	s.log.Infof("session restored for %s", identity.Email)
	return nil
}

// Logout clears the credential and identity. Always succeeds locally; no
// network confirmation is required.
func (s *Store) Logout() {
	s.clear()
	s.log.Info("logged out")
}

// Invalidate clears the session after a credential rejection. Wired as the
// API client's OnUnauthorized hook.
func (s *Store) Invalidate() {
	s.mu.Lock()
	hadIdentity := s.identity != nil || s.token != ""
	s.mu.Unlock()
	s.clear()
	if hadIdentity {
		metrics.ObserveSessionInvalidation()
		s.log.Warn("credential rejected, session cleared")
	}
}

// SetUser replaces the cached identity with a server-confirmed record, e.g.
// after a profile update.
func (s *Store) SetUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != nil {
		s.identity = &u
	}
}

func (s *Store) apiClient() authAPI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Store) fetchIdentity(ctx context.Context, client authAPI) (user.User, error) {
	var u user.User
	if err := client.Get(ctx, "/auth/me", nil, &u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) clear() {
	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.mu.Unlock()
	if err := s.storage.Clear(); err != nil {
		s.log.Error(err, "clear persisted credential")
	}
}

// expired peeks at the token's exp claim without verifying the signature.
// Verification is the server's job; this only avoids a doomed round-trip.
func expired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Opaque tokens are passed through to the server untouched.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

var _ api.TokenSource = (*Store)(nil)

var _ authAPI = (*api.Client)(nil)
