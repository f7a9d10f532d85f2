// Package profile manages the user profile and the saved-address collection.
// The server enforces the single-default-address invariant; this package only
// mirrors server-confirmed state.
package profile

import (
	"context"
	"fmt"
	"net/url"

	"github.com/quickmed/storefront/internal/api"
	"github.com/quickmed/storefront/internal/domain/user"
	"github.com/quickmed/storefront/internal/logging"
	"github.com/quickmed/storefront/internal/session"
)

type profileAPI interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Service is the profile/address manager.
type Service struct {
	client  profileAPI
	session *session.Store
	log     *logging.Logger
}

// New creates a profile manager. The session store receives the updated
// identity after profile changes.
func New(client profileAPI, sess *session.Store, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("profile")
	}
	return &Service{client: client, session: sess, log: log}
}

// UpdateProfile submits profile changes and refreshes the cached identity
// with the server's response.
func (s *Service) UpdateProfile(ctx context.Context, fields user.ProfileFields) (user.User, error) {
	var updated user.User
	if err := s.client.Put(ctx, "/auth/profile", fields, &updated); err != nil {
		return user.User{}, fmt.Errorf("update profile: %w", err)
	}
	if s.session != nil {
		s.session.SetUser(updated)
	}
	return updated, nil
}

// ChangePassword updates the account password. The confirmation match is
// checked locally before any network call.
func (s *Service) ChangePassword(ctx context.Context, current, newPassword, confirm string) error {
	if newPassword != confirm {
		return api.NewValidationError("passwords do not match")
	}
	body := struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}{CurrentPassword: current, NewPassword: newPassword}

	if err := s.client.Put(ctx, "/users/password", body, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// Addresses fetches the saved address collection.
func (s *Service) Addresses(ctx context.Context) ([]user.Address, error) {
	var out []user.Address
	if err := s.client.Get(ctx, "/users/addresses", nil, &out); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return out, nil
}

// AddAddress saves a new address and returns the server's record.
func (s *Service) AddAddress(ctx context.Context, fields user.AddressFields) (user.Address, error) {
	var created user.Address
	if err := s.client.Post(ctx, "/users/addresses", fields, &created); err != nil {
		return user.Address{}, fmt.Errorf("add address: %w", err)
	}
	return created, nil
}

// DeleteAddress removes a saved address.
func (s *Service) DeleteAddress(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/users/addresses/%d", id), nil); err != nil {
		return fmt.Errorf("delete address %d: %w", id, err)
	}
	return nil
}

// SetDefaultAddress marks one address as default, then re-fetches the whole
// collection. Which other addresses lost their default flag is the server's
// decision, so the refreshed collection is the only trustworthy view.
func (s *Service) SetDefaultAddress(ctx context.Context, id int64) ([]user.Address, error) {
	if err := s.client.Put(ctx, fmt.Sprintf("/users/addresses/%d/default", id), nil, nil); err != nil {
		return nil, fmt.Errorf("set default address %d: %w", id, err)
	}
	return s.Addresses(ctx)
}

var _ profileAPI = (*api.Client)(nil)
