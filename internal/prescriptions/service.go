// Package prescriptions uploads, lists and deletes prescription documents.
// Verification itself happens server-side; this package only tracks the
// resulting status.
package prescriptions

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/quickmed/storefront/internal/api"
	"github.com/quickmed/storefront/internal/domain/rx"
	"github.com/quickmed/storefront/internal/logging"
)

type rxAPI interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	PostMultipart(ctx context.Context, path, field, filename string, r io.Reader, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Service is the prescription manager.
type Service struct {
	client rxAPI
	log    *logging.Logger
}

// New creates a prescription manager.
func New(client rxAPI, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("prescriptions")
	}
	return &Service{client: client, log: log}
}

// List fetches the user's prescriptions in server order.
func (s *Service) List(ctx context.Context) ([]rx.Prescription, error) {
	var out []rx.Prescription
	if err := s.client.Get(ctx, "/prescriptions", nil, &out); err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return out, nil
}

// Get fetches a single prescription.
func (s *Service) Get(ctx context.Context, id int64) (rx.Prescription, error) {
	var out rx.Prescription
	if err := s.client.Get(ctx, fmt.Sprintf("/prescriptions/%d", id), nil, &out); err != nil {
		return rx.Prescription{}, fmt.Errorf("get prescription %d: %w", id, err)
	}
	return out, nil
}

// Upload submits a prescription document. An empty blob or blank filename is
// rejected locally with no network call; the server assigns the initial
// pending status.
func (s *Service) Upload(ctx context.Context, filename string, blob io.Reader) (rx.Prescription, error) {
	if strings.TrimSpace(filename) == "" {
		return rx.Prescription{}, api.NewValidationError("a filename is required")
	}

	data, err := io.ReadAll(blob)
	if err != nil {
		return rx.Prescription{}, fmt.Errorf("read prescription file: %w", err)
	}
	if len(data) == 0 {
		return rx.Prescription{}, api.NewValidationError("prescription file is empty")
	}

	var created rx.Prescription
	if err := s.client.PostMultipart(ctx, "/prescriptions/upload", "prescription_file", filename, bytes.NewReader(data), &created); err != nil {
		return rx.Prescription{}, fmt.Errorf("upload prescription: %w", err)
	}
	s.log.Infof("prescription %d uploaded", created.ID)
	return created, nil
}

// Delete removes a prescription. The local status check is advisory; the
// server is authoritative and may still reject the deletion.
func (s *Service) Delete(ctx context.Context, p rx.Prescription) error {
	if !p.Deletable() {
		return api.NewValidationError("approved prescriptions cannot be deleted")
	}
	if err := s.client.Delete(ctx, fmt.Sprintf("/prescriptions/%d", p.ID), nil); err != nil {
		return fmt.Errorf("delete prescription %d: %w", p.ID, err)
	}
	return nil
}

var _ rxAPI = (*api.Client)(nil)
