// Package catalog provides read-only browsing of medicines and categories.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/quickmed/storefront/internal/api"
	catalogdomain "github.com/quickmed/storefront/internal/domain/catalog"
)

type catalogAPI interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Service fetches catalog data. It holds no local state.
type Service struct {
	client catalogAPI
}

// New creates a catalog browser.
func New(client catalogAPI) *Service {
	return &Service{client: client}
}

// Medicines lists medicines, optionally filtered by category and search term.
func (s *Service) Medicines(ctx context.Context, categoryID int64, search string) ([]catalogdomain.Medicine, error) {
	query := url.Values{}
	if categoryID > 0 {
		query.Set("category_id", strconv.FormatInt(categoryID, 10))
	}
	if search = strings.TrimSpace(search); search != "" {
		query.Set("search", search)
	}

	var out []catalogdomain.Medicine
	if err := s.client.Get(ctx, "/medicines", query, &out); err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return out, nil
}

// Medicine fetches a single catalog entry.
func (s *Service) Medicine(ctx context.Context, id int64) (catalogdomain.Medicine, error) {
	var out catalogdomain.Medicine
	if err := s.client.Get(ctx, fmt.Sprintf("/medicines/%d", id), nil, &out); err != nil {
		return catalogdomain.Medicine{}, fmt.Errorf("get medicine %d: %w", id, err)
	}
	return out, nil
}

// Categories lists the browsing categories.
func (s *Service) Categories(ctx context.Context) ([]catalogdomain.Category, error) {
	var out []catalogdomain.Category
	if err := s.client.Get(ctx, "/categories", nil, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

var _ catalogAPI = (*api.Client)(nil)
