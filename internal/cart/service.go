// Package cart mediates reads and writes of the server-side cart and keeps a
// local view consistent with it. The server is the source of truth; the local
// copy is a cache invalidated on every mutation response.
package cart

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/quickmed/storefront/internal/api"
	cartdomain "github.com/quickmed/storefront/internal/domain/cart"
	"github.com/quickmed/storefront/internal/logging"
)

type cartAPI interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Service is the cart synchronizer. Mutating operations set a busy flag for
// their duration; callers must not trigger a second mutation while one is in
// flight, since the API has no idempotency key. Re-entrant calls are rejected
// with a validation error as a backstop.
type Service struct {
	mu                sync.Mutex
	items             []cartdomain.Item
	needsPrescription bool
	busy              bool

	client cartAPI
	log    *logging.Logger
}

// New creates a cart synchronizer.
func New(client cartAPI, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("cart")
	}
	return &Service{client: client, log: log}
}

type cartResponse struct {
	Items []cartdomain.Item `json:"items"`
}

// Load fetches the full item list and recomputes derived state.
func (s *Service) Load(ctx context.Context) (cartdomain.Cart, error) {
	var resp cartResponse
	if err := s.client.Get(ctx, "/cart", nil, &resp); err != nil {
		return cartdomain.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	s.replace(resp.Items)
	return s.view(), nil
}

// Add puts a medicine into the cart and reloads the server's view of it. The
// server merges duplicate lines, so a reload is the only way to know the
// resulting item set.
func (s *Service) Add(ctx context.Context, medicineID int64, quantity int, prescriptionID *int64) error {
	if quantity < 1 {
		return api.NewValidationError("quantity must be at least 1")
	}
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	body := struct {
		MedicineID     int64  `json:"medicine_id"`
		Quantity       int    `json:"quantity"`
		PrescriptionID *int64 `json:"prescription_id,omitempty"`
	}{MedicineID: medicineID, Quantity: quantity, PrescriptionID: prescriptionID}

	if err := s.client.Post(ctx, "/cart/add", body, nil); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}

	var resp cartResponse
	if err := s.client.Get(ctx, "/cart", nil, &resp); err != nil {
		return fmt.Errorf("reload cart: %w", err)
	}
	s.replace(resp.Items)
	return nil
}

// SetQuantity updates a line's quantity. Values below 1 are rejected locally
// with no network call. Local state mutates only after the server confirms;
// stock-boundary enforcement is server-authoritative, so there is no
// optimistic pre-write here.
func (s *Service) SetQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return api.NewValidationError("quantity must be at least 1")
	}
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	body := struct {
		CartItemID int64 `json:"cart_item_id"`
		Quantity   int   `json:"quantity"`
	}{CartItemID: itemID, Quantity: quantity}

	if err := s.client.Put(ctx, "/cart/update", body, nil); err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Quantity = quantity
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// Remove deletes a line. On confirmation the item is dropped locally and the
// prescription flag is recomputed from the remaining set, not from the
// pre-removal value.
func (s *Service) Remove(ctx context.Context, itemID int64) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.client.Delete(ctx, fmt.Sprintf("/cart/remove/%d", itemID), nil); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}

	s.mu.Lock()
	remaining := s.items[:0]
	for _, it := range s.items {
		if it.ID != itemID {
			remaining = append(remaining, it)
		}
	}
	s.items = remaining
	s.needsPrescription = cartdomain.NeedsPrescription(s.items)
	s.mu.Unlock()
	return nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.client.Delete(ctx, "/cart", nil); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.replace(nil)
	return nil
}

// Invalidate drops the local view. Called after checkout empties the cart
// server-side; the next Load repopulates it.
func (s *Service) Invalidate() {
	s.replace(nil)
}

// Items returns a copy of the current local item set.
func (s *Service) Items() []cartdomain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cartdomain.Item, len(s.items))
	copy(out, s.items)
	return out
}

// NeedsPrescription reports the derived prescription flag.
func (s *Service) NeedsPrescription() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsPrescription
}

// Total sums unit price times quantity over the local items. Pure function of
// local state; no network call.
func (s *Service) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartdomain.Total(s.items)
}

// Busy reports whether a mutating operation is in flight.
func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Service) acquire() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, api.NewValidationError("another cart operation is in progress")
	}
	s.busy = true
	return func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}, nil
}

func (s *Service) replace(items []cartdomain.Item) {
	s.mu.Lock()
	s.items = items
	s.needsPrescription = cartdomain.NeedsPrescription(items)
	s.mu.Unlock()
}

func (s *Service) view() cartdomain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]cartdomain.Item, len(s.items))
	copy(items, s.items)
	return cartdomain.Cart{Items: items, NeedsPrescription: s.needsPrescription}
}

var _ cartAPI = (*api.Client)(nil)
