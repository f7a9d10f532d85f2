// Package orders fetches and polls order status and exposes cancellation.
package orders

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/quickmed/storefront/internal/api"
	"github.com/quickmed/storefront/internal/domain/order"
	"github.com/quickmed/storefront/internal/logging"
)

type ordersAPI interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Service is the order tracker. It remembers the last server-confirmed copy
// of each order it has seen, so cancellation preconditions can be checked
// without a round-trip.
type Service struct {
	mu    sync.Mutex
	known map[int64]order.Order

	client ordersAPI
	log    *logging.Logger
}

// New creates an order tracker.
func New(client ordersAPI, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("orders")
	}
	return &Service{client: client, known: make(map[int64]order.Order), log: log}
}

// Get fetches a single order.
func (s *Service) Get(ctx context.Context, id int64) (order.Order, error) {
	var ord order.Order
	if err := s.client.Get(ctx, fmt.Sprintf("/orders/%d", id), nil, &ord); err != nil {
		return order.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	s.remember(ord)
	return ord, nil
}

// List fetches all of the user's orders, most recent first (server order).
func (s *Service) List(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	if err := s.client.Get(ctx, "/orders", nil, &out); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for _, ord := range out {
		s.remember(ord)
	}
	return out, nil
}

// Filter returns the orders matching status. Pure client-side predicate over
// a full fetch; the API has no server-side filter parameter.
func Filter(all []order.Order, status order.Status) []order.Order {
	var out []order.Order
	for _, ord := range all {
		if ord.Status == status {
			out = append(out, ord)
		}
	}
	return out
}

// Track fetches the order's delivery history, most recent event first.
func (s *Service) Track(ctx context.Context, id int64) ([]order.TrackingEvent, error) {
	var out []order.TrackingEvent
	if err := s.client.Get(ctx, fmt.Sprintf("/orders/%d/track", id), nil, &out); err != nil {
		return nil, fmt.Errorf("track order %d: %w", id, err)
	}
	return out, nil
}

// Cancel requests cancellation. The precondition (status pending or
// processing) is checked against the last-known copy — fetched first if the
// order has never been seen — and a violation is reported locally with no
// cancel call. On success the order is re-fetched rather than assumed
// cancelled, since confirmation is server-decided.
func (s *Service) Cancel(ctx context.Context, id int64) (order.Order, error) {
	current, ok := s.lastKnown(id)
	if !ok {
		fetched, err := s.Get(ctx, id)
		if err != nil {
			return order.Order{}, err
		}
		current = fetched
	}
	if !current.CanCancel() {
		return order.Order{}, api.NewValidationError(
			fmt.Sprintf("order %d can no longer be cancelled (status %s)", id, current.Status))
	}

	if err := s.client.Post(ctx, fmt.Sprintf("/orders/%d/cancel", id), nil, nil); err != nil {
		return order.Order{}, fmt.Errorf("cancel order %d: %w", id, err)
	}
	s.log.Infof("order %d cancellation requested", id)
	return s.Get(ctx, id)
}

func (s *Service) remember(ord order.Order) {
	s.mu.Lock()
	s.known[ord.ID] = ord
	s.mu.Unlock()
}

func (s *Service) lastKnown(id int64) (order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ord, ok := s.known[id]
	return ord, ok
}

var _ ordersAPI = (*api.Client)(nil)
