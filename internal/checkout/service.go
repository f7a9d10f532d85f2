// Package checkout composes cart, address, prescription and delivery-estimate
// data into a single order-creation request, validating preconditions before
// any network call.
package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/quickmed/storefront/internal/api"
	"github.com/quickmed/storefront/internal/cart"
	cartdomain "github.com/quickmed/storefront/internal/domain/cart"
	"github.com/quickmed/storefront/internal/domain/order"
	"github.com/quickmed/storefront/internal/domain/rx"
	"github.com/quickmed/storefront/internal/domain/user"
	"github.com/quickmed/storefront/internal/logging"
)

// DeliveryOption selects the delivery tier.
type DeliveryOption string

const (
	DeliveryStandard  DeliveryOption = "standard"
	DeliveryExpress   DeliveryOption = "express"
	DeliveryEmergency DeliveryOption = "emergency"
)

// Payment methods accepted at order creation.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
	PaymentUPI  = "upi"
)

var deliveryFees = map[DeliveryOption]decimal.Decimal{
	DeliveryStandard:  decimal.RequireFromString("2.99"),
	DeliveryExpress:   decimal.RequireFromString("5.99"),
	DeliveryEmergency: decimal.RequireFromString("9.99"),
}

// DeliveryFee returns the display fee for a delivery tier. The value is
// provisional: the server's returned order totals are authoritative, and this
// schedule exists only so the UI can show a figure before submission.
func DeliveryFee(opt DeliveryOption) (decimal.Decimal, bool) {
	fee, ok := deliveryFees[opt]
	return fee, ok
}

type checkoutAPI interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Context is the data a checkout screen needs before submission.
type Context struct {
	Cart              cartdomain.Cart
	Addresses         []user.Address
	Prescriptions     []rx.Prescription
	SelectedAddressID int64
}

// Selection is the user's checkout choices.
type Selection struct {
	AddressID      int64
	PrescriptionID *int64
	PaymentMethod  string
	DeliveryOption DeliveryOption
	DeliveryNotes  string
}

// Service is the checkout orchestrator.
type Service struct {
	client checkoutAPI
	cart   *cart.Service
	log    *logging.Logger
}

// New creates a checkout orchestrator on top of the cart synchronizer.
func New(client checkoutAPI, cartSvc *cart.Service, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("checkout")
	}
	return &Service{client: client, cart: cartSvc, log: log}
}

// Prepare fetches the cart and saved addresses, and — only when the cart
// needs one — saved prescriptions. The first address is preselected when any
// exist.
func (s *Service) Prepare(ctx context.Context) (Context, error) {
	cartView, err := s.cart.Load(ctx)
	if err != nil {
		return Context{}, fmt.Errorf("prepare checkout: %w", err)
	}

	var addresses []user.Address
	if err := s.client.Get(ctx, "/users/addresses", nil, &addresses); err != nil {
		return Context{}, fmt.Errorf("prepare checkout: %w", err)
	}

	out := Context{Cart: cartView, Addresses: addresses}
	if len(addresses) > 0 {
		out.SelectedAddressID = addresses[0].ID
	}

	if cartView.NeedsPrescription {
		var prescriptions []rx.Prescription
		if err := s.client.Get(ctx, "/prescriptions", nil, &prescriptions); err != nil {
			return Context{}, fmt.Errorf("prepare checkout: %w", err)
		}
		out.Prescriptions = prescriptions
	}

	return out, nil
}

// EstimateDelivery returns the estimated delivery time in minutes. Best
// effort: failures are logged and swallowed, since the estimate is an
// enhancement rather than a requirement for order placement.
func (s *Service) EstimateDelivery(ctx context.Context, addressID int64, emergency bool) (int, bool) {
	query := url.Values{}
	query.Set("address_id", strconv.FormatInt(addressID, 10))
	query.Set("is_emergency", strconv.FormatBool(emergency))

	var resp struct {
		EstimatedMinutes int `json:"estimated_minutes"`
	}
	if err := s.client.Get(ctx, "/delivery/estimate", query, &resp); err != nil {
		s.log.Errorf(err, "delivery estimate for address %d", addressID)
		return 0, false
	}
	return resp.EstimatedMinutes, true
}

// PlaceOrder validates the selection locally and submits a single
// order-creation request. Precondition violations short-circuit with a
// validation error and zero network calls. On success the server has emptied
// the cart, so the local cart view is invalidated.
func (s *Service) PlaceOrder(ctx context.Context, sel Selection) (order.Order, error) {
	if sel.AddressID == 0 {
		return order.Order{}, api.NewValidationError("please select a delivery address")
	}
	if s.cart.NeedsPrescription() && sel.PrescriptionID == nil {
		return order.Order{}, api.NewValidationError("please select a prescription for prescription medicines")
	}
	switch sel.PaymentMethod {
	case PaymentCash, PaymentCard, PaymentUPI:
	default:
		return order.Order{}, api.NewValidationError("unknown payment method")
	}
	if _, ok := DeliveryFee(sel.DeliveryOption); !ok {
		return order.Order{}, api.NewValidationError("unknown delivery option")
	}

	body := struct {
		AddressID      int64  `json:"address_id"`
		PrescriptionID *int64 `json:"prescription_id,omitempty"`
		PaymentMethod  string `json:"payment_method"`
		DeliveryOption string `json:"delivery_option"`
		DeliveryNotes  string `json:"delivery_notes,omitempty"`
	}{
		AddressID:      sel.AddressID,
		PrescriptionID: sel.PrescriptionID,
		PaymentMethod:  sel.PaymentMethod,
		DeliveryOption: string(sel.DeliveryOption),
		DeliveryNotes:  sel.DeliveryNotes,
	}

	var placed order.Order
	if err := s.client.Post(ctx, "/orders", body, &placed); err != nil {
		return order.Order{}, fmt.Errorf("place order: %w", err)
	}

	s.cart.Invalidate()
	s.log.Infof("order %d placed", placed.ID)
	return placed, nil
}

var _ checkoutAPI = (*api.Client)(nil)
