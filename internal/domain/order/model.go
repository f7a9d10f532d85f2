package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickmed/storefront/internal/domain/user"
)

// Status is the delivery lifecycle state of an order. After creation it is
// mutated only by the server; the client may request a transition to
// StatusCancelled while the order is still cancellable.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Item is a snapshot of a cart line taken at order creation.
type Item struct {
	ID         int64           `json:"id"`
	MedicineID int64           `json:"medicine_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// TrackingEvent is one entry in an order's delivery history.
type TrackingEvent struct {
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Order is an order record as returned by /orders. Monetary amounts come from
// the server and are authoritative; locally computed fees are display-only.
type Order struct {
	ID                    int64           `json:"id"`
	Status                Status          `json:"status"`
	Items                 []Item          `json:"items"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	PaymentMethod         string          `json:"payment_method"`
	Address               user.Address    `json:"address"`
	DeliveryPartner       string          `json:"delivery_partner,omitempty"`
	EstimatedDeliveryTime *time.Time      `json:"estimated_delivery_time,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// CanCancel reports whether the client may still request cancellation.
func (o Order) CanCancel() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}
