// Package activity publishes storefront client activity to Kafka. Store
// observers and the checkout flow feed it; cmd/notifier consumes it.
package activity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventSessionStarted     = "SessionStarted"
	EventSessionEnded       = "SessionEnded"
	EventCartReplaced       = "CartReplaced"
	EventCheckoutRedirected = "CheckoutRedirected"
)

// Event is the message published for each activity
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	DeviceID   string    `json:"deviceId"`
	UserID     int64     `json:"userId,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`

	Cart     *CartSummary `json:"cart,omitempty"`
	Checkout *Checkout    `json:"checkout,omitempty"`
}

// CartSummary describes a cart replacement
type CartSummary struct {
	Lines       int             `json:"lines"`
	Units       int             `json:"units"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Checkout describes a payment redirect
type Checkout struct {
	OrderID       int64           `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `json:"amount"`
	CustomerEmail string          `json:"customerEmail"`
	PaymentURL    string          `json:"paymentUrl,omitempty"`
	Reference     string          `json:"reference,omitempty"`
}
