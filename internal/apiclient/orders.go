package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/ec-storefront/internal/readmodel"
)

type orderRef struct {
	OrderID int64 `json:"orderId"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
}

// CreateOrder turns the caller's cart into an order
func (c *Client) CreateOrder(ctx context.Context, shippingAddress, provider string) (*readmodel.Order, error) {
	var out readmodel.Order
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/orders",
		query: url.Values{
			"shippingAddress": {shippingAddress},
			"paymentProvider": {provider},
		},
	}, &out, "id")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns one page of the caller's orders
func (c *Client) ListOrders(ctx context.Context, page, size int) (*readmodel.Page[readmodel.Order], error) {
	var out readmodel.Page[readmodel.Order]
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/orders",
		query:  pageQuery(page, size),
	}, &out, "content")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches one order
func (c *Client) GetOrder(ctx context.Context, id int64) (*readmodel.Order, error) {
	var out readmodel.Order
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   idPath("/orders", id),
		route:  "/orders/{id}",
	}, &out, "id")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InitializePaystack starts a Paystack transaction for an order
func (c *Client) InitializePaystack(ctx context.Context, orderID int64) (*readmodel.PaystackInit, error) {
	var out readmodel.PaystackInit
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/checkout/paystack/initialize",
		body:   orderRef{OrderID: orderID},
	}, &out, "authorization_url")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStripePaymentIntent starts a Stripe payment for an order
func (c *Client) CreateStripePaymentIntent(ctx context.Context, orderID int64) (*readmodel.StripeIntent, error) {
	var out readmodel.StripeIntent
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/checkout/stripe/create-payment-intent",
		body:   orderRef{OrderID: orderID},
	}, &out, "clientSecret")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment asks the backend to confirm a payment by provider reference
func (c *Client) VerifyPayment(ctx context.Context, orderID int64, provider, reference string) (*readmodel.Order, error) {
	var out readmodel.Order
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/checkout/verify-payment",
		body: verifyPaymentRequest{
			OrderID:   strconv.FormatInt(orderID, 10),
			Provider:  provider,
			Reference: reference,
		},
	}, &out, "id")
	if err != nil {
		return nil, err
	}
	return &out, nil
}
