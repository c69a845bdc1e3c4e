package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/ec-storefront/internal/readmodel"
)

type addToCartRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

var cartKeys = []string{"items", "totalAmount"}

// GetCart returns the caller's server-side cart
func (c *Client) GetCart(ctx context.Context) (*readmodel.CartSnapshot, error) {
	return c.cartCall(ctx, request{method: http.MethodGet, path: "/cart"})
}

// AddToCart adds quantity units of a product and returns the whole cart
func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) (*readmodel.CartSnapshot, error) {
	return c.cartCall(ctx, request{
		method: http.MethodPost,
		path:   "/cart/items",
		body:   addToCartRequest{ProductID: productID, Quantity: quantity},
	})
}

// UpdateCartItem sets a line's quantity and returns the whole cart
func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*readmodel.CartSnapshot, error) {
	return c.cartCall(ctx, request{
		method: http.MethodPut,
		path:   idPath("/cart/items", itemID),
		route:  "/cart/items/{id}",
		query:  url.Values{"quantity": {strconv.Itoa(quantity)}},
	})
}

// RemoveCartItem deletes a line and returns the whole cart
func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) (*readmodel.CartSnapshot, error) {
	return c.cartCall(ctx, request{
		method: http.MethodDelete,
		path:   idPath("/cart/items", itemID),
		route:  "/cart/items/{id}",
	})
}

// ClearCart empties the server-side cart
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/cart"}, nil)
}

func (c *Client) cartCall(ctx context.Context, req request) (*readmodel.CartSnapshot, error) {
	var out readmodel.CartSnapshot
	if err := c.do(ctx, req, &out, cartKeys...); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []readmodel.CartLine{}
	}
	return &out, nil
}
