package pages

import (
	"context"

	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/cart"
	"github.com/example/ec-storefront/internal/state/session"
)

// CartPage shows the cart and edits its lines. Every edit replaces the whole
// cart with the server response; concurrent edits are not serialized and the
// last response to arrive wins.
type CartPage struct {
	base
	carts     CartAPI
	session   *session.Store
	cart      *cart.Store
	navigator Navigator
}

// NewCartPage creates the cart page controller
func NewCartPage(carts CartAPI, sess *session.Store, cartStore *cart.Store, notifier Notifier, navigator Navigator) *CartPage {
	return &CartPage{
		base:      newBase(notifier, "page-cart"),
		carts:     carts,
		session:   sess,
		cart:      cartStore,
		navigator: navigator,
	}
}

// Load refreshes the cart from the server
func (c *CartPage) Load(ctx context.Context) error {
	if !c.requireLogin() {
		return ErrLoginRequired
	}
	defer c.track()()

	snap, err := c.carts.GetCart(ctx)
	if err != nil {
		c.fail(err, "Failed to load cart")
		return err
	}
	c.replace(ctx, snap)
	return nil
}

// UpdateQuantity sets a line's quantity. Quantities below one are ignored.
func (c *CartPage) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return nil
	}
	defer c.track()()

	snap, err := c.carts.UpdateCartItem(ctx, itemID, quantity)
	if err != nil {
		c.fail(err, "Failed to update quantity")
		return err
	}
	c.replace(ctx, snap)
	return nil
}

// Remove deletes a line
func (c *CartPage) Remove(ctx context.Context, itemID int64) error {
	defer c.track()()

	snap, err := c.carts.RemoveCartItem(ctx, itemID)
	if err != nil {
		c.fail(err, "Failed to remove item")
		return err
	}
	c.replace(ctx, snap)
	c.success("Item removed")
	return nil
}

// ProceedToCheckout moves to the checkout page
func (c *CartPage) ProceedToCheckout() {
	c.navigator.Navigate(RouteCheckout)
}

// Snapshot returns what the page renders
func (c *CartPage) Snapshot() readmodel.CartSnapshot {
	return c.cart.Snapshot()
}

func (c *CartPage) replace(ctx context.Context, snap *readmodel.CartSnapshot) {
	if err := c.cart.SetCart(ctx, snap.Items, snap.TotalAmount); err != nil {
		c.log.WithError(err).Warn("cart not persisted")
	}
}

func (c *CartPage) requireLogin() bool {
	if c.session.IsAuthenticated() {
		return true
	}
	c.navigator.Navigate(loginPath(RouteCart))
	return false
}
