package pages

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/cart"
	"github.com/example/ec-storefront/internal/state/session"
)

// ProductDetail shows one product and lets the user add it to the cart or buy it now
type ProductDetail struct {
	base
	catalog   CatalogAPI
	carts     CartAPI
	session   *session.Store
	cart      *cart.Store
	navigator Navigator

	mu       sync.RWMutex
	product  *readmodel.Product
	notFound bool
	quantity int
}

// NewProductDetail creates the product page controller
func NewProductDetail(catalog CatalogAPI, carts CartAPI, sess *session.Store, cartStore *cart.Store, notifier Notifier, navigator Navigator) *ProductDetail {
	return &ProductDetail{
		base:      newBase(notifier, "page-product"),
		catalog:   catalog,
		carts:     carts,
		session:   sess,
		cart:      cartStore,
		navigator: navigator,
		quantity:  1,
	}
}

// Load fetches the product. A numeric key is an id, anything else a slug.
// A 404 switches the page to its not-found state without a notification.
func (d *ProductDetail) Load(ctx context.Context, slugOrID string) error {
	defer d.track()()

	var (
		product *readmodel.Product
		err     error
	)
	if id, parseErr := strconv.ParseInt(slugOrID, 10, 64); parseErr == nil {
		product, err = d.catalog.GetProduct(ctx, id)
	} else {
		product, err = d.catalog.GetProductBySlug(ctx, slugOrID)
	}

	if err != nil {
		if apiclient.IsNotFound(err) {
			d.mu.Lock()
			d.product = nil
			d.notFound = true
			d.mu.Unlock()
			d.log.WithField("key", slugOrID).Info("product not found")
			return err
		}
		d.fail(err, "Failed to load product details")
		return err
	}

	d.mu.Lock()
	d.product = product
	d.notFound = false
	d.quantity = 1
	d.mu.Unlock()
	return nil
}

// Product returns the loaded product
func (d *ProductDetail) Product() (readmodel.Product, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.product == nil {
		return readmodel.Product{}, false
	}
	return *d.product, true
}

// NotFound reports whether the last load hit a missing product
func (d *ProductDetail) NotFound() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.notFound
}

// Quantity returns the selected quantity
func (d *ProductDetail) Quantity() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.quantity
}

// ChangeQuantity steps the quantity by delta, staying within [1, stock].
// It reports whether the quantity changed.
func (d *ProductDetail) ChangeQuantity(delta int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	limit := 1
	if d.product != nil && d.product.Stock > 0 {
		limit = d.product.Stock
	}
	next := d.quantity + delta
	if next < 1 || next > limit {
		return false
	}
	d.quantity = next
	return true
}

// SetQuantity sets the quantity as typed; AddToCart and BuyNow validate it
func (d *ProductDetail) SetQuantity(q int) {
	d.mu.Lock()
	d.quantity = q
	d.mu.Unlock()
}

// AddToCart adds the selected quantity and replaces the cart with the response
func (d *ProductDetail) AddToCart(ctx context.Context) error {
	product, qty, err := d.checkPurchase("Please login to add items to cart")
	if err != nil {
		return err
	}
	defer d.track()()

	snap, err := d.carts.AddToCart(ctx, product.ID, qty)
	if err != nil {
		d.fail(err, serverMessage(err, "Failed to add to cart"))
		return err
	}
	if err := d.cart.SetCart(ctx, snap.Items, snap.TotalAmount); err != nil {
		d.log.WithError(err).Warn("cart not persisted")
	}

	d.success(fmt.Sprintf("Added %d item(s) to cart", qty))
	return nil
}

// BuyNow replaces the cart with only this product and goes to checkout.
// The backend clear settles before the add is issued; a failed clear is ignored.
func (d *ProductDetail) BuyNow(ctx context.Context) error {
	product, qty, err := d.checkPurchase("Please login to continue")
	if err != nil {
		return err
	}
	defer d.track()()

	if err := d.carts.ClearCart(ctx); err != nil {
		d.log.WithError(err).Warn("cart clear failed, continuing")
	} else if err := d.cart.ClearCart(ctx); err != nil {
		d.log.WithError(err).Warn("cart not persisted")
	}

	snap, err := d.carts.AddToCart(ctx, product.ID, qty)
	if err != nil {
		d.fail(err, serverMessage(err, "Failed to process purchase"))
		return err
	}
	if err := d.cart.SetCart(ctx, snap.Items, snap.TotalAmount); err != nil {
		d.log.WithError(err).Warn("cart not persisted")
	}

	d.navigator.Navigate(RouteCheckout)
	return nil
}

func (d *ProductDetail) checkPurchase(loginMsg string) (readmodel.Product, int, error) {
	if !d.session.IsAuthenticated() {
		d.notifier.Error(loginMsg)
		d.navigator.Navigate(RouteLogin)
		return readmodel.Product{}, 0, ErrLoginRequired
	}

	d.mu.RLock()
	product, qty := d.product, d.quantity
	d.mu.RUnlock()

	if product == nil {
		d.notifier.Error("Product not loaded")
		return readmodel.Product{}, 0, ErrProductNotLoaded
	}
	if qty < 1 {
		d.notifier.Error("Please select a quantity")
		return readmodel.Product{}, 0, ErrInvalidQuantity
	}
	if qty > product.Stock {
		d.notifier.Error(fmt.Sprintf("Only %d items available", product.Stock))
		return readmodel.Product{}, 0, ErrInsufficientStock
	}
	return *product, qty, nil
}
