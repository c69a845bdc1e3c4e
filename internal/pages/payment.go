package pages

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/cart"
)

// ErrPaymentNotConfirmed is returned when the provider did not confirm the payment
var ErrPaymentNotConfirmed = errors.New("payment not confirmed")

// PaymentCallback is the page the payment provider returns to
type PaymentCallback struct {
	base
	orders    OrderAPI
	cart      *cart.Store
	navigator Navigator

	mu    sync.RWMutex
	order *readmodel.Order
}

// NewPaymentCallback creates the payment return controller
func NewPaymentCallback(orders OrderAPI, cartStore *cart.Store, notifier Notifier, navigator Navigator) *PaymentCallback {
	return &PaymentCallback{
		base:      newBase(notifier, "page-payment"),
		orders:    orders,
		cart:      cartStore,
		navigator: navigator,
	}
}

// Verify asks the backend to confirm the payment. On success the local cart
// is cleared, since the backend emptied its cart when the order was created.
func (p *PaymentCallback) Verify(ctx context.Context, orderID int64, provider, reference string) (*readmodel.Order, error) {
	defer p.track()()

	order, err := p.orders.VerifyPayment(ctx, orderID, provider, reference)
	if err != nil {
		p.fail(err, serverMessage(err, "Failed to verify payment"))
		return nil, err
	}

	p.mu.Lock()
	p.order = order
	p.mu.Unlock()

	if order.PaymentStatus != readmodel.PaymentCompleted {
		p.notifier.Error("Payment could not be confirmed")
		return order, ErrPaymentNotConfirmed
	}

	if err := p.cart.ClearCart(ctx); err != nil {
		p.log.WithError(err).Warn("cart not persisted")
	}
	p.success("Payment confirmed")
	p.navigator.Navigate(RouteOrders + "/" + strconv.FormatInt(order.ID, 10))
	return order, nil
}

// Order returns the last verified order
func (p *PaymentCallback) Order() (readmodel.Order, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.order == nil {
		return readmodel.Order{}, false
	}
	return *p.order, true
}

// Orders lists the signed-in user's orders
type Orders struct {
	base
	orders OrderAPI

	mu     sync.RWMutex
	page   *readmodel.Page[readmodel.Order]
	detail *readmodel.Order
}

// NewOrders creates the order history controller
func NewOrders(orders OrderAPI, notifier Notifier) *Orders {
	return &Orders{base: newBase(notifier, "page-orders"), orders: orders}
}

// Load fetches one page of orders
func (o *Orders) Load(ctx context.Context, page, size int) error {
	defer o.track()()

	result, err := o.orders.ListOrders(ctx, page, size)
	if err != nil {
		o.fail(err, "Failed to load orders")
		return err
	}
	o.mu.Lock()
	o.page = result
	o.mu.Unlock()
	return nil
}

// Open fetches one order
func (o *Orders) Open(ctx context.Context, id int64) error {
	defer o.track()()

	order, err := o.orders.GetOrder(ctx, id)
	if err != nil {
		o.fail(err, serverMessage(err, "Failed to load order"))
		return err
	}
	o.mu.Lock()
	o.detail = order
	o.mu.Unlock()
	return nil
}

// List returns the loaded orders
func (o *Orders) List() []readmodel.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.page == nil {
		return nil
	}
	return append([]readmodel.Order(nil), o.page.Content...)
}

// Detail returns the opened order
func (o *Orders) Detail() (readmodel.Order, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.detail == nil {
		return readmodel.Order{}, false
	}
	return *o.detail, true
}
