package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state"
	"github.com/example/ec-storefront/internal/state/cart"
	"github.com/example/ec-storefront/internal/state/session"
)

// CheckoutState is the position of the checkout flow
type CheckoutState int

const (
	CheckoutIdle CheckoutState = iota
	CheckoutSubmitting
	CheckoutRedirecting
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutSubmitting:
		return "submitting"
	case CheckoutRedirecting:
		return "redirecting"
	default:
		return "idle"
	}
}

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrSubmitInProgress  = errors.New("checkout already submitted")
	ErrUnknownProvider   = errors.New("unknown payment provider")
	ErrCheckoutCompleted = errors.New("checkout already redirected")
)

// ShippingForm is what the user types on the checkout page
type ShippingForm struct {
	Address  string
	City     string
	State    string
	ZipCode  string
	Provider string
}

// FullAddress joins the form into the single address line sent to the backend
func (f ShippingForm) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", f.Address, f.City, f.State, f.ZipCode)
}

// Validate checks that every field is filled and the provider is known
func (f ShippingForm) Validate() error {
	fields := []struct{ name, value string }{
		{"address", f.Address},
		{"city", f.City},
		{"state", f.State},
		{"zipCode", f.ZipCode},
	}
	var missing []string
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidForm, strings.Join(missing, ", "))
	}
	switch f.Provider {
	case readmodel.ProviderPaystack, readmodel.ProviderStripe:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownProvider, f.Provider)
}

// PaymentRedirect describes where a successful checkout sends the user
type PaymentRedirect struct {
	OrderID       int64
	OrderNumber   string
	Provider      string
	Amount        decimal.Decimal
	CustomerEmail string
	// URL is the external Paystack page; empty for Stripe
	URL string
	// Path is the in-app Stripe payment route; empty for Paystack
	Path         string
	ClientSecret string
	Reference    string
}

// Checkout runs Idle → Submitting → {Redirecting | Idle}. It never modifies
// the cart and never compensates a half-finished order.
type Checkout struct {
	base
	orders    OrderAPI
	session   *session.Store
	cart      *cart.Store
	navigator Navigator

	mu        sync.RWMutex
	state     CheckoutState
	redirect  *PaymentRedirect
	observers state.Observers[PaymentRedirect]
}

// NewCheckout creates the checkout controller
func NewCheckout(orders OrderAPI, sess *session.Store, cartStore *cart.Store, notifier Notifier, navigator Navigator) *Checkout {
	return &Checkout{
		base:      newBase(notifier, "page-checkout"),
		orders:    orders,
		session:   sess,
		cart:      cartStore,
		navigator: navigator,
	}
}

// Enter runs the page guards: login required, and an empty cart goes back to /cart
func (c *Checkout) Enter() bool {
	if !c.session.IsAuthenticated() {
		c.navigator.Navigate(loginPath(RouteCheckout))
		return false
	}
	if c.cart.IsEmpty() {
		c.navigator.Navigate(RouteCart)
		return false
	}
	return true
}

// State returns the current flow state
func (c *Checkout) State() CheckoutState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CanSubmit reports whether the submit control is enabled
func (c *Checkout) CanSubmit() bool {
	return c.State() == CheckoutIdle
}

// Redirect returns the payment destination once the flow has redirected
func (c *Checkout) Redirect() (PaymentRedirect, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.redirect == nil {
		return PaymentRedirect{}, false
	}
	return *c.redirect, true
}

// OnRedirect registers fn to run after each successful redirect
func (c *Checkout) OnRedirect(fn func(PaymentRedirect)) func() {
	return c.observers.Subscribe(fn)
}

// Submit creates the order and initializes payment with the chosen provider.
// An empty cart navigates to /cart without contacting the backend.
func (c *Checkout) Submit(ctx context.Context, form ShippingForm) error {
	if form.Provider == "" {
		form.Provider = readmodel.ProviderPaystack
	}

	if c.cart.IsEmpty() {
		c.navigator.Navigate(RouteCart)
		return ErrEmptyCart
	}
	if err := form.Validate(); err != nil {
		c.notifier.Error("Please fill in all shipping details")
		return err
	}

	c.mu.Lock()
	switch c.state {
	case CheckoutSubmitting:
		c.mu.Unlock()
		return ErrSubmitInProgress
	case CheckoutRedirecting:
		c.mu.Unlock()
		return ErrCheckoutCompleted
	}
	c.state = CheckoutSubmitting
	c.mu.Unlock()

	defer c.track()()

	redirect, err := c.placeAndPay(ctx, form)
	if err != nil {
		c.mu.Lock()
		c.state = CheckoutIdle
		c.mu.Unlock()
		c.fail(err, "Failed to process order. Please try again.")
		return err
	}

	c.mu.Lock()
	c.state = CheckoutRedirecting
	c.redirect = &redirect
	c.mu.Unlock()

	if redirect.URL != "" {
		c.navigator.Redirect(redirect.URL)
	} else {
		c.navigator.Navigate(redirect.Path)
	}
	c.observers.Notify(redirect)

	c.log.WithField("order_id", redirect.OrderID).WithField("provider", redirect.Provider).Info("checkout redirected to payment")
	return nil
}

func (c *Checkout) placeAndPay(ctx context.Context, form ShippingForm) (PaymentRedirect, error) {
	order, err := c.orders.CreateOrder(ctx, form.FullAddress(), form.Provider)
	if err != nil {
		return PaymentRedirect{}, fmt.Errorf("failed to create order: %w", err)
	}

	redirect := PaymentRedirect{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Provider:      form.Provider,
		Amount:        order.TotalAmount,
		CustomerEmail: order.CustomerEmail,
	}
	if redirect.CustomerEmail == "" {
		if u, ok := c.session.User(); ok {
			redirect.CustomerEmail = u.Email
		}
	}

	switch form.Provider {
	case readmodel.ProviderPaystack:
		paystack, err := c.orders.InitializePaystack(ctx, order.ID)
		if err != nil {
			return PaymentRedirect{}, fmt.Errorf("failed to initialize paystack for order %d: %w", order.ID, err)
		}
		redirect.URL = paystack.AuthorizationURL
		redirect.Reference = paystack.Reference

	case readmodel.ProviderStripe:
		intent, err := c.orders.CreateStripePaymentIntent(ctx, order.ID)
		if err != nil {
			return PaymentRedirect{}, fmt.Errorf("failed to create payment intent for order %d: %w", order.ID, err)
		}
		redirect.Path = RouteCheckout + "/stripe/" + strconv.FormatInt(order.ID, 10)
		redirect.ClientSecret = intent.ClientSecret
		if id, _, ok := strings.Cut(intent.ClientSecret, "_secret_"); ok {
			redirect.Reference = id
		}
	}

	return redirect, nil
}
