package pages

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-storefront/internal/readmodel"
)

const order5 = `{"id":5,"orderNumber":"ORD-0005","totalAmount":3000,"status":"PENDING","paymentStatus":"PENDING","customerEmail":"ada@example.com","items":[]}`

var lagosForm = ShippingForm{
	Address: "12 Admiralty Way",
	City:    "Lekki",
	State:   "Lagos",
	ZipCode: "106104",
}

func newCheckoutEnv(t *testing.T) (*testEnv, *Checkout) {
	t.Helper()
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	line := readmodel.CartLine{ID: 70, ProductID: 7, Quantity: 2, Price: decimal.NewFromInt(1500), Subtotal: decimal.NewFromInt(3000)}
	require.NoError(t, e.cart.SetCart(context.Background(), []readmodel.CartLine{line}, decimal.NewFromInt(3000)))
	return e, NewCheckout(e.api, e.session, e.cart, e.notifier, e.nav)
}

// ============================================
// Guards and validation
// ============================================

func TestCheckout_EmptyCartGoesBackToCart(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	c := NewCheckout(e.api, e.session, e.cart, e.notifier, e.nav)

	assert.False(t, c.Enter())
	err := c.Submit(context.Background(), lagosForm)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, []string{RouteCart, RouteCart}, e.nav.Paths())
	assert.False(t, e.backend.called("POST /api/orders"))
	assert.Equal(t, CheckoutIdle, c.State())
}

func TestCheckout_EnterRequiresLogin(t *testing.T) {
	e := newTestEnv(t)
	c := NewCheckout(e.api, e.session, e.cart, e.notifier, e.nav)

	assert.False(t, c.Enter())
	assert.Equal(t, "/login?from=%2Fcheckout", e.nav.Current())
}

func TestShippingForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		form    ShippingForm
		wantErr error
	}{
		{"complete paystack", ShippingForm{"a", "b", "c", "d", readmodel.ProviderPaystack}, nil},
		{"complete stripe", ShippingForm{"a", "b", "c", "d", readmodel.ProviderStripe}, nil},
		{"missing city", ShippingForm{"a", " ", "c", "d", readmodel.ProviderPaystack}, ErrInvalidForm},
		{"unknown provider", ShippingForm{"a", "b", "c", "d", "PAYPAL"}, ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckout_InvalidFormMakesNoCalls(t *testing.T) {
	e, c := newCheckoutEnv(t)

	err := c.Submit(context.Background(), ShippingForm{Address: "12 Admiralty Way"})

	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Empty(t, e.backend.Calls())
	assert.Equal(t, []string{"Please fill in all shipping details"}, e.notifier.Errors())
}

// ============================================
// Submit
// ============================================

func TestCheckout_PaystackRedirect(t *testing.T) {
	e, c := newCheckoutEnv(t)
	e.backend.respond("POST /api/orders", http.StatusOK, order5)
	var initBody map[string]any
	initCh := make(chan map[string]any, 1)
	e.backend.handle("POST /api/checkout/paystack/initialize", func(w http.ResponseWriter, r *http.Request) {
		initCh <- decodeBody(t, r)
		writeJSON(w, http.StatusOK, `{"authorization_url":"https://checkout.paystack.com/abc","reference":"ref-5"}`)
	})

	var observed []PaymentRedirect
	c.OnRedirect(func(r PaymentRedirect) { observed = append(observed, r) })

	require.NoError(t, c.Submit(context.Background(), lagosForm))
	initBody = <-initCh

	q := e.backend.query("POST /api/orders")
	assert.Equal(t, "12 Admiralty Way, Lekki, Lagos 106104", q.Get("shippingAddress"))
	assert.Equal(t, readmodel.ProviderPaystack, q.Get("paymentProvider"))
	assert.Equal(t, float64(5), initBody["orderId"])

	assert.Equal(t, "https://checkout.paystack.com/abc", e.nav.LastRedirect())
	assert.Equal(t, CheckoutRedirecting, c.State())
	assert.False(t, c.CanSubmit())

	redirect, ok := c.Redirect()
	require.True(t, ok)
	assert.Equal(t, int64(5), redirect.OrderID)
	assert.Equal(t, "ref-5", redirect.Reference)
	assert.True(t, decimal.NewFromInt(3000).Equal(redirect.Amount))
	assert.Equal(t, []PaymentRedirect{redirect}, observed)

	// checkout leaves the local cart alone
	assert.Equal(t, 2, e.cart.ItemCount())

	assert.ErrorIs(t, c.Submit(context.Background(), lagosForm), ErrCheckoutCompleted)
}

func TestCheckout_StripeNavigatesToPaymentPage(t *testing.T) {
	e, c := newCheckoutEnv(t)
	e.backend.respond("POST /api/orders", http.StatusOK, order5)
	e.backend.respond("POST /api/checkout/stripe/create-payment-intent", http.StatusOK, `{"clientSecret":"pi_5_secret_abc"}`)

	form := lagosForm
	form.Provider = readmodel.ProviderStripe
	require.NoError(t, c.Submit(context.Background(), form))

	assert.Equal(t, "/checkout/stripe/5", e.nav.Current())
	assert.Empty(t, e.nav.LastRedirect())
	redirect, ok := c.Redirect()
	require.True(t, ok)
	assert.Equal(t, "pi_5_secret_abc", redirect.ClientSecret)
	assert.Equal(t, "pi_5", redirect.Reference)
}

func TestCheckout_InitFailureReturnsToIdle(t *testing.T) {
	e, c := newCheckoutEnv(t)
	e.backend.respond("POST /api/orders", http.StatusOK, order5)
	e.backend.respond("POST /api/checkout/paystack/initialize", http.StatusBadGateway, `{"message":"paystack unavailable"}`)

	err := c.Submit(context.Background(), lagosForm)

	require.Error(t, err)
	assert.Equal(t, CheckoutIdle, c.State())
	assert.True(t, c.CanSubmit())
	assert.Equal(t, []string{"Failed to process order. Please try again."}, e.notifier.Errors())
	assert.Equal(t, 2, e.cart.ItemCount())
	assert.Empty(t, e.nav.LastRedirect())

	// the order stays on the backend; a retry creates another one
	e.backend.respond("POST /api/checkout/paystack/initialize", http.StatusOK, `{"authorization_url":"https://checkout.paystack.com/retry","reference":"ref-6"}`)
	require.NoError(t, c.Submit(context.Background(), lagosForm))
	assert.Equal(t, "https://checkout.paystack.com/retry", e.nav.LastRedirect())

	var orders int
	for _, call := range e.backend.Calls() {
		if call == "POST /api/orders" {
			orders++
		}
	}
	assert.Equal(t, 2, orders)
}

func TestCheckout_SecondSubmitWhileInFlight(t *testing.T) {
	e, c := newCheckoutEnv(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	e.backend.handle("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(w, http.StatusOK, order5)
	})
	e.backend.respond("POST /api/checkout/paystack/initialize", http.StatusOK, `{"authorization_url":"https://checkout.paystack.com/abc","reference":"ref-5"}`)

	first := make(chan error, 1)
	go func() { first <- c.Submit(context.Background(), lagosForm) }()
	<-entered

	assert.Equal(t, CheckoutSubmitting, c.State())
	assert.True(t, c.Loading())
	assert.ErrorIs(t, c.Submit(context.Background(), lagosForm), ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-first)
	assert.Equal(t, CheckoutRedirecting, c.State())
}

// ============================================
// Payment callback and orders
// ============================================

func TestPaymentCallback_Confirmed(t *testing.T) {
	e, _ := newCheckoutEnv(t)
	bodyCh := make(chan map[string]any, 1)
	e.backend.handle("POST /api/checkout/verify-payment", func(w http.ResponseWriter, r *http.Request) {
		bodyCh <- decodeBody(t, r)
		writeJSON(w, http.StatusOK, `{"id":5,"orderNumber":"ORD-0005","status":"PROCESSING","paymentStatus":"COMPLETED"}`)
	})
	p := NewPaymentCallback(e.api, e.cart, e.notifier, e.nav)

	order, err := p.Verify(context.Background(), 5, readmodel.ProviderPaystack, "ref-5")

	require.NoError(t, err)
	body := <-bodyCh
	assert.Equal(t, "5", body["orderId"])
	assert.Equal(t, "ref-5", body["reference"])
	assert.Equal(t, readmodel.PaymentCompleted, order.PaymentStatus)
	assert.True(t, e.cart.IsEmpty())
	assert.Equal(t, "/orders/5", e.nav.Current())
}

func TestPaymentCallback_NotConfirmedKeepsCart(t *testing.T) {
	e, _ := newCheckoutEnv(t)
	e.backend.respond("POST /api/checkout/verify-payment", http.StatusOK, `{"id":5,"paymentStatus":"FAILED"}`)
	p := NewPaymentCallback(e.api, e.cart, e.notifier, e.nav)

	_, err := p.Verify(context.Background(), 5, readmodel.ProviderPaystack, "ref-5")

	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
	assert.Equal(t, 2, e.cart.ItemCount())
	assert.Equal(t, []string{"Payment could not be confirmed"}, e.notifier.Errors())
	order, ok := p.Order()
	require.True(t, ok)
	assert.Equal(t, readmodel.PaymentFailed, order.PaymentStatus)
}

func TestOrders_LoadAndOpen(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	e.backend.respond("GET /api/orders", http.StatusOK, `{"content":[`+order5+`],"totalPages":1}`)
	e.backend.respond("GET /api/orders/5", http.StatusOK, order5)
	o := NewOrders(e.api, e.notifier)
	ctx := context.Background()

	require.NoError(t, o.Load(ctx, 0, 10))
	require.NoError(t, o.Open(ctx, 5))

	assert.Equal(t, "10", e.backend.query("GET /api/orders").Get("size"))
	assert.Len(t, o.List(), 1)
	detail, ok := o.Detail()
	require.True(t, ok)
	assert.Equal(t, "ORD-0005", detail.OrderNumber)
}
