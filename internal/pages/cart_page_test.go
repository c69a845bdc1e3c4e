package pages

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/readmodel"
)

func cartWith(quantity int) string {
	subtotal := decimal.NewFromInt(1500).Mul(decimal.NewFromInt(int64(quantity))).String()
	return `{"items":[{"id":70,"productId":7,"productName":"Ofada Rice 5kg","price":1500,"quantity":` +
		strconv.Itoa(quantity) + `,"subtotal":` + subtotal + `}],"totalAmount":` + subtotal + `}`
}

// ============================================
// Load
// ============================================

func TestCartPage_LoadRequiresLogin(t *testing.T) {
	e := newTestEnv(t)
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)

	assert.ErrorIs(t, page.Load(context.Background()), ErrLoginRequired)
	assert.Equal(t, "/login?from=%2Fcart", e.nav.Current())
	assert.Empty(t, e.backend.Calls())
}

func TestCartPage_LoadReplacesStore(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	e.backend.respond("GET /api/cart", http.StatusOK, cart7x2)
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)

	require.NoError(t, page.Load(context.Background()))

	assert.Equal(t, 2, e.cart.ItemCount())
	assert.True(t, decimal.NewFromInt(3000).Equal(page.Snapshot().TotalAmount))
}

// A restored session without tokens still looks signed in; the backend
// rejects it and the UI keeps its authenticated state.
func TestCartPage_RestoredSessionWithoutToken(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	require.NoError(t, e.kv.Remove(context.Background(), store.KeyAccessToken))
	e.backend.handle("GET /api/cart", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Full authentication is required"}`)
			return
		}
		writeJSON(w, http.StatusOK, cart7x2)
	})
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)

	err := page.Load(context.Background())

	require.Error(t, err)
	assert.True(t, e.session.IsAuthenticated())
	assert.Equal(t, []string{"Failed to load cart"}, e.notifier.Errors())
	assert.True(t, e.cart.IsEmpty())
}

// ============================================
// Edits
// ============================================

func TestCartPage_UpdateQuantityBelowOneIsIgnored(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)

	require.NoError(t, page.UpdateQuantity(context.Background(), 70, 0))
	assert.Empty(t, e.backend.Calls())
}

func TestCartPage_UpdateQuantity(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	e.backend.respond("PUT /api/cart/items/70", http.StatusOK, cartWith(3))
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)

	require.NoError(t, page.UpdateQuantity(context.Background(), 70, 3))

	assert.Equal(t, "3", e.backend.query("PUT /api/cart/items/70").Get("quantity"))
	assert.Equal(t, 3, e.cart.ItemCount())
	assert.True(t, decimal.NewFromInt(4500).Equal(e.cart.TotalAmount()))
}

func TestCartPage_UpdateQuantityFailureKeepsCart(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	e.backend.respond("GET /api/cart", http.StatusOK, cart7x2)
	e.backend.respond("PUT /api/cart/items/70", http.StatusBadRequest, `{"message":"Insufficient stock"}`)
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)
	require.NoError(t, page.Load(context.Background()))

	assert.Error(t, page.UpdateQuantity(context.Background(), 70, 99))

	assert.Equal(t, 2, e.cart.ItemCount())
	assert.Equal(t, []string{"Failed to update quantity"}, e.notifier.Errors())
}

func TestCartPage_Remove(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)
	e.backend.respond("GET /api/cart", http.StatusOK, cart7x2)
	e.backend.respond("DELETE /api/cart/items/70", http.StatusOK, `{"items":[],"totalAmount":0}`)
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)
	require.NoError(t, page.Load(context.Background()))

	require.NoError(t, page.Remove(context.Background(), 70))

	assert.True(t, e.cart.IsEmpty())
	assert.True(t, e.cart.TotalAmount().IsZero())
	assert.Equal(t, []Notice{{Level: "success", Message: "Item removed"}}, e.notifier.Notices())
}

// Two edits in flight: the one whose response arrives last decides the
// cart, even when it was issued first.
func TestCartPage_LastResponseWins(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleUser)

	release := make(chan struct{})
	var once sync.Once
	e.cart.Subscribe(func(s readmodel.CartSnapshot) {
		if len(s.Items) == 1 && s.Items[0].Quantity == 3 {
			once.Do(func() { close(release) })
		}
	})
	e.backend.handle("PUT /api/cart/items/70", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("quantity") == "1" {
			<-release
			writeJSON(w, http.StatusOK, cartWith(1))
			return
		}
		writeJSON(w, http.StatusOK, cartWith(3))
	})
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)
	ctx := context.Background()

	errA := make(chan error, 1)
	go func() { errA <- page.UpdateQuantity(ctx, 70, 1) }()
	require.NoError(t, page.UpdateQuantity(ctx, 70, 3))
	require.NoError(t, <-errA)

	snap := e.cart.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, snap.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(1500).Equal(snap.TotalAmount))
}

func TestCartPage_ProceedToCheckout(t *testing.T) {
	e := newTestEnv(t)
	page := NewCartPage(e.api, e.session, e.cart, e.notifier, e.nav)

	page.ProceedToCheckout()
	assert.Equal(t, RouteCheckout, e.nav.Current())
}
