package activity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/pages"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/cart"
	"github.com/example/ec-storefront/internal/state/session"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []Event
	failOn string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	ev := event.(Event)
	if ev.Type == p.failOn {
		return errors.New("broker down")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

var ada = readmodel.User{ID: 1, Email: "ada@example.com", FirstName: "Ada", LastName: "Obi", Role: readmodel.RoleUser}

type feedEnv struct {
	pub     *recordingPublisher
	feed    *Feed
	session *session.Store
	cart    *cart.Store
	runErr  chan error
}

func newFeedEnv(t *testing.T) *feedEnv {
	t.Helper()
	kv := store.NewMemoryKV()
	e := &feedEnv{
		pub:     &recordingPublisher{},
		session: session.NewStore(kv),
		cart:    cart.NewStore(kv),
		runErr:  make(chan error, 1),
	}
	e.feed = NewFeed(e.pub, "kiosk-3")
	e.feed.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(e.feed.Attach(e.session, e.cart))
	go func() { e.runErr <- e.feed.Run(context.Background()) }()
	return e
}

// drain closes the feed and waits for every queued event to be published
func (e *feedEnv) drain(t *testing.T) {
	t.Helper()
	e.feed.Close()
	select {
	case err := <-e.runErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not drain")
	}
}

func TestFeed_SessionLifecycle(t *testing.T) {
	e := newFeedEnv(t)
	ctx := context.Background()

	require.NoError(t, e.session.SetAuth(ctx, ada, "at", "rt"))
	require.NoError(t, e.session.UpdateTokens(ctx, "at-2", "rt-2"))
	require.NoError(t, e.session.Logout(ctx))
	require.NoError(t, e.session.Logout(ctx))
	e.drain(t)

	assert.Equal(t, []string{EventSessionStarted, EventSessionEnded}, e.pub.types())
	for i, ev := range e.pub.events {
		assert.Equal(t, int64(1), ev.UserID)
		assert.Equal(t, "ada@example.com", ev.Email)
		assert.Equal(t, "kiosk-3", ev.DeviceID)
		assert.Equal(t, "kiosk-3", e.pub.keys[i])
		assert.NotEmpty(t, ev.ID)
	}
	assert.NotEqual(t, e.pub.events[0].ID, e.pub.events[1].ID)
}

func TestFeed_SwitchingUsersEndsThenStarts(t *testing.T) {
	e := newFeedEnv(t)
	ctx := context.Background()
	chidi := readmodel.User{ID: 2, Email: "chidi@example.com", Role: readmodel.RoleUser}

	require.NoError(t, e.session.SetAuth(ctx, ada, "at", "rt"))
	require.NoError(t, e.session.SetAuth(ctx, chidi, "at", "rt"))
	e.drain(t)

	require.Equal(t, []string{EventSessionStarted, EventSessionEnded, EventSessionStarted}, e.pub.types())
	assert.Equal(t, int64(1), e.pub.events[1].UserID)
	assert.Equal(t, int64(2), e.pub.events[2].UserID)
}

func TestFeed_CartReplacedSummarises(t *testing.T) {
	e := newFeedEnv(t)
	ctx := context.Background()
	require.NoError(t, e.session.SetAuth(ctx, ada, "at", "rt"))

	items := []readmodel.CartLine{
		{ID: 70, ProductID: 7, Quantity: 2, Price: decimal.NewFromInt(1500), Subtotal: decimal.NewFromInt(3000)},
		{ID: 71, ProductID: 8, Quantity: 1, Price: decimal.NewFromInt(2600), Subtotal: decimal.NewFromInt(2600)},
	}
	require.NoError(t, e.cart.SetCart(ctx, items, decimal.NewFromInt(5600)))
	require.NoError(t, e.cart.ClearCart(ctx))
	e.drain(t)

	require.Equal(t, []string{EventSessionStarted, EventCartReplaced, EventCartReplaced}, e.pub.types())
	full := e.pub.events[1]
	require.NotNil(t, full.Cart)
	assert.Equal(t, 2, full.Cart.Lines)
	assert.Equal(t, 3, full.Cart.Units)
	assert.True(t, full.Cart.TotalAmount.Equal(decimal.NewFromInt(5600)))
	assert.Equal(t, int64(1), full.UserID)

	cleared := e.pub.events[2]
	assert.Equal(t, 0, cleared.Cart.Lines)
	assert.True(t, cleared.Cart.TotalAmount.IsZero())
}

func TestFeed_CheckoutRedirected(t *testing.T) {
	e := newFeedEnv(t)

	e.feed.CheckoutRedirected(pages.PaymentRedirect{
		OrderID:       5,
		OrderNumber:   "ORD-000005",
		Provider:      readmodel.ProviderPaystack,
		Amount:        decimal.NewFromInt(3000),
		CustomerEmail: "ada@example.com",
		URL:           "https://checkout.paystack.com/abc",
		Reference:     "PSK-abc",
	})
	e.drain(t)

	require.Len(t, e.pub.events, 1)
	ev := e.pub.events[0]
	assert.Equal(t, EventCheckoutRedirected, ev.Type)
	assert.Equal(t, "ada@example.com", ev.Email)
	require.NotNil(t, ev.Checkout)
	assert.Equal(t, "https://checkout.paystack.com/abc", ev.Checkout.PaymentURL)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":3000`)
	assert.NotContains(t, string(raw), `"cart"`)
}

func TestFeed_PublishFailureDoesNotStopFeed(t *testing.T) {
	e := newFeedEnv(t)
	e.pub.failOn = EventSessionStarted
	ctx := context.Background()

	require.NoError(t, e.session.SetAuth(ctx, ada, "at", "rt"))
	require.NoError(t, e.session.Logout(ctx))
	e.drain(t)

	assert.Equal(t, []string{EventSessionEnded}, e.pub.types())
}

func TestFeed_ClosedFeedDropsEvents(t *testing.T) {
	pub := &recordingPublisher{}
	f := NewFeed(pub, "kiosk-3")
	f.Close()
	f.Close()

	f.CartReplaced(readmodel.CartSnapshot{})

	require.NoError(t, f.Run(context.Background()))
	assert.Empty(t, pub.types())
	assert.ErrorIs(t, f.Run(context.Background()), ErrFeedRunning)
}

func TestFeed_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	pub := &recordingPublisher{}
	f := NewFeed(pub, "kiosk-3")

	for i := 0; i < defaultBuffer+10; i++ {
		f.CartReplaced(readmodel.CartSnapshot{})
	}
	f.Close()

	require.NoError(t, f.Run(context.Background()))
	assert.Len(t, pub.types(), defaultBuffer)
}
