package activity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/pages"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/cart"
	"github.com/example/ec-storefront/internal/state/session"
)

// ErrFeedRunning is returned by a second call to Run
var ErrFeedRunning = errors.New("activity feed already running")

// defaultBuffer bounds the events waiting for the publisher
const defaultBuffer = 64

// Publisher delivers one event. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Feed turns store changes into events and publishes them in order from a
// single goroutine. Observers never block: a full buffer drops the event.
type Feed struct {
	publisher Publisher
	deviceID  string
	now       func() time.Time
	log       *logrus.Entry

	mu      sync.Mutex
	user    *readmodel.User
	closed  bool
	events  chan Event
	done    chan struct{}
	started bool
}

// NewFeed creates a feed keyed by deviceID
func NewFeed(publisher Publisher, deviceID string) *Feed {
	return &Feed{
		publisher: publisher,
		deviceID:  deviceID,
		now:       time.Now,
		log:       logging.Component("activity"),
		events:    make(chan Event, defaultBuffer),
		done:      make(chan struct{}),
	}
}

// Attach subscribes the feed to the session and cart stores. The returned
// function unsubscribes both.
func (f *Feed) Attach(sess *session.Store, cartStore *cart.Store) func() {
	if u, ok := sess.User(); ok {
		f.mu.Lock()
		f.user = &u
		f.mu.Unlock()
	}
	unsubSession := sess.Subscribe(f.SessionChanged)
	unsubCart := cartStore.Subscribe(f.CartReplaced)
	return func() {
		unsubSession()
		unsubCart()
	}
}

// SessionChanged emits SessionStarted or SessionEnded when the signed-in
// user changes
func (f *Feed) SessionChanged(snap session.Snapshot) {
	f.mu.Lock()
	prev := f.user
	var next *readmodel.User
	if snap.IsAuthenticated && snap.User != nil {
		u := *snap.User
		next = &u
	}
	f.user = next
	f.mu.Unlock()

	switch {
	case prev != nil && (next == nil || next.ID != prev.ID):
		ev := f.newEvent(EventSessionEnded)
		ev.UserID, ev.Email = prev.ID, prev.Email
		f.enqueue(ev)
		if next != nil {
			f.enqueue(f.userEvent(EventSessionStarted, next))
		}
	case prev == nil && next != nil:
		f.enqueue(f.userEvent(EventSessionStarted, next))
	}
}

// CartReplaced emits a summary of every cart replacement
func (f *Feed) CartReplaced(snap readmodel.CartSnapshot) {
	summary := &CartSummary{Lines: len(snap.Items), TotalAmount: snap.TotalAmount}
	for _, l := range snap.Items {
		summary.Units += l.Quantity
	}
	ev := f.currentUserEvent(EventCartReplaced)
	ev.Cart = summary
	f.enqueue(ev)
}

// CheckoutRedirected emits the payment redirect of a finished checkout
func (f *Feed) CheckoutRedirected(r pages.PaymentRedirect) {
	ev := f.currentUserEvent(EventCheckoutRedirected)
	ev.Checkout = &Checkout{
		OrderID:       r.OrderID,
		OrderNumber:   r.OrderNumber,
		Provider:      r.Provider,
		Amount:        r.Amount,
		CustomerEmail: r.CustomerEmail,
		PaymentURL:    r.URL,
		Reference:     r.Reference,
	}
	if ev.Email == "" {
		ev.Email = r.CustomerEmail
	}
	f.enqueue(ev)
}

// Run publishes queued events until Close has been called and the queue is
// empty. Call it once.
func (f *Feed) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrFeedRunning
	}
	f.started = true
	f.mu.Unlock()
	defer close(f.done)

	for ev := range f.events {
		entry := f.log.WithField("type", ev.Type).WithField("event_id", ev.ID)
		if err := f.publisher.Publish(ctx, f.deviceID, ev); err != nil {
			entry.WithError(err).Warn("failed to publish activity")
			continue
		}
		entry.Debug("activity published")
	}
	return nil
}

// Close stops accepting events. When Run is active it waits for the queue to
// drain.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	started := f.started
	close(f.events)
	f.mu.Unlock()

	if started {
		<-f.done
	}
}

func (f *Feed) enqueue(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.events <- ev:
	default:
		f.log.WithField("type", ev.Type).Warn("activity buffer full, dropping event")
	}
}

func (f *Feed) newEvent(kind string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       kind,
		DeviceID:   f.deviceID,
		OccurredAt: f.now().UTC(),
	}
}

func (f *Feed) userEvent(kind string, u *readmodel.User) Event {
	ev := f.newEvent(kind)
	ev.UserID, ev.Email = u.ID, u.Email
	return ev
}

func (f *Feed) currentUserEvent(kind string) Event {
	f.mu.Lock()
	u := f.user
	f.mu.Unlock()
	if u == nil {
		return f.newEvent(kind)
	}
	return f.userEvent(kind, u)
}
