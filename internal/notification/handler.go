package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/activity"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/logging"
)

// seenLimit bounds the remembered event ids used to skip redelivered messages
const seenLimit = 4096

// ErrMalformedEvent marks messages that can never be handled; retrying them is pointless
var ErrMalformedEvent = errors.New("malformed activity event")

// Mailer sends payment reminders. *email.Service implements it.
type Mailer interface {
	SendPaymentReminder(r email.PaymentReminder) error
}

// Handler turns CheckoutRedirected activity into payment reminder emails
type Handler struct {
	mailer Mailer
	log    *logrus.Entry

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer) *Handler {
	return &Handler{
		mailer: mailer,
		log:    logging.Component("notifier"),
		seen:   make(map[string]struct{}),
	}
}

// HandleEvent processes an activity message from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event activity.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if event.Type != activity.EventCheckoutRedirected {
		return nil
	}
	if h.alreadySeen(event.ID) {
		h.log.WithField("event_id", event.ID).Debug("skipping redelivered event")
		return nil
	}
	return h.handleCheckoutRedirected(event)
}

func (h *Handler) handleCheckoutRedirected(event activity.Event) error {
	c := event.Checkout
	if c == nil {
		return fmt.Errorf("%w: event %s has no checkout details", ErrMalformedEvent, event.ID)
	}
	entry := h.log.WithFields(logrus.Fields{"order_id": c.OrderID, "device_id": event.DeviceID})

	// Stripe payments happen in-app; there is no link to send.
	if c.PaymentURL == "" {
		entry.Debug("no payment link, skipping reminder")
		return nil
	}

	to := c.CustomerEmail
	if to == "" {
		to = event.Email
	}
	if to == "" {
		entry.Warn("no customer email for order")
		return nil
	}

	if err := h.mailer.SendPaymentReminder(email.PaymentReminder{
		To:          to,
		OrderNumber: c.OrderNumber,
		Amount:      c.Amount,
		Provider:    c.Provider,
		PaymentURL:  c.PaymentURL,
	}); err != nil {
		h.forget(event.ID)
		return fmt.Errorf("failed to send payment reminder for order %d: %w", c.OrderID, err)
	}

	entry.WithField("to", to).Info("payment reminder sent")
	return nil
}

func (h *Handler) alreadySeen(id string) bool {
	if id == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.seen[id]; ok {
		return true
	}
	if len(h.seen) >= seenLimit {
		h.seen = make(map[string]struct{})
	}
	h.seen[id] = struct{}{}
	return false
}

func (h *Handler) forget(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.seen, id)
}
