package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-storefront/internal/readmodel"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(sent *[]sentMail, err error) *Service {
	s := NewService("smtp.local", "1025", "noreply@storefront.local")
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return err
	}
	return s
}

func reminder() PaymentReminder {
	return PaymentReminder{
		To:          "Ada Obi <ada@example.com>",
		OrderNumber: "ORD-000005",
		Amount:      decimal.NewFromInt(4500),
		Provider:    readmodel.ProviderPaystack,
		PaymentURL:  "https://checkout.paystack.com/abc?x=1&y=2",
	}
}

func TestSendPaymentReminder(t *testing.T) {
	var sent []sentMail
	s := newTestService(&sent, nil)

	require.NoError(t, s.SendPaymentReminder(reminder()))

	require.Len(t, sent, 1)
	assert.Equal(t, "smtp.local:1025", sent[0].addr)
	assert.Equal(t, "noreply@storefront.local", sent[0].from)
	assert.Equal(t, []string{"ada@example.com"}, sent[0].to)
	assert.Contains(t, sent[0].msg, "Subject: Complete your payment for order ORD-000005\r\n")
	assert.Contains(t, sent[0].msg, "To: ada@example.com\r\n")
	assert.Contains(t, sent[0].msg, "₦4,500.00")
}

func TestSendPaymentReminder_Rejections(t *testing.T) {
	var sent []sentMail
	s := newTestService(&sent, nil)

	bad := reminder()
	bad.To = "not an address"
	assert.ErrorIs(t, s.SendPaymentReminder(bad), ErrInvalidRecipient)

	injected := reminder()
	injected.To = "ada@example.com\r\nBcc: all@example.com"
	assert.ErrorIs(t, s.SendPaymentReminder(injected), ErrInvalidRecipient)

	noLink := reminder()
	noLink.PaymentURL = ""
	assert.Error(t, s.SendPaymentReminder(noLink))

	assert.Empty(t, sent)
}

func TestSendPaymentReminder_SMTPFailure(t *testing.T) {
	var sent []sentMail
	s := newTestService(&sent, errors.New("connection refused"))

	err := s.SendPaymentReminder(reminder())

	assert.ErrorContains(t, err, "failed to send email to ada@example.com")
}

func TestBuildPaymentReminderBody(t *testing.T) {
	body := BuildPaymentReminderBody(reminder())

	assert.Contains(t, body, "ORD-000005")
	assert.Contains(t, body, `href="https://checkout.paystack.com/abc?x=1&amp;y=2"`)
	assert.Contains(t, body, "Pay with Paystack")
	assert.Contains(t, body, "₦4,500.00")
	assert.False(t, strings.Contains(body, "%!"), "template verbs must all be filled")
}

func TestBuildPaymentReminderBody_EscapesOrderNumber(t *testing.T) {
	r := reminder()
	r.OrderNumber = "<script>alert(1)</script>"

	body := BuildPaymentReminderBody(r)

	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}
