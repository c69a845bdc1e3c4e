package email

import (
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
)

// ErrInvalidRecipient is returned for an unparseable recipient address
var ErrInvalidRecipient = errors.New("invalid recipient address")

// sendFunc matches smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
	send sendFunc
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

// SendPaymentReminder emails the payment link of an unpaid order
func (s *Service) SendPaymentReminder(r PaymentReminder) error {
	to, err := mail.ParseAddress(r.To)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, r.To)
	}
	if r.PaymentURL == "" {
		return errors.New("payment reminder requires a payment URL")
	}

	subject := fmt.Sprintf("Complete your payment for order %s", r.OrderNumber)
	return s.deliver(to.Address, subject, BuildPaymentReminderBody(r))
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.send(addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
