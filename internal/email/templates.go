package email

import (
	"fmt"
	"html"

	"github.com/shopspring/decimal"

	"github.com/example/ec-storefront/internal/readmodel"
)

// PaymentReminder is the content of a payment reminder email
type PaymentReminder struct {
	To          string
	OrderNumber string
	Amount      decimal.Decimal
	Provider    string
	PaymentURL  string
}

// BuildPaymentReminderBody builds the HTML body for a payment reminder email
func BuildPaymentReminderBody(r PaymentReminder) string {
	orderNumber := html.EscapeString(r.OrderNumber)
	link := html.EscapeString(r.PaymentURL)

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #2f855a 0%%, #276749 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Your order is waiting for payment</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Thank you for shopping with us. Your order has been reserved and will be processed once payment is confirmed.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Amount due</span>
			<span style="font-size: 24px; font-weight: bold; color: #2f855a; margin-left: 10px;">%s</span>
		</div>

		<p style="text-align: center; margin: 30px 0;">
			<a href="%s" style="background: #2f855a; color: white; padding: 12px 24px; border-radius: 5px; text-decoration: none; font-weight: 600;">Pay with %s</a>
		</p>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This email was sent automatically. If you have already paid, you can ignore it.
		</p>
	</div>
</body>
</html>`, orderNumber, readmodel.FormatPrice(r.Amount), link, providerName(r.Provider))
}

func providerName(provider string) string {
	switch provider {
	case readmodel.ProviderPaystack:
		return "Paystack"
	case readmodel.ProviderStripe:
		return "Stripe"
	}
	return "card"
}
