package domain

import "context"

// WebhookEvent is a provider event normalized to what settlement needs.
type WebhookEvent struct {
	ProviderEventID string
	Type            string
	SessionID       string
	AmountCents     int64
	Currency        string
}

// Webhook event types the service reacts to.
const EventCheckoutCompleted = "checkout.completed"

// Provider abstracts the payment backend so the service stays testable
// without network calls.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, amountCents int64, currency string) (*CheckoutSession, error)
	// VerifyAndParse validates the webhook signature and normalizes the
	// event. Unknown event types map to ErrEventIgnored.
	VerifyAndParse(payload []byte, signature string) (*WebhookEvent, error)
}
