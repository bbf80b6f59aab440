// Package stripe implements the coffee payment provider on Stripe Checkout.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/pointagehq/pointage/internal/config"
	paymentdomain "github.com/pointagehq/pointage/internal/payment/domain"
	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

type Adapter struct {
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
}

func New(cfg config.Config) *Adapter {
	return &Adapter{
		secretKey:     strings.TrimSpace(cfg.StripeSecretKey),
		webhookSecret: strings.TrimSpace(cfg.StripeWebhookSecret),
		successURL:    cfg.CoffeeSuccessURL,
		cancelURL:     cfg.CoffeeCancelURL,
	}
}

func (a *Adapter) Name() string { return "stripe" }

func (a *Adapter) Configured() bool { return a.secretKey != "" && a.webhookSecret != "" }

func (a *Adapter) CreateCheckout(ctx context.Context, amountCents int64, currency string) (*paymentdomain.CheckoutSession, error) {
	if !a.Configured() {
		return nil, paymentdomain.ErrNotConfigured
	}
	stripeapi.Key = a.secretKey

	params := &stripeapi.CheckoutSessionParams{
		Mode: stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripeapi.String(currency),
					UnitAmount: stripeapi.Int64(amountCents),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripeapi.String("Buy the team a coffee"),
					},
				},
				Quantity: stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(a.successURL),
		CancelURL:  stripeapi.String(a.cancelURL),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &paymentdomain.CheckoutSession{
		SessionID: sess.ID,
		URL:       sess.URL,
	}, nil
}

func (a *Adapter) VerifyAndParse(payload []byte, signature string) (*paymentdomain.WebhookEvent, error) {
	if !a.Configured() {
		return nil, paymentdomain.ErrNotConfigured
	}

	event, err := webhook.ConstructEvent(payload, signature, a.webhookSecret)
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) ||
			errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrNoValidSignature) ||
			errors.Is(err, webhook.ErrTooOld) {
			return nil, paymentdomain.ErrInvalidSignature
		}
		return nil, paymentdomain.ErrInvalidPayload
	}

	if event.Type != "checkout.session.completed" {
		return nil, paymentdomain.ErrEventIgnored
	}

	var sess stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	return &paymentdomain.WebhookEvent{
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventCheckoutCompleted,
		SessionID:       sess.ID,
		AmountCents:     sess.AmountTotal,
		Currency:        string(sess.Currency),
	}, nil
}
