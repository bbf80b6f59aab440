// Package service orchestrates coffee checkouts and webhook settlement.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/events"
	"github.com/pointagehq/pointage/internal/orgcontext"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	paymentdomain "github.com/pointagehq/pointage/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	minAmountCents = 100
	maxAmountCents = 50_000
)

var supportedCurrencies = map[string]bool{
	"eur": true,
	"usd": true,
	"gbp": true,
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Repo     paymentdomain.Repository
	Provider paymentdomain.Provider
	Outbox   *events.Outbox
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	repo     paymentdomain.Repository
	provider paymentdomain.Provider
	outbox   *events.Outbox
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		log:      p.Log.Named("payment.service"),
		clock:    p.Clock,
		genID:    p.GenID,
		repo:     p.Repo,
		provider: p.Provider,
		outbox:   p.Outbox,
	}
}

func (s *Service) CreateCheckout(ctx context.Context, req paymentdomain.CheckoutRequest) (*paymentdomain.CheckoutSession, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, organizationdomain.ErrNotFound
	}
	userID, ok := orgcontext.UserIDFromContext(ctx)
	if !ok {
		return nil, organizationdomain.ErrUserNotFound
	}

	if req.AmountCents < minAmountCents || req.AmountCents > maxAmountCents {
		return nil, paymentdomain.ErrInvalidAmount
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "eur"
	}
	if !supportedCurrencies[currency] {
		return nil, paymentdomain.ErrInvalidCurrency
	}

	session, err := s.provider.CreateCheckout(ctx, req.AmountCents, currency)
	if err != nil {
		return nil, err
	}

	payment := &paymentdomain.CoffeePayment{
		ID:          s.genID.Generate(),
		OrgID:       snowflake.ID(orgID),
		UserID:      snowflake.ID(userID),
		AmountCents: req.AmountCents,
		Currency:    currency,
		Provider:    s.provider.Name(),
		SessionID:   session.SessionID,
		Status:      paymentdomain.StatusPending,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Info("coffee checkout created",
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("amount_cents", payment.AmountCents),
		zap.String("currency", payment.Currency),
	)
	return session, nil
}

func (s *Service) IngestWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.VerifyAndParse(payload, signature)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}
	if event.Type != paymentdomain.EventCheckoutCompleted {
		return nil
	}

	payment, err := s.repo.FindBySession(ctx, event.SessionID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	settled, err := s.repo.MarkPaid(ctx, event.SessionID, event.ProviderEventID, now)
	if err != nil {
		return err
	}
	if !settled {
		// Stripe retries webhooks; a replay of a settled session is a no-op.
		return nil
	}

	err = s.outbox.Publish(ctx, events.Event{
		OrgID: payment.OrgID,
		Type:  events.EventCoffeePaid,
		Payload: map[string]any{
			"payment_id":   payment.ID.String(),
			"user_id":      payment.UserID.String(),
			"amount_cents": payment.AmountCents,
			"currency":     payment.Currency,
			"at":           now.Format(time.RFC3339),
		},
		DedupeKey: "coffee:" + event.ProviderEventID,
	})
	if err != nil {
		return err
	}

	s.log.Info("coffee payment settled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider_event", event.ProviderEventID),
	)
	return nil
}

func (s *Service) ListByOrg(ctx context.Context) ([]paymentdomain.CoffeePayment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, organizationdomain.ErrNotFound
	}
	return s.repo.ListByOrg(ctx, snowflake.ID(orgID))
}
