// Package domain models the "buy me a coffee" support payments. Payments are
// decorative for the platform: they never gate any pointage feature.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrPaymentNotFound       = errors.New("payment_not_found")
	ErrNotConfigured         = errors.New("payment_not_configured")
)

// Payment statuses.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// CoffeePayment is one support payment, tracked from checkout to settlement.
type CoffeePayment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"org_id"`
	UserID      snowflake.ID `gorm:"not null;index" json:"user_id"`
	AmountCents int64        `gorm:"not null" json:"amount_cents"`
	Currency    string       `gorm:"type:text;not null" json:"currency"`
	Provider    string       `gorm:"type:text;not null" json:"provider"`
	SessionID   string       `gorm:"type:text;not null;uniqueIndex" json:"session_id"`
	EventID     *string      `gorm:"type:text;uniqueIndex" json:"event_id,omitempty"`
	Status      string       `gorm:"type:text;not null;default:pending" json:"status"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	PaidAt      *time.Time   `gorm:"" json:"paid_at,omitempty"`
}

// TableName sets the database table name.
func (CoffeePayment) TableName() string { return "coffee_payments" }

// CheckoutRequest opens a new payment session.
type CheckoutRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// CheckoutSession is the provider-hosted payment page.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Repository persists coffee payments.
type Repository interface {
	Insert(ctx context.Context, payment *CoffeePayment) error
	FindBySession(ctx context.Context, sessionID string) (*CoffeePayment, error)
	// MarkPaid settles a pending payment idempotently; it reports whether the
	// row transitioned.
	MarkPaid(ctx context.Context, sessionID, eventID string, at time.Time) (bool, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]CoffeePayment, error)
}

// Service orchestrates checkout creation and webhook settlement.
type Service interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	IngestWebhook(ctx context.Context, payload []byte, signature string) error
	ListByOrg(ctx context.Context) ([]CoffeePayment, error)
}
