package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidRange    = errors.New("invalid_range")
	ErrInvalidTimezone = errors.New("invalid_timezone")
	ErrInvalidUser     = errors.New("invalid_user")
)

// Service computes presence and working-time views from the event ledger.
// All methods are read-only and safe to call concurrently.
type Service interface {
	// StatusFor resolves the presence status as of the given instant. A zero
	// asOf means now.
	StatusFor(ctx context.Context, userID snowflake.ID, asOf time.Time) (UserWorkingStatus, error)
	// RangeSummary aggregates [from, end-of-day(to)] in the reporting zone.
	RangeSummary(ctx context.Context, userID snowflake.ID, from, to time.Time) (WorkingTimeSummary, error)
	// WeeklySummary aggregates the Monday-to-Sunday week containing day.
	WeeklySummary(ctx context.Context, userID snowflake.ID, day time.Time) (WorkingTimeSummary, error)
	// MonthlySummary aggregates a calendar month with ISO-week subtotals.
	MonthlySummary(ctx context.Context, userID snowflake.ID, year int, month time.Month) (MonthlySummary, error)
	// OrgSummary aggregates every user of the calling organisation.
	OrgSummary(ctx context.Context, from, to time.Time) (OrgSummary, error)
}
