// Package domain defines the derived working-time views. Nothing here is
// persisted as state; every value is recomputed from the badge_events ledger
// at read time.
package domain

import (
	"time"

	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
)

// Status is the closed presence state.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// AnomalyKind flags a suspicious badge day.
type AnomalyKind string

const (
	AnomalyLongDay        AnomalyKind = "LONG_DAY"         // > 12h accrued
	AnomalyShortDay       AnomalyKind = "SHORT_DAY"        // accrued but < 2h
	AnomalyIncompleteDay  AnomalyKind = "INCOMPLETE_BADGE" // odd raw event count
	AnomalyTooManyBadges  AnomalyKind = "TOO_MANY_BADGES"  // > 10 raw events
)

// Anomaly reports one irregularity on one day. A day can carry several.
type Anomaly struct {
	Date   string      `json:"date"`
	Kind   AnomalyKind `json:"kind"`
	Detail string      `json:"detail"`
}

// DayEntry is one raw ledger event as shown in a day's report.
type DayEntry struct {
	Time time.Time             `json:"time"`
	Type badgedomain.EventType `json:"type"`
}

// DaySummary aggregates one calendar day in the reporting timezone.
type DaySummary struct {
	Date         string     `json:"date"`
	Entries      []DayEntry `json:"entries"`
	TotalMinutes int64      `json:"total_minutes"`
	TotalHours   float64    `json:"total_hours"`
}

// WorkingTimeSummary aggregates a date range.
type WorkingTimeSummary struct {
	From         time.Time    `json:"from"`
	To           time.Time    `json:"to"`
	TotalMinutes int64        `json:"total_minutes"`
	TotalHours   float64      `json:"total_hours"`
	Days         []DaySummary `json:"per_day"`
	Anomalies    []Anomaly    `json:"anomalies"`
}

// WeekSubtotal is a per-ISO-week slice of a monthly summary.
type WeekSubtotal struct {
	ISOYear      int     `json:"iso_year"`
	ISOWeek      int     `json:"iso_week"`
	TotalMinutes int64   `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
}

// MonthlySummary decorates a calendar-month summary with ISO-week subtotals
// and the min/max daily hours among worked days.
type MonthlySummary struct {
	WorkingTimeSummary
	Weeks         []WeekSubtotal `json:"weeks"`
	MinDailyHours float64        `json:"min_daily_hours"`
	MaxDailyHours float64        `json:"max_daily_hours"`
}

// LastEvent describes the most recent ledger event behind a status.
type LastEvent struct {
	Type            badgedomain.EventType `json:"type"`
	OccurredAt      time.Time             `json:"occurred_at"`
	ReaderReference string                `json:"reader_reference"`
	ZoneName        string                `json:"zone_name"`
	ZonePrincipal   bool                  `json:"zone_principal"`
}

// UserWorkingStatus is the on-demand presence view for one user.
type UserWorkingStatus struct {
	UserID              string     `json:"user_id"`
	Status              Status     `json:"status"`
	LastEvent           *LastEvent `json:"last_event,omitempty"`
	MinutesWorkedToday  int64      `json:"minutes_worked_today"`
	CurrentSessionStart *time.Time `json:"current_session_start,omitempty"`
	CanAccessSecondary  bool       `json:"can_access_secondary"`
	AsOf                time.Time  `json:"as_of"`
}

// UserPeriodSummary is one row of an organisation-wide report.
type UserPeriodSummary struct {
	UserID      string             `json:"user_id"`
	DisplayName string             `json:"display_name"`
	Summary     WorkingTimeSummary `json:"summary"`
}

// OrgSummary is the organisation-wide report for a period.
type OrgSummary struct {
	From  time.Time           `json:"from"`
	To    time.Time           `json:"to"`
	Users []UserPeriodSummary `json:"users"`
}
