// Package domain contains the badge and badge-event persistence models. The
// badge_events table is the append-only ledger every presence and working-time
// figure is derived from.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EventType is the closed set of actions a badge scan can record.
type EventType string

const (
	EventTypeEntry  EventType = "entry"
	EventTypeExit   EventType = "exit"
	EventTypeAccess EventType = "acces"
)

// Valid reports whether the value belongs to the closed set.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeEntry, EventTypeExit, EventTypeAccess:
		return true
	}
	return false
}

// CountsForPairing reports whether the event participates in entry/exit
// pairing. Secondary-zone access events are zero-duration records.
func (t EventType) CountsForPairing() bool {
	return t == EventTypeEntry || t == EventTypeExit
}

// Badge is a physical credential. Serial is the value encoded on the card.
type Badge struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	Serial    string       `gorm:"type:text;not null;uniqueIndex" json:"serial"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Badge) TableName() string { return "badges" }

// BadgeAssignment binds a badge to a user for a validity window. A badge has
// at most one active assignment at a time.
type BadgeAssignment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	BadgeID   snowflake.ID `gorm:"not null;index" json:"badge_id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	StartsAt  time.Time    `gorm:"not null" json:"starts_at"`
	ExpiresAt *time.Time   `gorm:"" json:"expires_at,omitempty"`
	RevokedAt *time.Time   `gorm:"" json:"revoked_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (BadgeAssignment) TableName() string { return "badge_assignments" }

// ActiveAt reports whether the assignment is valid at the given instant.
func (a BadgeAssignment) ActiveAt(at time.Time) bool {
	if a.RevokedAt != nil && !a.RevokedAt.After(at) {
		return false
	}
	if a.StartsAt.After(at) {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(at) {
		return false
	}
	return true
}

// BadgeEvent is one immutable fact in the pointage ledger. Events are never
// updated or deleted; corrections happen at the reporting layer.
type BadgeEvent struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index" json:"org_id"`
	BadgeID    snowflake.ID `gorm:"not null;index" json:"badge_id"`
	UserID     snowflake.ID `gorm:"not null;index:idx_badge_events_user_time,priority:1" json:"user_id"`
	ReaderID   snowflake.ID `gorm:"not null;index" json:"reader_id"`
	ZoneID     snowflake.ID `gorm:"" json:"zone_id,omitempty"`
	Type       EventType    `gorm:"type:text;not null" json:"type"`
	OccurredAt time.Time    `gorm:"not null;index:idx_badge_events_user_time,priority:2" json:"occurred_at"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (BadgeEvent) TableName() string { return "badge_events" }
