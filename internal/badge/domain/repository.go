package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EventRepository is the read/append surface over the badge_events ledger.
// Reads are snapshot-consistent; Append must run inside the caller's
// transaction so a pointage decision and its event commit atomically.
type EventRepository interface {
	// ListForUser returns events with from <= occurred_at <= to, ascending.
	ListForUser(ctx context.Context, userID snowflake.ID, from, to time.Time) ([]BadgeEvent, error)
	// LastForUser returns the most recent event at or before the instant,
	// or nil when the user has never badged.
	LastForUser(ctx context.Context, userID snowflake.ID, at time.Time) (*BadgeEvent, error)
	// Append inserts one immutable event using the given transaction handle.
	Append(ctx context.Context, tx *gorm.DB, event *BadgeEvent) error
}

// Repository resolves badges and their assignments.
type Repository interface {
	FindBySerial(ctx context.Context, serial string) (*Badge, error)
	// ActiveAssignment returns the assignment covering the instant, with row
	// locking when tx's dialect supports it, so concurrent scans for the same
	// badge holder serialize.
	ActiveAssignment(ctx context.Context, tx *gorm.DB, badgeID snowflake.ID, at time.Time, lock bool) (*BadgeAssignment, error)
	ActiveAssignmentForUser(ctx context.Context, userID snowflake.ID, at time.Time) (*BadgeAssignment, error)
	Insert(ctx context.Context, badge *Badge) error
	InsertAssignment(ctx context.Context, assignment *BadgeAssignment) error
	RevokeAssignment(ctx context.Context, assignmentID snowflake.ID, at time.Time) error
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Badge, error)
	ListAssignmentsForUser(ctx context.Context, userID snowflake.ID) ([]BadgeAssignment, error)
}

// Service manages the badge lifecycle.
type Service interface {
	Issue(ctx context.Context, req IssueBadgeRequest) (*Badge, error)
	Assign(ctx context.Context, req AssignBadgeRequest) (*BadgeAssignment, error)
	Revoke(ctx context.Context, assignmentID string) error
	List(ctx context.Context) ([]Badge, error)
}

// IssueBadgeRequest creates a new badge. Serial is generated when empty.
type IssueBadgeRequest struct {
	Serial string `json:"serial"`
}

// AssignBadgeRequest binds a badge to a user.
type AssignBadgeRequest struct {
	BadgeID   string     `json:"badge_id"`
	UserID    string     `json:"user_id"`
	StartsAt  time.Time  `json:"starts_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
