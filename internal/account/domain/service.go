// Package domain defines the self-service account surface: profile edits,
// the GDPR data export, and account deactivation.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
)

var (
	ErrInvalidDisplayName = errors.New("invalid_display_name")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrAlreadyDeactivated = errors.New("already_deactivated")
)

// ExportBundle is everything the platform stores about one person. Badge
// events are included raw: they are the only personal data trail.
type ExportBundle struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Profile     organizationdomain.User       `json:"profile"`
	Badges      []badgedomain.BadgeAssignment `json:"badge_assignments"`
	Events      []badgedomain.BadgeEvent      `json:"events"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Password    string `json:"password,omitempty"`
}

// Service covers the endpoints a signed-in employee uses on their own data.
type Service interface {
	Export(ctx context.Context, userID snowflake.ID) (*ExportBundle, error)
	UpdateProfile(ctx context.Context, userID snowflake.ID, req UpdateProfileRequest) (*organizationdomain.User, error)
	// Deactivate freezes the account and revokes its active badge
	// assignments. Ledger events are retained.
	Deactivate(ctx context.Context, userID snowflake.ID) error
}
