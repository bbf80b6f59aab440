// Package domain contains organisation and user persistence models.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Organisation is the tenant boundary. Readers, zones, badges and users are
// scoped to exactly one organisation.
type Organisation struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Slug         string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	TimezoneName string       `gorm:"type:text;not null" json:"timezone_name"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Organisation) TableName() string { return "organisations" }

// User is an employee account. DeactivatedAt implements the GDPR
// deactivation: the account stops authenticating but ledger events remain.
type User struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;index" json:"org_id"`
	Email         string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	DisplayName   string       `gorm:"type:text;not null" json:"display_name"`
	PasswordHash  *string      `gorm:"type:text" json:"-"`
	Role          string       `gorm:"type:text;not null;default:MEMBER" json:"role"`
	DeactivatedAt *time.Time   `gorm:"" json:"deactivated_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Active reports whether the account may act.
func (u User) Active() bool { return u.DeactivatedAt == nil }

// UserToken is a personal API token for the admin/report endpoints. Only the
// hash is stored; JWT and session mechanics live outside this service.
type UserToken struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	TokenHash string       `gorm:"type:text;not null;uniqueIndex" json:"-"`
	ExpiresAt *time.Time   `gorm:"" json:"expires_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (UserToken) TableName() string { return "user_tokens" }

// ActiveAt reports whether the token is usable at the instant.
func (t UserToken) ActiveAt(at time.Time) bool {
	return t.ExpiresAt == nil || t.ExpiresAt.After(at)
}

// HashToken derives the stored digest for a raw personal token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
