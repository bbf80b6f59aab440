// Package domain models the physical access topology: readers ("badgeuses"),
// the zones they open, and per-user zone grants.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Zone is an access area. A principal zone anchors presence: entries and
// exits through it drive the present/absent state. Secondary zones only
// produce access records.
type Zone struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"org_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	IsPrincipal bool         `gorm:"not null;default:false" json:"is_principal"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Zone) TableName() string { return "zones" }

// Reader is a physical badge reader.
type Reader struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"org_id"`
	Reference   string       `gorm:"type:text;not null;uniqueIndex" json:"reference"`
	InstalledAt time.Time    `gorm:"not null" json:"installed_at"`
	Blocked     bool         `gorm:"not null;default:false" json:"blocked"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Reader) TableName() string { return "readers" }

// ReaderZone wires a reader to a zone it can open.
type ReaderZone struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	ReaderID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_reader_zones,priority:1" json:"reader_id"`
	ZoneID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_reader_zones,priority:2" json:"zone_id"`
}

// TableName sets the database table name.
func (ReaderZone) TableName() string { return "reader_zones" }

// AccessGrant allows a user into a zone for a validity window.
type AccessGrant struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	ZoneID    snowflake.ID `gorm:"not null;index" json:"zone_id"`
	StartsAt  time.Time    `gorm:"not null" json:"starts_at"`
	ExpiresAt *time.Time   `gorm:"" json:"expires_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (AccessGrant) TableName() string { return "access_grants" }

// ActiveAt reports whether the grant covers the instant.
func (g AccessGrant) ActiveAt(at time.Time) bool {
	if g.StartsAt.After(at) {
		return false
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(at) {
		return false
	}
	return true
}

// ReaderAPIKey authenticates a reader device on the pointage endpoints.
// Only the hash is stored.
type ReaderAPIKey struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	ReaderID  snowflake.ID `gorm:"not null;index" json:"reader_id"`
	KeyHash   string       `gorm:"type:text;not null;uniqueIndex" json:"-"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt *time.Time   `gorm:"" json:"expires_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (ReaderAPIKey) TableName() string { return "reader_api_keys" }

// HashAPIKey derives the stored digest for a raw device key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
