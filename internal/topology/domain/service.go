package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrReaderNotFound  = errors.New("badgeuse_not_found")
	ErrReaderBlocked   = errors.New("badgeuse_blocked")
	ErrZoneNotFound    = errors.New("zone_not_found")
	ErrNoZones         = errors.New("no_zones_configured")
	ErrNoPrincipalZone = errors.New("no_principal_service")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidRef      = errors.New("invalid_reference")
)

// Repository is the storage surface for the access topology.
type Repository interface {
	FindReader(ctx context.Context, readerID snowflake.ID) (*Reader, error)
	ZonesForReader(ctx context.Context, readerID snowflake.ID) ([]Zone, error)
	GrantsForUser(ctx context.Context, userID snowflake.ID, at time.Time) ([]AccessGrant, error)
	FindZone(ctx context.Context, zoneID snowflake.ID) (*Zone, error)
	InsertReader(ctx context.Context, reader *Reader) error
	InsertZone(ctx context.Context, zone *Zone) error
	LinkReaderZone(ctx context.Context, link *ReaderZone) error
	InsertGrant(ctx context.Context, grant *AccessGrant) error
	InsertAPIKey(ctx context.Context, key *ReaderAPIKey) error
	ListReadersByOrg(ctx context.Context, orgID snowflake.ID) ([]Reader, error)
	ListZonesByOrg(ctx context.Context, orgID snowflake.ID) ([]Zone, error)
}

// Service exposes topology queries the action resolver depends on, plus the
// administrative CRUD around them.
type Service interface {
	// ZonesReachableVia returns the zones a reader opens. Cached.
	ZonesReachableVia(ctx context.Context, readerID snowflake.ID) ([]Zone, error)
	// UserHasActiveGrant reports whether the user may enter any of the zones
	// at the given instant.
	UserHasActiveGrant(ctx context.Context, userID snowflake.ID, zones []Zone, at time.Time) (bool, error)
	// ReaderByID resolves a reader, distinguishing missing from blocked.
	ReaderByID(ctx context.Context, readerID snowflake.ID) (*Reader, error)

	CreateReader(ctx context.Context, req CreateReaderRequest) (*Reader, error)
	CreateZone(ctx context.Context, req CreateZoneRequest) (*Zone, error)
	// IssueKey mints a device key for a reader. The raw key is returned
	// exactly once; only its hash is stored.
	IssueKey(ctx context.Context, readerID string) (string, *ReaderAPIKey, error)
	LinkZone(ctx context.Context, readerID, zoneID string) error
	GrantAccess(ctx context.Context, req GrantAccessRequest) (*AccessGrant, error)
	ListReaders(ctx context.Context) ([]Reader, error)
	ListZones(ctx context.Context) ([]Zone, error)
}

type CreateReaderRequest struct {
	Reference   string    `json:"reference"`
	InstalledAt time.Time `json:"installed_at"`
}

type CreateZoneRequest struct {
	Name        string `json:"name"`
	IsPrincipal bool   `json:"is_principal"`
}

type GrantAccessRequest struct {
	UserID    string     `json:"user_id"`
	ZoneID    string     `json:"zone_id"`
	StartsAt  time.Time  `json:"starts_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AnyPrincipal reports whether at least one zone is a principal zone.
func AnyPrincipal(zones []Zone) bool {
	for _, zone := range zones {
		if zone.IsPrincipal {
			return true
		}
	}
	return false
}
