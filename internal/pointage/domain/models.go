// Package domain defines the action resolver: the decision taken when a badge
// is presented to a reader, and the one immutable event that records it.
package domain

import (
	"context"
	"errors"

	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
)

var (
	ErrAccessDenied       = errors.New("access_denied")
	ErrZoneAccessDenied   = errors.New("zone_access_denied")
	ErrCooldownActive     = errors.New("cooldown_active")
	ErrAccountDeactivated = errors.New("account_deactivated")
	ErrInvalidReader      = errors.New("invalid_reader")
)

// RecordRequest is one badge presentation. ReaderID may be empty when the
// calling device is already authenticated; the handler fills it in.
type RecordRequest struct {
	BadgeSerial string `json:"badge_serial"`
	ReaderID    string `json:"reader_id"`
	// Force is an administrative override: it bypasses zone grants and the
	// cooldown window. It never crosses organisation boundaries.
	Force bool `json:"force"`
}

// Result is the outcome of a recorded (or deduplicated) presentation.
type Result struct {
	Event     badgedomain.BadgeEvent          `json:"event"`
	NewStatus worktimedomain.UserWorkingStatus `json:"new_status"`
	// Duplicate is set when the scan landed inside the duplicate grace window
	// and the previous event was returned instead of a new one.
	Duplicate bool   `json:"duplicate,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// Service records badge presentations against the ledger.
type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Result, error)
}

// DecideAction derives the event type from the holder's presence and the
// zones the reader opens. An absent holder always starts an entry. A present
// holder exits through a principal-zone reader; any other reader produces a
// zero-duration access record that leaves presence untouched.
func DecideAction(status worktimedomain.Status, zones []topodomain.Zone) badgedomain.EventType {
	if status != worktimedomain.StatusPresent {
		return badgedomain.EventTypeEntry
	}
	if topodomain.AnyPrincipal(zones) {
		return badgedomain.EventTypeExit
	}
	return badgedomain.EventTypeAccess
}

// PickZone chooses the zone recorded on the event: the first principal zone
// when one is reachable, otherwise the first zone.
func PickZone(zones []topodomain.Zone) *topodomain.Zone {
	for i := range zones {
		if zones[i].IsPrincipal {
			return &zones[i]
		}
	}
	if len(zones) > 0 {
		return &zones[0]
	}
	return nil
}
