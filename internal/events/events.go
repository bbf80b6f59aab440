// Package events stores domain events in a transactional outbox so downstream
// consumers (rollups, HR exports, webhooks) never observe a pointage that did
// not commit.
package events

// Pointage event types written alongside the ledger.
const (
	EventPointageRecorded = "pointage.recorded"
	EventPointageDenied   = "pointage.denied"
	EventBadgeAssigned    = "badge.assigned"
	EventBadgeRevoked     = "badge.revoked"
	EventUserDeactivated  = "user.deactivated"
	EventCoffeePaid       = "coffee.paid"
)

// PointageRecordedPayload captures the minimal data consumers need to react
// to a new ledger event.
type PointageRecordedPayload struct {
	EventID    string `json:"event_id"`
	OrgID      string `json:"org_id"`
	UserID     string `json:"user_id"`
	BadgeID    string `json:"badge_id"`
	ReaderID   string `json:"reader_id"`
	Type       string `json:"type"`
	OccurredAt string `json:"occurred_at"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p PointageRecordedPayload) ToMap() map[string]any {
	payload := map[string]any{
		"event_id":    p.EventID,
		"org_id":      p.OrgID,
		"user_id":     p.UserID,
		"type":        p.Type,
		"occurred_at": p.OccurredAt,
	}
	if p.BadgeID != "" {
		payload["badge_id"] = p.BadgeID
	}
	if p.ReaderID != "" {
		payload["reader_id"] = p.ReaderID
	}
	return payload
}
