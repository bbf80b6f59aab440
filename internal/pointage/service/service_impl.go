// Package service implements the action resolver. Record is the only write
// path into the badge_events ledger.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/config"
	"github.com/pointagehq/pointage/internal/events"
	"github.com/pointagehq/pointage/internal/observability/metrics"
	"github.com/pointagehq/pointage/internal/orgcontext"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	"github.com/pointagehq/pointage/internal/pointage/domain"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	DB       *gorm.DB
	GenID    *snowflake.Node
	Badges   badgedomain.Repository
	Events   badgedomain.EventRepository
	Topology topodomain.Service
	Orgs     organizationdomain.Repository
	Worktime worktimedomain.Service
	Outbox   *events.Outbox
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	cfg      config.Config
	db       *gorm.DB
	genID    *snowflake.Node
	badges   badgedomain.Repository
	events   badgedomain.EventRepository
	topology topodomain.Service
	orgs     organizationdomain.Repository
	worktime worktimedomain.Service
	outbox   *events.Outbox

	locOnce sync.Once
	loc     *time.Location
	locErr  error
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("pointage.service"),
		clock:    p.Clock,
		cfg:      p.Cfg,
		db:       p.DB,
		genID:    p.GenID,
		badges:   p.Badges,
		events:   p.Events,
		topology: p.Topology,
		orgs:     p.Orgs,
		worktime: p.Worktime,
		outbox:   p.Outbox,
	}
}

func (s *Service) location() (*time.Location, error) {
	s.locOnce.Do(func() {
		s.loc, s.locErr = s.cfg.ReportingLocation()
	})
	if s.locErr != nil {
		return nil, worktimedomain.ErrInvalidTimezone
	}
	return s.loc, nil
}

// Record validates a badge presentation, decides the action, and appends one
// immutable event. Concurrent scans of the same badge serialize on the
// assignment row inside the transaction.
func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.Result, error) {
	readerID, err := s.resolveReaderID(ctx, req.ReaderID)
	if err != nil {
		return nil, err
	}

	reader, err := s.topology.ReaderByID(ctx, readerID)
	if err != nil {
		return nil, err
	}

	badge, err := s.badges.FindBySerial(ctx, req.BadgeSerial)
	if err != nil {
		return nil, err
	}

	// Cross-organisation presentations are refused outright; Force does not
	// soften this one.
	if badge.OrgID != reader.OrgID {
		metrics.Pointage().IncDenied("access_denied")
		return nil, domain.ErrAccessDenied
	}

	now := s.clock.Now()
	start := time.Now()

	var (
		result domain.Result
		userID snowflake.ID
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		assignment, err := s.badges.ActiveAssignment(ctx, tx, badge.ID, now, true)
		if err != nil {
			return err
		}
		if assignment == nil {
			metrics.Pointage().IncDenied("access_denied")
			return badgedomain.ErrNoActiveBadge
		}
		userID = assignment.UserID

		user, err := s.orgs.FindUser(ctx, assignment.UserID)
		if err != nil {
			return err
		}
		if !user.Active() {
			metrics.Pointage().IncDenied("deactivated")
			return domain.ErrAccountDeactivated
		}
		if user.OrgID != reader.OrgID {
			metrics.Pointage().IncDenied("access_denied")
			return domain.ErrAccessDenied
		}

		zones, err := s.topology.ZonesReachableVia(ctx, reader.ID)
		if err != nil {
			return err
		}
		if len(zones) == 0 {
			return topodomain.ErrNoZones
		}

		if !req.Force {
			granted, err := s.topology.UserHasActiveGrant(ctx, user.ID, zones, now)
			if err != nil {
				return err
			}
			if !granted {
				metrics.Pointage().IncDenied("zone_denied")
				return domain.ErrZoneAccessDenied
			}
		}

		if !req.Force {
			previous, err := s.events.LastForUser(ctx, user.ID, now)
			if err != nil {
				return err
			}
			if previous != nil {
				delta := now.Sub(previous.OccurredAt)
				if delta >= 0 && delta < s.cfg.CooldownWindow {
					if delta <= s.cfg.CooldownGrace || s.cfg.CooldownPolicy == config.CooldownPolicyIgnore {
						metrics.Pointage().IncCooldown("deduplicated")
						result = domain.Result{
							Event:     *previous,
							Duplicate: true,
							Warning:   "duplicate_scan_ignored",
						}
						return nil
					}
					metrics.Pointage().IncCooldown("rejected")
					return domain.ErrCooldownActive
				}
			}
		}

		status, err := s.presenceAt(ctx, user.ID, now)
		if err != nil {
			return err
		}

		action := domain.DecideAction(status, zones)
		// An entry anchors a work session in a principal zone; a reader
		// opening only secondary zones cannot clock an absent user in.
		if action == badgedomain.EventTypeEntry && !req.Force && !topodomain.AnyPrincipal(zones) {
			metrics.Pointage().IncDenied("no_principal")
			return topodomain.ErrNoPrincipalZone
		}
		zone := domain.PickZone(zones)

		event := &badgedomain.BadgeEvent{
			ID:         s.genID.Generate(),
			OrgID:      reader.OrgID,
			BadgeID:    badge.ID,
			UserID:     user.ID,
			ReaderID:   reader.ID,
			Type:       action,
			OccurredAt: now,
			CreatedAt:  now,
		}
		if zone != nil {
			event.ZoneID = zone.ID
		}
		if err := s.events.Append(ctx, tx, event); err != nil {
			return err
		}

		payload := events.PointageRecordedPayload{
			EventID:    event.ID.String(),
			OrgID:      event.OrgID.String(),
			UserID:     event.UserID.String(),
			BadgeID:    event.BadgeID.String(),
			ReaderID:   event.ReaderID.String(),
			Type:       string(event.Type),
			OccurredAt: event.OccurredAt.Format(time.RFC3339),
		}
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID:     event.OrgID,
			Type:      events.EventPointageRecorded,
			Payload:   payload.ToMap(),
			DedupeKey: event.ID.String(),
		}); err != nil {
			return err
		}

		result = domain.Result{Event: *event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Pointage().ObserveLedgerAppend(time.Since(start))
	if !result.Duplicate {
		metrics.Pointage().IncRecorded(string(result.Event.Type))
		s.log.Info("pointage recorded",
			zap.String("event_id", result.Event.ID.String()),
			zap.String("type", string(result.Event.Type)),
			zap.String("user_id", userID.String()),
			zap.String("reader", reader.Reference),
			zap.Bool("force", req.Force),
		)
	}

	status, err := s.worktime.StatusFor(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	result.NewStatus = status
	return &result, nil
}

func (s *Service) resolveReaderID(ctx context.Context, raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if deviceReader, ok := orgcontext.ReaderIDFromContext(ctx); ok {
			return snowflake.ID(deviceReader), nil
		}
		return 0, domain.ErrInvalidReader
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidReader
	}
	return id, nil
}

// presenceAt derives the presence state from today's pairing events in the
// reporting timezone. Access events never toggle presence.
func (s *Service) presenceAt(ctx context.Context, userID snowflake.ID, at time.Time) (worktimedomain.Status, error) {
	loc, err := s.location()
	if err != nil {
		return worktimedomain.StatusAbsent, err
	}
	local := at.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	todays, err := s.events.ListForUser(ctx, userID, dayStart, at)
	if err != nil {
		return worktimedomain.StatusAbsent, err
	}
	status := worktimedomain.StatusAbsent
	for _, event := range todays {
		if !event.Type.CountsForPairing() {
			continue
		}
		if event.Type == badgedomain.EventTypeEntry {
			status = worktimedomain.StatusPresent
		} else {
			status = worktimedomain.StatusAbsent
		}
	}
	return status, nil
}
