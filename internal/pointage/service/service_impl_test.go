package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	badgerepository "github.com/pointagehq/pointage/internal/badge/repository"
	"github.com/pointagehq/pointage/internal/config"
	"github.com/pointagehq/pointage/internal/events"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	organizationrepository "github.com/pointagehq/pointage/internal/organization/repository"
	"github.com/pointagehq/pointage/internal/pointage/domain"
	topodomain "github.com/pointagehq/pointage/internal/topology/domain"
	toporepository "github.com/pointagehq/pointage/internal/topology/repository"
	toposervice "github.com/pointagehq/pointage/internal/topology/service"
	worktimeservice "github.com/pointagehq/pointage/internal/worktime/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stepClock is a mutable clock so tests can walk through a day.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time          { return c.now }
func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type stack struct {
	db      *gorm.DB
	clock   *stepClock
	node    *snowflake.Node
	service domain.Service

	org       organizationdomain.Organisation
	otherOrg  organizationdomain.Organisation
	user      organizationdomain.User
	badge     badgedomain.Badge
	principal topodomain.Zone
	secondary topodomain.Zone
	mainDoor  topodomain.Reader
	sideDoor  topodomain.Reader
	otherDoor topodomain.Reader
}

var stackSeq int

func newStack(t *testing.T, cfg config.Config) *stack {
	t.Helper()

	stackSeq++
	dsn := fmt.Sprintf("file:pointage_resolver_%d?mode=memory&cache=shared", stackSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&organizationdomain.Organisation{},
		&organizationdomain.User{},
		&badgedomain.Badge{},
		&badgedomain.BadgeAssignment{},
		&badgedomain.BadgeEvent{},
		&topodomain.Zone{},
		&topodomain.Reader{},
		&topodomain.ReaderZone{},
		&topodomain.AccessGrant{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(`CREATE TABLE pointage_events (
		id INTEGER PRIMARY KEY,
		org_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT,
		dedupe_key TEXT,
		published BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create outbox table: %v", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX ux_pointage_events_dedupe ON pointage_events (org_id, dedupe_key)`).Error; err != nil {
		t.Fatalf("create outbox index: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := &stepClock{now: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)}
	log := zap.NewNop()

	if cfg.ReportingTimezone == "" {
		cfg.ReportingTimezone = "Europe/Paris"
	}
	if cfg.CooldownWindow == 0 {
		cfg.CooldownWindow = 2 * time.Minute
	}
	if cfg.CooldownGrace == 0 {
		cfg.CooldownGrace = 30 * time.Second
	}
	if cfg.CooldownPolicy == "" {
		cfg.CooldownPolicy = config.CooldownPolicyReject
	}

	badges := badgerepository.Provide(db)
	badgeEvents := badgerepository.ProvideEvents(db)
	topoRepo := toporepository.Provide(db)
	orgRepo := organizationrepository.Provide(db)
	topo := toposervice.NewService(toposervice.Params{Log: log, GenID: node, Clock: clk, Repo: topoRepo})
	worktime := worktimeservice.NewService(worktimeservice.Params{
		Log: log, Clock: clk, Cfg: cfg,
		EventRepo: badgeEvents, TopoRepo: topoRepo, UserRepo: orgRepo,
	})

	svc := NewService(Params{
		Log: log, Clock: clk, Cfg: cfg, DB: db, GenID: node,
		Badges: badges, Events: badgeEvents, Topology: topo,
		Orgs: orgRepo, Worktime: worktime,
		Outbox: events.NewOutbox(db, node),
	})

	s := &stack{db: db, clock: clk, node: node, service: svc}
	s.seed(t)
	return s
}

func (s *stack) seed(t *testing.T) {
	t.Helper()
	past := s.clock.now.Add(-24 * time.Hour)

	s.org = organizationdomain.Organisation{ID: s.node.Generate(), Name: "Acme", Slug: "acme", TimezoneName: "Europe/Paris"}
	s.otherOrg = organizationdomain.Organisation{ID: s.node.Generate(), Name: "Globex", Slug: "globex", TimezoneName: "Europe/Paris"}
	s.user = organizationdomain.User{ID: s.node.Generate(), OrgID: s.org.ID, Email: "marie@acme.test", DisplayName: "Marie", Role: organizationdomain.RoleMember}
	s.badge = badgedomain.Badge{ID: s.node.Generate(), OrgID: s.org.ID, Serial: "BDG-0001"}
	s.principal = topodomain.Zone{ID: s.node.Generate(), OrgID: s.org.ID, Name: "Site principal", IsPrincipal: true}
	s.secondary = topodomain.Zone{ID: s.node.Generate(), OrgID: s.org.ID, Name: "Atelier"}
	s.mainDoor = topodomain.Reader{ID: s.node.Generate(), OrgID: s.org.ID, Reference: "RDR-MAIN", InstalledAt: past}
	s.sideDoor = topodomain.Reader{ID: s.node.Generate(), OrgID: s.org.ID, Reference: "RDR-SIDE", InstalledAt: past}
	s.otherDoor = topodomain.Reader{ID: s.node.Generate(), OrgID: s.otherOrg.ID, Reference: "RDR-OTHER", InstalledAt: past}

	for _, row := range []any{
		&s.org, &s.otherOrg, &s.user, &s.badge,
		&s.principal, &s.secondary, &s.mainDoor, &s.sideDoor, &s.otherDoor,
		&badgedomain.BadgeAssignment{ID: s.node.Generate(), OrgID: s.org.ID, BadgeID: s.badge.ID, UserID: s.user.ID, StartsAt: past},
		&topodomain.ReaderZone{ID: s.node.Generate(), ReaderID: s.mainDoor.ID, ZoneID: s.principal.ID},
		&topodomain.ReaderZone{ID: s.node.Generate(), ReaderID: s.sideDoor.ID, ZoneID: s.secondary.ID},
		&topodomain.AccessGrant{ID: s.node.Generate(), OrgID: s.org.ID, UserID: s.user.ID, ZoneID: s.principal.ID, StartsAt: past},
		&topodomain.AccessGrant{ID: s.node.Generate(), OrgID: s.org.ID, UserID: s.user.ID, ZoneID: s.secondary.ID, StartsAt: past},
	} {
		if err := s.db.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func (s *stack) record(t *testing.T, readerID snowflake.ID, force bool) *domain.Result {
	t.Helper()
	result, err := s.service.Record(context.Background(), domain.RecordRequest{
		BadgeSerial: s.badge.Serial,
		ReaderID:    readerID.String(),
		Force:       force,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return result
}

func TestRecordTogglesEntryThenExit(t *testing.T) {
	s := newStack(t, config.Config{})

	first := s.record(t, s.mainDoor.ID, false)
	if first.Event.Type != badgedomain.EventTypeEntry {
		t.Fatalf("expected entry, got %s", first.Event.Type)
	}
	if first.NewStatus.Status != "present" {
		t.Fatalf("expected present after entry, got %s", first.NewStatus.Status)
	}

	s.clock.Advance(4 * time.Hour)
	second := s.record(t, s.mainDoor.ID, false)
	if second.Event.Type != badgedomain.EventTypeExit {
		t.Fatalf("expected exit, got %s", second.Event.Type)
	}
	if second.NewStatus.Status != "absent" {
		t.Fatalf("expected absent after exit, got %s", second.NewStatus.Status)
	}
	if second.NewStatus.MinutesWorkedToday != 240 {
		t.Fatalf("expected 240 minutes, got %d", second.NewStatus.MinutesWorkedToday)
	}
}

func TestRecordSecondaryReaderProducesAccess(t *testing.T) {
	s := newStack(t, config.Config{})

	s.record(t, s.mainDoor.ID, false)
	s.clock.Advance(30 * time.Minute)

	result := s.record(t, s.sideDoor.ID, false)
	if result.Event.Type != badgedomain.EventTypeAccess {
		t.Fatalf("expected acces, got %s", result.Event.Type)
	}
	if result.NewStatus.Status != "present" {
		t.Fatalf("access must not toggle presence, got %s", result.NewStatus.Status)
	}
	if result.Event.ZoneID != s.secondary.ID {
		t.Fatalf("expected event anchored in secondary zone")
	}
}

func TestRecordDuplicateWithinGraceIsNoOp(t *testing.T) {
	s := newStack(t, config.Config{})

	first := s.record(t, s.mainDoor.ID, false)
	s.clock.Advance(10 * time.Second)

	dup := s.record(t, s.mainDoor.ID, false)
	if !dup.Duplicate {
		t.Fatalf("expected duplicate no-op")
	}
	if dup.Event.ID != first.Event.ID {
		t.Fatalf("duplicate must return the previous event")
	}
	if dup.Warning == "" {
		t.Fatalf("duplicate must carry a warning")
	}

	var count int64
	s.db.Model(&badgedomain.BadgeEvent{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 ledger event, got %d", count)
	}
}

func TestRecordCooldownRejectsOutsideGrace(t *testing.T) {
	s := newStack(t, config.Config{CooldownPolicy: config.CooldownPolicyReject})

	s.record(t, s.mainDoor.ID, false)
	s.clock.Advance(1 * time.Minute)

	_, err := s.service.Record(context.Background(), domain.RecordRequest{
		BadgeSerial: s.badge.Serial,
		ReaderID:    s.mainDoor.ID.String(),
	})
	if !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
}

func TestRecordCooldownIgnorePolicyDeduplicates(t *testing.T) {
	s := newStack(t, config.Config{CooldownPolicy: config.CooldownPolicyIgnore})

	s.record(t, s.mainDoor.ID, false)
	s.clock.Advance(1 * time.Minute)

	dup := s.record(t, s.mainDoor.ID, false)
	if !dup.Duplicate {
		t.Fatalf("ignore policy must deduplicate inside the window")
	}
}

func TestRecordForceBypassesCooldown(t *testing.T) {
	s := newStack(t, config.Config{})

	s.record(t, s.mainDoor.ID, false)
	s.clock.Advance(1 * time.Minute)

	result := s.record(t, s.mainDoor.ID, true)
	if result.Duplicate {
		t.Fatalf("force must append a new event")
	}
	if result.Event.Type != badgedomain.EventTypeExit {
		t.Fatalf("expected exit, got %s", result.Event.Type)
	}
}

func TestRecordRejectsCrossOrgEvenWithForce(t *testing.T) {
	s := newStack(t, config.Config{})

	for _, force := range []bool{false, true} {
		_, err := s.service.Record(context.Background(), domain.RecordRequest{
			BadgeSerial: s.badge.Serial,
			ReaderID:    s.otherDoor.ID.String(),
			Force:       force,
		})
		if !errors.Is(err, domain.ErrAccessDenied) {
			t.Fatalf("force=%v: expected ErrAccessDenied, got %v", force, err)
		}
	}
}

func TestRecordWithoutGrantDeniedUnlessForced(t *testing.T) {
	s := newStack(t, config.Config{})
	if err := s.db.Where("user_id = ?", s.user.ID).Delete(&topodomain.AccessGrant{}).Error; err != nil {
		t.Fatalf("delete grants: %v", err)
	}

	_, err := s.service.Record(context.Background(), domain.RecordRequest{
		BadgeSerial: s.badge.Serial,
		ReaderID:    s.mainDoor.ID.String(),
	})
	if !errors.Is(err, domain.ErrZoneAccessDenied) {
		t.Fatalf("expected ErrZoneAccessDenied, got %v", err)
	}

	result := s.record(t, s.mainDoor.ID, true)
	if result.Event.Type != badgedomain.EventTypeEntry {
		t.Fatalf("forced scan must record entry, got %s", result.Event.Type)
	}
}

func TestRecordDeactivatedUserDenied(t *testing.T) {
	s := newStack(t, config.Config{})
	now := s.clock.Now()
	if err := s.db.Model(&organizationdomain.User{}).Where("id = ?", s.user.ID).Update("deactivated_at", now).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := s.service.Record(context.Background(), domain.RecordRequest{
		BadgeSerial: s.badge.Serial,
		ReaderID:    s.mainDoor.ID.String(),
	})
	if !errors.Is(err, domain.ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
}

func TestRecordUnassignedBadgeDenied(t *testing.T) {
	s := newStack(t, config.Config{})
	if err := s.db.Where("badge_id = ?", s.badge.ID).Delete(&badgedomain.BadgeAssignment{}).Error; err != nil {
		t.Fatalf("delete assignment: %v", err)
	}

	_, err := s.service.Record(context.Background(), domain.RecordRequest{
		BadgeSerial: s.badge.Serial,
		ReaderID:    s.mainDoor.ID.String(),
	})
	if !errors.Is(err, badgedomain.ErrNoActiveBadge) {
		t.Fatalf("expected ErrNoActiveBadge, got %v", err)
	}
}

func TestRecordUnknownSerial(t *testing.T) {
	s := newStack(t, config.Config{})

	_, err := s.service.Record(context.Background(), domain.RecordRequest{
		BadgeSerial: "BDG-NOPE",
		ReaderID:    s.mainDoor.ID.String(),
	})
	if !errors.Is(err, badgedomain.ErrBadgeNotFound) {
		t.Fatalf("expected ErrBadgeNotFound, got %v", err)
	}
}

func TestRecordBlockedReaderDenied(t *testing.T) {
	s := newStack(t, config.Config{})
	if err := s.db.Model(&topodomain.Reader{}).Where("id = ?", s.mainDoor.ID).Update("blocked", true).Error; err != nil {
		t.Fatalf("block reader: %v", err)
	}

	_, err := s.service.Record(context.Background(), domain.RecordRequest{
		BadgeSerial: s.badge.Serial,
		ReaderID:    s.mainDoor.ID.String(),
	})
	if !errors.Is(err, topodomain.ErrReaderBlocked) {
		t.Fatalf("expected ErrReaderBlocked, got %v", err)
	}
}

func TestRecordWritesOutboxRow(t *testing.T) {
	s := newStack(t, config.Config{})
	result := s.record(t, s.mainDoor.ID, false)

	var count int64
	s.db.Table("pointage_events").Where("dedupe_key = ?", result.Event.ID.String()).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 outbox row, got %d", count)
	}
}

func TestDecideAction(t *testing.T) {
	principal := []topodomain.Zone{{IsPrincipal: true}}
	secondary := []topodomain.Zone{{IsPrincipal: false}}

	if got := domain.DecideAction("absent", principal); got != badgedomain.EventTypeEntry {
		t.Fatalf("absent+principal: got %s", got)
	}
	if got := domain.DecideAction("present", principal); got != badgedomain.EventTypeExit {
		t.Fatalf("present+principal: got %s", got)
	}
	if got := domain.DecideAction("present", secondary); got != badgedomain.EventTypeAccess {
		t.Fatalf("present+secondary: got %s", got)
	}
	// Absence always resolves to entry; the zone check only applies to a
	// present holder.
	if got := domain.DecideAction("absent", secondary); got != badgedomain.EventTypeEntry {
		t.Fatalf("absent+secondary: got %s", got)
	}
}

func TestRecordAbsentAtSecondaryReaderNeedsPrincipalZone(t *testing.T) {
	s := newStack(t, config.Config{})

	// The decided action is an entry, but the side door opens no principal
	// zone to anchor the session in.
	_, err := s.service.Record(context.Background(), domain.RecordRequest{
		BadgeSerial: s.badge.Serial,
		ReaderID:    s.sideDoor.ID.String(),
	})
	if !errors.Is(err, topodomain.ErrNoPrincipalZone) {
		t.Fatalf("expected ErrNoPrincipalZone, got %v", err)
	}

	var count int64
	s.db.Model(&badgedomain.BadgeEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("refused scan must not append to the ledger, got %d events", count)
	}

	result := s.record(t, s.sideDoor.ID, true)
	if result.Event.Type != badgedomain.EventTypeEntry {
		t.Fatalf("forced scan must record entry, got %s", result.Event.Type)
	}
	if result.NewStatus.Status != "present" {
		t.Fatalf("expected present after forced entry, got %s", result.NewStatus.Status)
	}
	if result.Event.ZoneID != s.secondary.ID {
		t.Fatalf("forced entry must anchor in the reachable zone")
	}
}
