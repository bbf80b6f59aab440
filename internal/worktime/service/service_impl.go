package service

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	"github.com/pointagehq/pointage/internal/clock"
	"github.com/pointagehq/pointage/internal/config"
	"github.com/pointagehq/pointage/internal/orgcontext"
	organizationdomain "github.com/pointagehq/pointage/internal/organization/domain"
	topologydomain "github.com/pointagehq/pointage/internal/topology/domain"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Cfg       config.Config
	EventRepo badgedomain.EventRepository
	TopoRepo  topologydomain.Repository
	UserRepo  organizationdomain.Repository
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	cfg       config.Config
	eventRepo badgedomain.EventRepository
	topoRepo  topologydomain.Repository
	userRepo  organizationdomain.Repository

	locOnce sync.Once
	loc     *time.Location
	locErr  error
}

func NewService(p Params) worktimedomain.Service {
	return &Service{
		log:       p.Log.Named("worktime.service"),
		clock:     p.Clock,
		cfg:       p.Cfg,
		eventRepo: p.EventRepo,
		topoRepo:  p.TopoRepo,
		userRepo:  p.UserRepo,
	}
}

// location resolves the reporting timezone once. Grouping days in the wrong
// zone shifts midnight boundaries, so a bad configuration is a hard error
// rather than a silent fallback to server time.
func (s *Service) location() (*time.Location, error) {
	s.locOnce.Do(func() {
		s.loc, s.locErr = s.cfg.ReportingLocation()
	})
	if s.locErr != nil {
		return nil, worktimedomain.ErrInvalidTimezone
	}
	return s.loc, nil
}

func (s *Service) StatusFor(ctx context.Context, userID snowflake.ID, asOf time.Time) (worktimedomain.UserWorkingStatus, error) {
	if userID == 0 {
		return worktimedomain.UserWorkingStatus{}, worktimedomain.ErrInvalidUser
	}
	loc, err := s.location()
	if err != nil {
		return worktimedomain.UserWorkingStatus{}, err
	}
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}

	local := asOf.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	events, err := s.eventRepo.ListForUser(ctx, userID, dayStart, asOf)
	if err != nil {
		return worktimedomain.UserWorkingStatus{}, err
	}

	status := worktimedomain.UserWorkingStatus{
		UserID: userID.String(),
		Status: worktimedomain.StatusAbsent,
		AsOf:   asOf,
	}
	if len(events) == 0 {
		return status, nil
	}

	summary := Aggregate(events, loc, dayStart, asOf)
	status.MinutesWorkedToday = summary.TotalMinutes

	if start := OpenSessionStart(events); start != nil {
		status.Status = worktimedomain.StatusPresent
		status.CurrentSessionStart = start
		status.MinutesWorkedToday += MinutesBetween(*start, asOf)
	}

	last := events[len(events)-1]
	lastEvent, err := s.describeEvent(ctx, last)
	if err != nil {
		return worktimedomain.UserWorkingStatus{}, err
	}
	status.LastEvent = lastEvent

	if status.Status == worktimedomain.StatusPresent {
		status.CanAccessSecondary = s.sessionAnchoredInPrincipal(ctx, events)
	}
	return status, nil
}

// sessionAnchoredInPrincipal reports whether the open session's entry event
// went through a principal zone.
func (s *Service) sessionAnchoredInPrincipal(ctx context.Context, events []badgedomain.BadgeEvent) bool {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type != badgedomain.EventTypeEntry {
			continue
		}
		if events[i].ZoneID == 0 {
			return false
		}
		zone, err := s.topoRepo.FindZone(ctx, events[i].ZoneID)
		if err != nil {
			return false
		}
		return zone.IsPrincipal
	}
	return false
}

func (s *Service) describeEvent(ctx context.Context, event badgedomain.BadgeEvent) (*worktimedomain.LastEvent, error) {
	described := &worktimedomain.LastEvent{
		Type:       event.Type,
		OccurredAt: event.OccurredAt,
	}
	if reader, err := s.topoRepo.FindReader(ctx, event.ReaderID); err == nil {
		described.ReaderReference = reader.Reference
	}
	if event.ZoneID != 0 {
		if zone, err := s.topoRepo.FindZone(ctx, event.ZoneID); err == nil {
			described.ZoneName = zone.Name
			described.ZonePrincipal = zone.IsPrincipal
		}
	}
	return described, nil
}

func (s *Service) RangeSummary(ctx context.Context, userID snowflake.ID, from, to time.Time) (worktimedomain.WorkingTimeSummary, error) {
	if userID == 0 {
		return worktimedomain.WorkingTimeSummary{}, worktimedomain.ErrInvalidUser
	}
	loc, err := s.location()
	if err != nil {
		return worktimedomain.WorkingTimeSummary{}, err
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return worktimedomain.WorkingTimeSummary{}, worktimedomain.ErrInvalidRange
	}

	end := endOfDay(to, loc)
	events, err := s.eventRepo.ListForUser(ctx, userID, from, end)
	if err != nil {
		return worktimedomain.WorkingTimeSummary{}, err
	}
	return Aggregate(events, loc, from, end), nil
}

func (s *Service) WeeklySummary(ctx context.Context, userID snowflake.ID, day time.Time) (worktimedomain.WorkingTimeSummary, error) {
	loc, err := s.location()
	if err != nil {
		return worktimedomain.WorkingTimeSummary{}, err
	}
	if day.IsZero() {
		day = s.clock.Now()
	}
	monday := startOfISOWeek(day.In(loc))
	return s.RangeSummary(ctx, userID, monday, monday.AddDate(0, 0, 6))
}

func (s *Service) MonthlySummary(ctx context.Context, userID snowflake.ID, year int, month time.Month) (worktimedomain.MonthlySummary, error) {
	loc, err := s.location()
	if err != nil {
		return worktimedomain.MonthlySummary{}, err
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	summary, err := s.RangeSummary(ctx, userID, first, last)
	if err != nil {
		return worktimedomain.MonthlySummary{}, err
	}

	monthly := worktimedomain.MonthlySummary{WorkingTimeSummary: summary}
	weekIndex := map[[2]int]int{}
	for _, day := range summary.Days {
		date, err := time.ParseInLocation(reportDateLayout, day.Date, loc)
		if err != nil {
			continue
		}
		isoYear, isoWeek := date.ISOWeek()
		key := [2]int{isoYear, isoWeek}
		idx, ok := weekIndex[key]
		if !ok {
			idx = len(monthly.Weeks)
			weekIndex[key] = idx
			monthly.Weeks = append(monthly.Weeks, worktimedomain.WeekSubtotal{ISOYear: isoYear, ISOWeek: isoWeek})
		}
		monthly.Weeks[idx].TotalMinutes += day.TotalMinutes

		if day.TotalHours > 0 {
			if monthly.MinDailyHours == 0 || day.TotalHours < monthly.MinDailyHours {
				monthly.MinDailyHours = day.TotalHours
			}
			if day.TotalHours > monthly.MaxDailyHours {
				monthly.MaxDailyHours = day.TotalHours
			}
		}
	}
	for i := range monthly.Weeks {
		monthly.Weeks[i].TotalHours = roundHours(monthly.Weeks[i].TotalMinutes)
	}
	return monthly, nil
}

func (s *Service) OrgSummary(ctx context.Context, from, to time.Time) (worktimedomain.OrgSummary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return worktimedomain.OrgSummary{}, worktimedomain.ErrInvalidUser
	}

	users, err := s.userRepo.ListUsersByOrg(ctx, snowflake.ID(orgID))
	if err != nil {
		return worktimedomain.OrgSummary{}, err
	}

	report := worktimedomain.OrgSummary{From: from, To: to}
	for _, user := range users {
		summary, err := s.RangeSummary(ctx, user.ID, from, to)
		if err != nil {
			return worktimedomain.OrgSummary{}, err
		}
		report.Users = append(report.Users, worktimedomain.UserPeriodSummary{
			UserID:      user.ID.String(),
			DisplayName: user.DisplayName,
			Summary:     summary,
		})
	}
	return report, nil
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
}

func startOfISOWeek(local time.Time) time.Time {
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := local.AddDate(0, 0, 1-weekday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, local.Location())
}
