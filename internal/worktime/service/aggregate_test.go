package service

import (
	"testing"
	"time"

	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris = mustLocation("Europe/Paris")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(day string, hour, minute int) time.Time {
	date, err := time.ParseInLocation("2006-01-02", day, paris)
	if err != nil {
		panic(err)
	}
	return date.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func event(t time.Time, kind badgedomain.EventType) badgedomain.BadgeEvent {
	return badgedomain.BadgeEvent{UserID: 1, Type: kind, OccurredAt: t}
}

func aggregateDay(t *testing.T, events []badgedomain.BadgeEvent) worktimedomain.WorkingTimeSummary {
	t.Helper()
	return Aggregate(events, paris, at("2025-03-10", 0, 0), at("2025-03-10", 23, 59))
}

func TestAggregateAlternatingPairs(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 8, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 12, 0), badgedomain.EventTypeExit),
		event(at("2025-03-10", 13, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 17, 0), badgedomain.EventTypeExit),
	})

	require.Len(t, summary.Days, 1)
	assert.Equal(t, int64(480), summary.TotalMinutes)
	assert.Equal(t, 8.0, summary.TotalHours)
	assert.Empty(t, summary.Anomalies)
}

func TestAggregateLoneEntryAccruesNothing(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 8, 0), badgedomain.EventTypeEntry),
	})

	require.Len(t, summary.Days, 1)
	assert.Equal(t, int64(0), summary.TotalMinutes)
	require.Len(t, summary.Anomalies, 1)
	assert.Equal(t, worktimedomain.AnomalyIncompleteDay, summary.Anomalies[0].Kind)
}

func TestAggregateDoubleEntryDiscardsEarlier(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 8, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 9, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 17, 0), badgedomain.EventTypeExit),
	})

	assert.Equal(t, int64(480), summary.TotalMinutes)

	kinds := anomalyKinds(summary.Anomalies)
	assert.Contains(t, kinds, worktimedomain.AnomalyIncompleteDay)
}

func TestAggregateUnpairedExitIgnored(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 8, 0), badgedomain.EventTypeExit),
		event(at("2025-03-10", 9, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 12, 0), badgedomain.EventTypeExit),
	})

	assert.Equal(t, int64(180), summary.TotalMinutes)
	require.Len(t, summary.Days, 1)
	assert.Len(t, summary.Days[0].Entries, 3)
	assert.Contains(t, anomalyKinds(summary.Anomalies), worktimedomain.AnomalyIncompleteDay)
}

func TestAggregateLongDayFlagged(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 6, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 19, 0), badgedomain.EventTypeExit),
	})

	assert.Equal(t, 13.0, summary.TotalHours)
	assert.Equal(t, []worktimedomain.AnomalyKind{worktimedomain.AnomalyLongDay}, anomalyKinds(summary.Anomalies))
}

func TestAggregateShortDayFlagged(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 9, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 10, 0), badgedomain.EventTypeExit),
	})

	assert.Equal(t, 1.0, summary.TotalHours)
	assert.Equal(t, []worktimedomain.AnomalyKind{worktimedomain.AnomalyShortDay}, anomalyKinds(summary.Anomalies))
}

func TestAggregateTooManyBadgesFlagged(t *testing.T) {
	var events []badgedomain.BadgeEvent
	for i := 0; i < 11; i++ {
		kind := badgedomain.EventTypeEntry
		if i%2 == 1 {
			kind = badgedomain.EventTypeExit
		}
		events = append(events, event(at("2025-03-10", 8, i*5), kind))
	}

	summary := aggregateDay(t, events)
	assert.Contains(t, anomalyKinds(summary.Anomalies), worktimedomain.AnomalyTooManyBadges)
	// 11 raw events is also an odd count.
	assert.Contains(t, anomalyKinds(summary.Anomalies), worktimedomain.AnomalyIncompleteDay)
}

func TestAggregateAccessEventsExcludedFromPairing(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 8, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 10, 0), badgedomain.EventTypeAccess),
		event(at("2025-03-10", 12, 0), badgedomain.EventTypeExit),
	})

	// The access record accrues nothing but still counts in the day's raw
	// entries, so three events leave an odd total.
	assert.Equal(t, int64(240), summary.TotalMinutes)
	require.Len(t, summary.Days, 1)
	assert.Len(t, summary.Days[0].Entries, 3)
	assert.Contains(t, anomalyKinds(summary.Anomalies), worktimedomain.AnomalyIncompleteDay)
}

func TestAggregateEvenRawCountNotFlagged(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 8, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 10, 0), badgedomain.EventTypeAccess),
		event(at("2025-03-10", 11, 0), badgedomain.EventTypeAccess),
		event(at("2025-03-10", 12, 0), badgedomain.EventTypeExit),
	})

	assert.Equal(t, int64(240), summary.TotalMinutes)
	assert.NotContains(t, anomalyKinds(summary.Anomalies), worktimedomain.AnomalyIncompleteDay)
}

func TestAggregateClockSkewClampsToZero(t *testing.T) {
	summary := aggregateDay(t, []badgedomain.BadgeEvent{
		event(at("2025-03-10", 9, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 8, 59), badgedomain.EventTypeExit),
	})

	assert.Equal(t, int64(0), summary.TotalMinutes)
}

func TestAggregateGroupsDaysInReportingZone(t *testing.T) {
	// 23:30 UTC on March 10 is already March 11 in Paris.
	utcEvening := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	summary := Aggregate([]badgedomain.BadgeEvent{
		event(utcEvening, badgedomain.EventTypeEntry),
		event(utcEvening.Add(2*time.Hour), badgedomain.EventTypeExit),
	}, paris, utcEvening.Add(-time.Hour), utcEvening.Add(3*time.Hour))

	require.Len(t, summary.Days, 1)
	assert.Equal(t, "2025-03-11", summary.Days[0].Date)
	assert.Equal(t, int64(120), summary.TotalMinutes)
}

func TestAggregateMultiDayTotals(t *testing.T) {
	events := []badgedomain.BadgeEvent{
		event(at("2025-03-10", 8, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 16, 0), badgedomain.EventTypeExit),
		event(at("2025-03-11", 9, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-11", 18, 30), badgedomain.EventTypeExit),
	}
	summary := Aggregate(events, paris, at("2025-03-10", 0, 0), at("2025-03-11", 23, 59))

	require.Len(t, summary.Days, 2)
	assert.Equal(t, int64(480), summary.Days[0].TotalMinutes)
	assert.Equal(t, int64(570), summary.Days[1].TotalMinutes)
	assert.Equal(t, int64(1050), summary.TotalMinutes)
	assert.Equal(t, 17.5, summary.TotalHours)
}

func TestAggregateMonotonicMinutes(t *testing.T) {
	events := []badgedomain.BadgeEvent{
		event(at("2025-03-10", 8, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-10", 12, 0), badgedomain.EventTypeExit),
		event(at("2025-03-11", 8, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-11", 12, 0), badgedomain.EventTypeExit),
		event(at("2025-03-12", 8, 0), badgedomain.EventTypeEntry),
		event(at("2025-03-12", 12, 0), badgedomain.EventTypeExit),
	}

	from := at("2025-03-10", 0, 0)
	var previous int64
	for day := 10; day <= 12; day++ {
		to := time.Date(2025, 3, day, 23, 59, 59, 0, paris)
		var visible []badgedomain.BadgeEvent
		for _, e := range events {
			if !e.OccurredAt.After(to) {
				visible = append(visible, e)
			}
		}
		summary := Aggregate(visible, paris, from, to)
		require.GreaterOrEqual(t, summary.TotalMinutes, previous)
		require.GreaterOrEqual(t, summary.TotalMinutes, int64(0))
		previous = summary.TotalMinutes
	}
}

func TestMinutesBetweenFloors(t *testing.T) {
	start := at("2025-03-10", 8, 0)
	assert.Equal(t, int64(0), MinutesBetween(start, start.Add(59*time.Second)))
	assert.Equal(t, int64(1), MinutesBetween(start, start.Add(119*time.Second)))
	assert.Equal(t, int64(0), MinutesBetween(start, start.Add(-time.Minute)))
}

func TestOpenSessionStart(t *testing.T) {
	entry := event(at("2025-03-10", 8, 0), badgedomain.EventTypeEntry)

	start := OpenSessionStart([]badgedomain.BadgeEvent{entry})
	require.NotNil(t, start)
	assert.True(t, start.Equal(entry.OccurredAt))

	// An access event after the entry does not close the session.
	start = OpenSessionStart([]badgedomain.BadgeEvent{
		entry,
		event(at("2025-03-10", 10, 0), badgedomain.EventTypeAccess),
	})
	require.NotNil(t, start)

	// An exit does.
	start = OpenSessionStart([]badgedomain.BadgeEvent{
		entry,
		event(at("2025-03-10", 12, 0), badgedomain.EventTypeExit),
	})
	assert.Nil(t, start)
}

func anomalyKinds(anomalies []worktimedomain.Anomaly) []worktimedomain.AnomalyKind {
	kinds := make([]worktimedomain.AnomalyKind, 0, len(anomalies))
	for _, anomaly := range anomalies {
		kinds = append(kinds, anomaly.Kind)
	}
	return kinds
}
