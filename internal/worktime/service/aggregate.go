// Package service implements the working-time engine: presence resolution
// and ledger aggregation.
package service

import (
	"fmt"
	"math"
	"time"

	badgedomain "github.com/pointagehq/pointage/internal/badge/domain"
	worktimedomain "github.com/pointagehq/pointage/internal/worktime/domain"
)

const (
	longDayHours     = 12.0
	shortDayHours    = 2.0
	maxEventsPerDay  = 10
	reportDateLayout = "2006-01-02"
)

// Aggregate replays a chronological event slice into a period summary. Days
// are cut in loc, the reporting timezone. The function is pure: same events,
// same summary.
func Aggregate(events []badgedomain.BadgeEvent, loc *time.Location, from, to time.Time) worktimedomain.WorkingTimeSummary {
	summary := worktimedomain.WorkingTimeSummary{
		From: from,
		To:   to,
	}

	var current *dayAccumulator
	flush := func() {
		if current == nil {
			return
		}
		day := current.finish()
		summary.Days = append(summary.Days, day)
		summary.TotalMinutes += day.TotalMinutes
		summary.Anomalies = append(summary.Anomalies, current.anomalies(day)...)
		current = nil
	}

	for _, event := range events {
		date := event.OccurredAt.In(loc).Format(reportDateLayout)
		if current == nil || current.date != date {
			flush()
			current = &dayAccumulator{date: date, loc: loc}
		}
		current.observe(event)
	}
	flush()

	summary.TotalHours = roundHours(summary.TotalMinutes)
	return summary
}

// dayAccumulator pairs one day's events. Pairing walks timestamp order: an
// entry opens a candidate session, the next exit closes it. A second entry
// discards the first unpaired; an exit with no open entry accrues nothing.
// Access events never participate in pairing.
type dayAccumulator struct {
	date string
	loc  *time.Location

	entries      []worktimedomain.DayEntry
	totalMinutes int64
	rawCount     int
	pendingEntry *time.Time
}

func (d *dayAccumulator) observe(event badgedomain.BadgeEvent) {
	local := event.OccurredAt.In(d.loc)
	d.entries = append(d.entries, worktimedomain.DayEntry{Time: local, Type: event.Type})
	d.rawCount++

	if !event.Type.CountsForPairing() {
		return
	}

	switch event.Type {
	case badgedomain.EventTypeEntry:
		// A still-open earlier entry is dropped unpaired.
		start := local
		d.pendingEntry = &start
	case badgedomain.EventTypeExit:
		if d.pendingEntry != nil {
			d.totalMinutes += MinutesBetween(*d.pendingEntry, local)
			d.pendingEntry = nil
		}
	}
}

func (d *dayAccumulator) finish() worktimedomain.DaySummary {
	return worktimedomain.DaySummary{
		Date:         d.date,
		Entries:      d.entries,
		TotalMinutes: d.totalMinutes,
		TotalHours:   roundHours(d.totalMinutes),
	}
}

func (d *dayAccumulator) anomalies(day worktimedomain.DaySummary) []worktimedomain.Anomaly {
	var anomalies []worktimedomain.Anomaly
	if day.TotalHours > longDayHours {
		anomalies = append(anomalies, worktimedomain.Anomaly{
			Date:   d.date,
			Kind:   worktimedomain.AnomalyLongDay,
			Detail: fmt.Sprintf("%.2f hours accrued", day.TotalHours),
		})
	}
	if day.TotalHours > 0 && day.TotalHours < shortDayHours {
		anomalies = append(anomalies, worktimedomain.Anomaly{
			Date:   d.date,
			Kind:   worktimedomain.AnomalyShortDay,
			Detail: fmt.Sprintf("%.2f hours accrued", day.TotalHours),
		})
	}
	// Parity is checked over every event recorded that day, access records
	// included, even though only entry/exit pairs accrue minutes.
	if d.rawCount%2 == 1 {
		anomalies = append(anomalies, worktimedomain.Anomaly{
			Date:   d.date,
			Kind:   worktimedomain.AnomalyIncompleteDay,
			Detail: fmt.Sprintf("%d events recorded", d.rawCount),
		})
	}
	if d.rawCount > maxEventsPerDay {
		anomalies = append(anomalies, worktimedomain.Anomaly{
			Date:   d.date,
			Kind:   worktimedomain.AnomalyTooManyBadges,
			Detail: fmt.Sprintf("%d badge events", d.rawCount),
		})
	}
	return anomalies
}

// MinutesBetween returns whole elapsed minutes, floored, never negative.
// Clock skew between readers can produce an exit before its entry; such
// pairs accrue zero rather than poisoning the total.
func MinutesBetween(start, end time.Time) int64 {
	if end.Before(start) {
		return 0
	}
	return int64(end.Sub(start) / time.Minute)
}

// OpenSessionStart returns the start of a still-open work session: the
// timestamp of the last event when that event is an entry.
func OpenSessionStart(events []badgedomain.BadgeEvent) *time.Time {
	for i := len(events) - 1; i >= 0; i-- {
		if !events[i].Type.CountsForPairing() {
			continue
		}
		if events[i].Type == badgedomain.EventTypeEntry {
			start := events[i].OccurredAt
			return &start
		}
		return nil
	}
	return nil
}

func roundHours(minutes int64) float64 {
	return math.Round(float64(minutes)/60.0*100) / 100
}
