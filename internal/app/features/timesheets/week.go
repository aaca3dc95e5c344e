// internal/app/features/timesheets/week.go
package timesheets

import (
	"sort"
	"time"

	"github.com/dalemusser/tempohub/internal/domain/models"
)

// dateFormat is the wire format for week and day dates.
const dateFormat = "2006-01-02"

// weekStartFor returns the Monday 00:00 UTC of the week containing t.
func weekStartFor(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// buildWeek groups entries into the seven days starting at weekStart
// and sums minutes per day and for the week. Running entries are
// measured against now. Entries outside the week are ignored.
func buildWeek(weekStart time.Time, entries []models.TimeEntry, now time.Time) ([]dayView, int) {
	days := make([]dayView, 7)
	for i := range days {
		days[i].Date = weekStart.AddDate(0, 0, i).Format(dateFormat)
	}

	weekEnd := weekStart.AddDate(0, 0, 7)
	total := 0
	for _, e := range entries {
		started := e.StartedAt.UTC()
		if started.Before(weekStart) || !started.Before(weekEnd) {
			continue
		}
		i := int(started.Sub(weekStart).Hours() / 24)
		mins := e.DurationMinutes(now)
		days[i].Entries = append(days[i].Entries, toEntrySummary(e, now))
		days[i].TotalMinutes += mins
		total += mins
	}

	for i := range days {
		sort.Slice(days[i].Entries, func(a, b int) bool {
			return days[i].Entries[a].StartedAt.Before(days[i].Entries[b].StartedAt)
		})
	}
	return days, total
}

// completedTotal sums whole minutes of completed entries only. This is
// the figure recorded at submission time; an open timer contributes
// nothing until it is stopped.
func completedTotal(entries []models.TimeEntry) int {
	total := 0
	for _, e := range entries {
		if e.Running() {
			continue
		}
		total += e.DurationMinutes(time.Time{})
	}
	return total
}

func hasRunning(entries []models.TimeEntry) bool {
	for _, e := range entries {
		if e.Running() {
			return true
		}
	}
	return false
}
