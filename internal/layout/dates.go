package layout

import (
	"time"

	"printcal/internal/model"
)

// GeneratePageDates returns count page anchors starting from start.
//
// Monthly anchors are the first day of start's month advanced by i months.
// Weekly anchors are start's calendar day advanced by i weeks. Anchors are
// midnight in start's location.
func GeneratePageDates(start time.Time, count int, mode model.ViewMode) []time.Time {
	if count <= 0 {
		return []time.Time{}
	}

	out := make([]time.Time, count)
	for i := range count {
		if mode == model.ViewWeekly {
			out[i] = startOfDay(start).AddDate(0, 0, 7*i)
		} else {
			out[i] = time.Date(start.Year(), start.Month()+time.Month(i), 1, 0, 0, 0, 0, start.Location())
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	// Day 0 of next month normalizes to the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time, ws model.WeekStart) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) - int(ws.Weekday()) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

func endOfWeek(t time.Time, ws model.WeekStart) time.Time {
	return startOfWeek(t, ws).AddDate(0, 0, 6)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// WeekdayLabels returns abbreviated weekday names in row order for ws.
func WeekdayLabels(ws model.WeekStart) []string {
	first := int(ws.Weekday())
	out := make([]string, 7)
	for i := range out {
		out[i] = time.Weekday((first + i) % 7).String()[:3]
	}
	return out
}
