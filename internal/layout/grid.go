package layout

import (
	"time"

	"printcal/internal/model"
)

// BuildMonthGrid lays out the month containing anchor, padded with days of
// the adjacent months to whole weeks. The result has 4, 5 or 6 rows of 7.
func BuildMonthGrid(anchor time.Time, ws model.WeekStart) GridLayout {
	monthStart := startOfMonth(anchor)
	monthEnd := endOfMonth(anchor)
	gridStart := startOfWeek(monthStart, ws)
	gridEnd := endOfWeek(monthEnd, ws)

	var (
		rows [][]DayBucket
		row  []DayBucket
	)
	for d := gridStart; !d.After(gridEnd); d = d.AddDate(0, 0, 1) {
		row = append(row, DayBucket{
			Date:    d,
			InFocus: !d.Before(monthStart) && !d.After(monthEnd),
		})
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}

	return GridLayout{
		Page:     PageSpec{Anchor: anchor, Mode: model.ViewMonthly},
		Title:    monthStart.Format("January"),
		Subtitle: monthStart.Format("2006"),
		Rows:     rows,
	}
}

// BuildWeekGrid lays out the week containing anchor as two rows. The split
// is taken from l; unknown layouts behave like LayoutWeekdayFocus.
func BuildWeekGrid(anchor time.Time, ws model.WeekStart, l model.WeeklyLayout) GridLayout {
	weekStart := startOfWeek(anchor, ws)

	days := make([]DayBucket, 7)
	for i := range days {
		days[i] = DayBucket{Date: weekStart.AddDate(0, 0, i), InFocus: true}
	}

	split := l.TopRowSize()
	return GridLayout{
		Page:     PageSpec{Anchor: anchor, Mode: model.ViewWeekly},
		Title:    "Week of " + weekStart.Format("January 2"),
		Subtitle: anchor.Format("2006"),
		Rows:     [][]DayBucket{days[:split:split], days[split:]},
	}
}
