package layout

import (
	"printcal/internal/model"
)

// timeLabelLayout renders start times like "2:30 PM".
const timeLabelLayout = "3:04 PM"

// BindEvents returns a copy of grid with every event placed in the bucket
// whose calendar day matches the event's start, compared in the grid's
// location. Events keep their relative input order within a bucket. Events
// that match no bucket are dropped. Multi-day events appear only on their
// start day.
func BindEvents(grid GridLayout, events []model.CalendarEvent) GridLayout {
	out := grid
	out.Rows = make([][]DayBucket, len(grid.Rows))

	for r, row := range grid.Rows {
		outRow := make([]DayBucket, len(row))
		for c, bucket := range row {
			b := DayBucket{Date: bucket.Date, InFocus: bucket.InFocus}
			loc := bucket.Date.Location()
			for _, ev := range events {
				start := ev.Start.In(loc)
				if !sameDay(start, bucket.Date) {
					continue
				}
				b.Events = append(b.Events, bindEvent(ev, start.Hour() == 0 && start.Minute() == 0, start.Format(timeLabelLayout)))
			}
			outRow[c] = b
		}
		out.Rows[r] = outRow
	}

	return out
}

func bindEvent(ev model.CalendarEvent, allDay bool, label string) BoundEvent {
	if allDay {
		label = ""
	}
	return BoundEvent{Event: ev, AllDay: allDay, TimeLabel: label}
}
