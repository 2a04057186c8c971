package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "printcal/internal/log"
	"printcal/internal/model"
)

const (
	// defaultMaxOccurrencesPerEvent bounds RRULE expansion per event.
	defaultMaxOccurrencesPerEvent = 1000

	// occurrenceIDLayout is the UTC start suffix of recurring occurrence IDs.
	occurrenceIDLayout = "2006-01-02T15:04:05.000Z"
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be converted.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps the expansion of a single RRULE. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the list of expanded events and the UIDs whose
// expansion hit the cap.
type ExpandResult struct {
	Events          []model.CalendarEvent
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed VEVENTs into concrete events within the
// configured window. Non-recurring events come first, then the occurrences
// of recurring events, each group in input order. It handles:
//
//   - Single non-recurring events (ID = UID)
//   - RRULE-based recurrence (ID = UID + "-" + UTC start)
//   - EXDATE for exception removal
//   - RECURRENCE-ID overrides
//   - All-day semantics: the calendar date is kept, placed at midnight in
//     the display timezone
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		}
	}

	singles := make([]model.CalendarEvent, 0)
	recurring := make([]model.CalendarEvent, 0)

	for _, ev := range events {
		if ev.IsOverride {
			continue
		}
		if ev.RawRRule == "" {
			singles = append(singles, expandSingleEvent(ev, overridesByUID[ev.UID], cfg)...)
			continue
		}

		occ, hitCap := expandRecurringEvent(ev, overridesByUID[ev.UID], cfg)
		recurring = append(recurring, occ...)
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	result.Events = append(singles, recurring...)
	return result, nil
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.CalendarEvent {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		ev = o
	}
	return []model.CalendarEvent{makeEvent(ev, ev.Start, ev.End, ev.UID, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, bool) {
	out := make([]model.CalendarEvent, 0)

	opt, err := rrule.StrToROption(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	// Dtstart must be known before the rule is built; weekly and monthly
	// defaults are derived from it.
	opt.Dtstart = ev.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Error("expand: invalid RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event duration so occurrences that
	// started before the window but are still running are included.
	dur := ev.End.Sub(ev.Start)
	rangeStart := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.AddDate(0, 0, int(max(1, dur/(24*time.Hour))))
		} else {
			occEnd = occStart.Add(dur)
		}

		id := ev.UID + "-" + occStart.UTC().Format(occurrenceIDLayout)

		if o, ok := findOverrideForStart(overrides, occStart); ok {
			out = append(out, makeEvent(o, o.Start, o.End, id, cfg.DisplayLocation))
			continue
		}
		out = append(out, makeEvent(ev, occStart, occEnd, id, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart finds an override whose RECURRENCE-ID equals start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeEvent converts a (possibly overridden) ParsedEvent instance into a
// model.CalendarEvent in displayLoc.
func makeEvent(ev ParsedEvent, start, end time.Time, id string, displayLoc *time.Location) model.CalendarEvent {
	if ev.AllDay {
		start = sameDateIn(start, displayLoc)
		end = sameDateIn(end, displayLoc)
	} else {
		start = start.In(displayLoc)
		end = end.In(displayLoc)
	}

	return model.CalendarEvent{
		ID:       id,
		Title:    ev.Summary,
		Start:    start,
		End:      end,
		SourceID: ev.Source.ID,
	}
}

// sameDateIn keeps t's calendar date and moves it to midnight in loc.
func sameDateIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
