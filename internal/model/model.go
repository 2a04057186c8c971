package model

import (
	"strings"
	"time"
)

// CalendarEvent is a single concrete event instance, already resolved from
// the feed (recurrences expanded, times in the display timezone).
type CalendarEvent struct {
	// ID is unique per occurrence. Non-recurring events use the iCalendar
	// UID; expanded occurrences append their UTC start.
	ID    string `json:"id"`
	Title string `json:"title"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// SourceID names the ICS source the event came from.
	SourceID string `json:"source_id,omitempty"`
}

// ViewMode selects the page layout.
type ViewMode string

const (
	ViewMonthly ViewMode = "monthly"
	ViewWeekly  ViewMode = "weekly"
)

// IsValid reports whether v is a known view mode.
func (v ViewMode) IsValid() bool {
	return v == ViewMonthly || v == ViewWeekly
}

// ParseViewMode parses a case-insensitive view mode name.
func ParseViewMode(s string) (ViewMode, bool) {
	v := ViewMode(strings.ToLower(strings.TrimSpace(s)))
	return v, v.IsValid()
}

// WeeklyLayout chooses how the seven days of a weekly page are split across
// the two rows.
type WeeklyLayout string

const (
	// LayoutWeekdayFocus puts 3 days on the top row and 4 on the bottom.
	LayoutWeekdayFocus WeeklyLayout = "weekdayFocus"
	// LayoutWeekendFocus puts 4 days on the top row and 3 on the bottom.
	LayoutWeekendFocus WeeklyLayout = "weekendFocus"
)

func (l WeeklyLayout) IsValid() bool {
	return l == LayoutWeekdayFocus || l == LayoutWeekendFocus
}

// TopRowSize is the number of days placed on the first row.
func (l WeeklyLayout) TopRowSize() int {
	if l == LayoutWeekendFocus {
		return 4
	}
	return 3
}

// ParseWeeklyLayout accepts the canonical names case-insensitively.
func ParseWeeklyLayout(s string) (WeeklyLayout, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekdayfocus", "weekday":
		return LayoutWeekdayFocus, true
	case "weekendfocus", "weekend":
		return LayoutWeekendFocus, true
	}
	return "", false
}

// WeekStart is the first weekday of a calendar row. It applies to monthly
// and weekly grids alike.
type WeekStart string

const (
	WeekStartSunday WeekStart = "sunday"
	WeekStartMonday WeekStart = "monday"
)

func (w WeekStart) IsValid() bool {
	return w == WeekStartSunday || w == WeekStartMonday
}

// Weekday returns the time.Weekday a row starts on. Unknown values map to
// Sunday.
func (w WeekStart) Weekday() time.Weekday {
	if w == WeekStartMonday {
		return time.Monday
	}
	return time.Sunday
}

// PaperSize is the physical page size used for print and PDF export.
type PaperSize string

const (
	PaperA4     PaperSize = "A4"     // 210mm x 297mm
	PaperLetter PaperSize = "Letter" // 8.5in x 11in
)

func (p PaperSize) IsValid() bool {
	return p == PaperA4 || p == PaperLetter
}

// ParsePaperSize accepts "a4" and "letter" in any case.
func ParsePaperSize(s string) (PaperSize, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a4":
		return PaperA4, true
	case "letter":
		return PaperLetter, true
	}
	return "", false
}

// Dimensions returns the portrait width and height in millimeters.
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperLetter:
		return 215.9, 279.4
	default:
		return 210, 297
	}
}

// Orientation of the printed page.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

func (o Orientation) IsValid() bool {
	return o == OrientationLandscape || o == OrientationPortrait
}

// ParseOrientation accepts "landscape" and "portrait" in any case.
func ParseOrientation(s string) (Orientation, bool) {
	o := Orientation(strings.ToLower(strings.TrimSpace(s)))
	return o, o.IsValid()
}
