// Package layout turns a view configuration into the printable page model:
// a sequence of page anchor dates, the grid of day buckets for each page and
// the events bound to those buckets.
//
// Everything in this package is pure. BuildPages may be called on every
// change of input; identical inputs always give structurally equal output.
package layout

import (
	"time"

	"printcal/internal/model"
)

// Config is the immutable input to BuildPages. The UI shell owns the state
// behind it and builds a fresh Config on every change.
type Config struct {
	Mode         model.ViewMode
	Start        time.Time
	PageCount    int
	WeeklyLayout model.WeeklyLayout // only used for weekly pages
	WeekStart    model.WeekStart

	// Location is the display timezone used for calendar-day arithmetic and
	// event binding. nil means time.Local.
	Location *time.Location

	Events []model.CalendarEvent
}

// PageSpec identifies one printed page.
type PageSpec struct {
	Anchor time.Time      `json:"anchor"`
	Mode   model.ViewMode `json:"mode"`
}

// BoundEvent is an event placed in a day bucket together with its derived
// display fields.
type BoundEvent struct {
	Event  model.CalendarEvent `json:"event"`
	AllDay bool                `json:"all_day"`
	// TimeLabel is the formatted start time; empty for all-day events.
	TimeLabel string `json:"time_label,omitempty"`
}

// DayBucket is one cell of a page grid.
type DayBucket struct {
	Date    time.Time    `json:"date"`
	InFocus bool         `json:"in_focus"`
	Events  []BoundEvent `json:"events"`
}

// GridLayout is the render model of one page. Renderers dispatch on
// Page.Mode.
type GridLayout struct {
	Page     PageSpec      `json:"page"`
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Rows     [][]DayBucket `json:"rows"`
}

// Buckets returns the page's buckets in calendar order.
func (g GridLayout) Buckets() []DayBucket {
	var out []DayBucket
	for _, row := range g.Rows {
		out = append(out, row...)
	}
	return out
}

// BuildPages is the single entry point of the layout core. A PageCount of
// zero or less yields no pages.
func BuildPages(cfg Config) []GridLayout {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	anchors := GeneratePageDates(cfg.Start.In(loc), cfg.PageCount, cfg.Mode)
	pages := make([]GridLayout, 0, len(anchors))

	for _, anchor := range anchors {
		var grid GridLayout
		if cfg.Mode == model.ViewWeekly {
			grid = BuildWeekGrid(anchor, cfg.WeekStart, cfg.WeeklyLayout)
		} else {
			grid = BuildMonthGrid(anchor, cfg.WeekStart)
		}
		pages = append(pages, BindEvents(grid, cfg.Events))
	}

	return pages
}
