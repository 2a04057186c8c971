package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printcal/internal/layout"
	"printcal/internal/logo"
	"printcal/internal/model"
)

func buildPages(mode model.ViewMode, start time.Time, count int, events []model.CalendarEvent) []layout.GridLayout {
	return layout.BuildPages(layout.Config{
		Mode:         mode,
		Start:        start,
		PageCount:    count,
		WeeklyLayout: model.LayoutWeekdayFocus,
		WeekStart:    model.WeekStartSunday,
		Location:     time.UTC,
		Events:       events,
	})
}

func renderString(t *testing.T, doc Document) string {
	t.Helper()
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, doc))
	return buf.String()
}

func TestRender_Monthly(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "a", Title: "Holiday", Start: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Title: "Review <draft>", Start: time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)},
	}
	pages := buildPages(model.ViewMonthly, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), 2, events)

	out := renderString(t, Document{
		Pages:         pages,
		Paper:         model.PaperA4,
		Orientation:   model.OrientationLandscape,
		WeekdayLabels: layout.WeekdayLabels(model.WeekStartSunday),
	})

	assert.Equal(t, 2, strings.Count(out, `<section class="page page-monthly">`))
	assert.Contains(t, out, `data-ready="true"`)
	assert.Contains(t, out, "@page { size: A4 landscape; margin: 0; }")
	assert.Contains(t, out, "width: 297mm; height: 210mm;")
	assert.Contains(t, out, `<div class="writing"></div>`)
	assert.Contains(t, out, "<h1>February</h1>")
	assert.Contains(t, out, "<h1>March</h1>")
	assert.Contains(t, out, "<div>SUN</div>")
	assert.Contains(t, out, `data-date="2024-03-15"`)
	assert.Contains(t, out, `<div class="event">Holiday</div>`)
	assert.Contains(t, out, `<span class="time">2:30 PM</span>Review &lt;draft&gt;`)
	assert.Contains(t, out, `class="cell out"`)
	assert.NotContains(t, out, `class="logo"`)
}

func TestRender_Weekly(t *testing.T) {
	pages := buildPages(model.ViewWeekly, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), 1, nil)

	out := renderString(t, Document{
		Pages:       pages,
		Paper:       model.PaperLetter,
		Orientation: model.OrientationPortrait,
	})

	assert.Equal(t, 1, strings.Count(out, `<section class="page page-weekly">`))
	assert.Contains(t, out, "@page { size: letter portrait; margin: 0; }")
	assert.Contains(t, out, "width: 215.9mm; height: 279.4mm;")
	assert.Contains(t, out, "<h1>Week of June 9</h1>")
	assert.Contains(t, out, `<div class="row top">`)
	assert.Contains(t, out, `<div class="row bottom">`)
	assert.Contains(t, out, `<span class="dow">Sun</span><span class="num">9</span>`)
	assert.Equal(t, 7, strings.Count(out, `<div class="cell"`))
	assert.NotContains(t, out, `class="weekdays"`)
}

func TestRender_Logo(t *testing.T) {
	pages := buildPages(model.ViewWeekly, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), 3, nil)
	l := &logo.Logo{MIME: logo.MIMEPNG, DataURL: "data:image/png;base64,iVBORw0KGgo="}

	out := renderString(t, Document{Pages: pages, Logo: l})

	assert.Equal(t, 3, strings.Count(out, `<img class="logo" src="data:image/png;base64,iVBORw0KGgo="`))
}

func TestRender_Defaults(t *testing.T) {
	out := renderString(t, Document{})

	assert.Contains(t, out, "@page { size: A4 landscape; margin: 0; }")
	assert.Contains(t, out, `data-pages="0"`)
	assert.Contains(t, out, "<title>Calendar</title>")
	assert.NotContains(t, out, "<section")
}

func TestPageDimensions(t *testing.T) {
	w, h := PageDimensions(model.PaperA4, model.OrientationLandscape)
	assert.Equal(t, 297.0, w)
	assert.Equal(t, 210.0, h)

	w, h = PageDimensions(model.PaperLetter, model.OrientationPortrait)
	assert.Equal(t, 215.9, w)
	assert.Equal(t, 279.4, h)
}

func TestDocumentTitle(t *testing.T) {
	pages := buildPages(model.ViewMonthly, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), 1, nil)
	assert.Equal(t, "Monthly calendar: March 2024", documentTitle(pages))
}
