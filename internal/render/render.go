// Package render turns page grids into a print-ready HTML document. The
// document is what the browser export prints to PDF and what /calendar
// serves for in-browser printing.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"printcal/internal/layout"
	"printcal/internal/logo"
	"printcal/internal/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Document is everything needed to render one printable calendar.
type Document struct {
	Pages       []layout.GridLayout
	Logo        *logo.Logo
	Paper       model.PaperSize
	Orientation model.Orientation

	// WeekdayLabels heads the monthly grid columns; see layout.WeekdayLabels.
	WeekdayLabels []string
}

// Renderer renders Documents with the embedded calendar template.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"upper": func(s string) string { return cases.Upper(language.English).String(s) },
	}

	tmpl, err := template.New("calendar").Funcs(funcs).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes doc as a complete HTML document to w. An empty page list
// renders a document with no pages.
func (r *Renderer) Render(w io.Writer, doc Document) error {
	if err := r.tmpl.ExecuteTemplate(w, "calendar", newDocumentView(doc)); err != nil {
		return fmt.Errorf("render: execute: %w", err)
	}
	return nil
}

type documentView struct {
	Title    string
	PageSize template.CSS
	Width    template.CSS
	Height   template.CSS
	Weekdays []string
	LogoURL  template.URL
	Pages    []pageView
}

type pageView struct {
	Mode     model.ViewMode
	Title    string
	Subtitle string
	Rows     [][]cellView
}

type cellView struct {
	Date    string
	Day     int
	Weekday string // weekly pages only
	InFocus bool
	Events  []layout.BoundEvent
}

func newDocumentView(doc Document) documentView {
	paper := doc.Paper
	if !paper.IsValid() {
		paper = model.PaperA4
	}
	orientation := doc.Orientation
	if !orientation.IsValid() {
		orientation = model.OrientationLandscape
	}

	width, height := PageDimensions(paper, orientation)
	v := documentView{
		Title:    documentTitle(doc.Pages),
		PageSize: template.CSS(pageSizeName(paper) + " " + string(orientation)),
		Width:    template.CSS(mm(width)),
		Height:   template.CSS(mm(height)),
		Weekdays: doc.WeekdayLabels,
		Pages:    make([]pageView, 0, len(doc.Pages)),
	}
	if doc.Logo != nil && doc.Logo.DataURL != "" {
		// Logos only ever come from logo.FromBytes, which emits PNG/JPEG
		// data URLs.
		v.LogoURL = template.URL(doc.Logo.DataURL)
	}

	for _, p := range doc.Pages {
		pv := pageView{
			Mode:     p.Page.Mode,
			Title:    p.Title,
			Subtitle: p.Subtitle,
			Rows:     make([][]cellView, 0, len(p.Rows)),
		}
		for _, row := range p.Rows {
			cells := make([]cellView, 0, len(row))
			for _, b := range row {
				c := cellView{
					Date:    b.Date.Format("2006-01-02"),
					Day:     b.Date.Day(),
					InFocus: b.InFocus,
					Events:  b.Events,
				}
				if p.Page.Mode == model.ViewWeekly {
					c.Weekday = b.Date.Format("Mon")
				}
				cells = append(cells, c)
			}
			pv.Rows = append(pv.Rows, cells)
		}
		v.Pages = append(v.Pages, pv)
	}
	return v
}

// PageDimensions returns the page width and height in millimeters for the
// given paper and orientation.
func PageDimensions(paper model.PaperSize, o model.Orientation) (width, height float64) {
	w, h := paper.Dimensions()
	if o == model.OrientationLandscape {
		return h, w
	}
	return w, h
}

func pageSizeName(p model.PaperSize) string {
	if p == model.PaperLetter {
		return "letter"
	}
	return "A4"
}

func mm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
}

func documentTitle(pages []layout.GridLayout) string {
	if len(pages) == 0 {
		return "Calendar"
	}
	title := cases.Title(language.English)
	first := pages[0]
	return title.String(string(first.Page.Mode)) + " calendar: " + first.Title + " " + first.Subtitle
}
