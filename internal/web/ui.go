package web

import (
	"embed"
	"html/template"
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"printcal/internal/config"
	appLog "printcal/internal/log"
	"printcal/internal/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

type option struct {
	Value    string
	Label    string
	Selected bool
}

type indexView struct {
	Views        []option
	Layouts      []option
	WeekStarts   []option
	Papers       []option
	Orientations []option

	Start     string
	PageCount int
	MinPages  int
	MaxPages  int

	Connected  bool
	EventCount int
	LastError  string
	HasLogo    bool
}

var weeklyLayoutLabels = map[model.WeeklyLayout]string{
	model.LayoutWeekdayFocus: "Weekday focus (3 + 4)",
	model.LayoutWeekendFocus: "Weekend focus (4 + 3)",
}

func options[T ~string](values []T, selected T, label func(T) string) []option {
	out := make([]option, 0, len(values))
	for _, v := range values {
		out = append(out, option{Value: string(v), Label: label(v), Selected: v == selected})
	}
	return out
}

func titleLabel[T ~string](v T) string {
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(string(v))
}

func newIndexView(cfg *config.Config) indexView {
	start := cfg.Start
	if len(start) > len("2006-01") {
		start = start[:len("2006-01")]
	}

	return indexView{
		Views: options([]model.ViewMode{model.ViewMonthly, model.ViewWeekly}, cfg.View, titleLabel[model.ViewMode]),
		Layouts: options([]model.WeeklyLayout{model.LayoutWeekdayFocus, model.LayoutWeekendFocus}, cfg.WeeklyLayout,
			func(l model.WeeklyLayout) string { return weeklyLayoutLabels[l] }),
		WeekStarts:   options([]model.WeekStart{model.WeekStartSunday, model.WeekStartMonday}, cfg.WeekStart, titleLabel[model.WeekStart]),
		Papers:       options([]model.PaperSize{model.PaperA4, model.PaperLetter}, cfg.Paper, func(p model.PaperSize) string { return string(p) }),
		Orientations: options([]model.Orientation{model.OrientationLandscape, model.OrientationPortrait}, cfg.Orientation, titleLabel[model.Orientation]),

		Start:     start,
		PageCount: cfg.PageCount,
		MinPages:  config.MinPageCount,
		MaxPages:  config.MaxPageCount,
		HasLogo:   cfg.LogoPath != "",
	}
}

// handleIndex serves the settings page.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	v := newIndexView(s.config())
	if s.resolver != nil {
		st := s.resolver.Status()
		v.Connected = st.Connected
		v.EventCount = st.EventCount
		v.LastError = st.LastError
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.ExecuteTemplate(w, "index", v); err != nil {
		appLog.Error("index render failed", err)
	}
}
