package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"printcal/internal/capture"
	"printcal/internal/config"
	"printcal/internal/layout"
	appLog "printcal/internal/log"
	"printcal/internal/logo"
	"printcal/internal/model"
	"printcal/internal/render"
)

// pageRequest is the persisted view preferences with per-request query
// overrides applied.
type pageRequest struct {
	layout      layout.Config
	paper       model.PaperSize
	orientation model.Orientation
}

// parsePageRequest reads mode, start, pages, layout, paper and orientation
// from q, falling back to cfg. The page count is clamped to the supported
// range; unknown enum values are rejected.
func parsePageRequest(cfg *config.Config, q url.Values, now time.Time) (pageRequest, error) {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
	}

	req := pageRequest{
		layout: layout.Config{
			Mode:         cfg.View,
			PageCount:    cfg.PageCount,
			WeeklyLayout: cfg.WeeklyLayout,
			WeekStart:    cfg.WeekStart,
			Location:     loc,
		},
		paper:       cfg.Paper,
		orientation: cfg.Orientation,
	}

	if v := q.Get("mode"); v != "" {
		mode, ok := model.ParseViewMode(v)
		if !ok {
			return req, fmt.Errorf("invalid mode %q", v)
		}
		req.layout.Mode = mode
	}

	startValue := cfg.Start
	if v := q.Get("start"); v != "" {
		startValue = v
	}
	start, err := config.ParseStart(startValue, now, loc)
	if err != nil {
		return req, err
	}
	req.layout.Start = start

	if v := q.Get("pages"); v != "" {
		req.layout.PageCount = config.ClampPageCount(parseIntDefault(v, cfg.PageCount))
	}

	if v := q.Get("layout"); v != "" {
		l, ok := model.ParseWeeklyLayout(v)
		if !ok {
			return req, fmt.Errorf("invalid layout %q", v)
		}
		req.layout.WeeklyLayout = l
	}

	if v := q.Get("paper"); v != "" {
		p, ok := model.ParsePaperSize(v)
		if !ok {
			return req, fmt.Errorf("invalid paper %q", v)
		}
		req.paper = p
	}

	if v := q.Get("orientation"); v != "" {
		o, ok := model.ParseOrientation(v)
		if !ok {
			return req, fmt.Errorf("invalid orientation %q", v)
		}
		req.orientation = o
	}

	return req, nil
}

// buildPages resolves the request against the current events.
func (s *Server) buildPages(req pageRequest) []layout.GridLayout {
	cfg := req.layout
	if s.resolver != nil {
		cfg.Events = s.resolver.Events()
	}
	return layout.BuildPages(cfg)
}

func (s *Server) renderDocument(req pageRequest) ([]byte, error) {
	if s.renderer == nil {
		return nil, errors.New("renderer not configured")
	}

	cfg := s.config()
	lg, err := logo.Load(cfg.LogoPath)
	if err != nil {
		// A broken logo must not block printing.
		appLog.Error("logo load failed; rendering without logo", err, "path", cfg.LogoPath)
		lg = nil
	}

	var buf bytes.Buffer
	err = s.renderer.Render(&buf, render.Document{
		Pages:         s.buildPages(req),
		Logo:          lg,
		Paper:         req.paper,
		Orientation:   req.orientation,
		WeekdayLabels: layout.WeekdayLabels(req.layout.WeekStart),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// handleCalendar serves the print-ready HTML document.
//
// GET /calendar?mode=weekly&start=2024-06&pages=2&layout=weekendFocus
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(s.config(), r.URL.Query(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	html, err := s.renderDocument(req)
	if err != nil {
		appLog.Error("calendar render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render calendar")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

// handleExportPDF renders the same document as /calendar and prints it to
// PDF in headless Chrome.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "PDF export not available")
		return
	}

	req, err := parsePageRequest(s.config(), r.URL.Query(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	html, err := s.renderDocument(req)
	if err != nil {
		appLog.Error("calendar render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render calendar")
		return
	}

	pdf, err := s.exporter.Render(r.Context(), capture.PDFRequest{
		HTML:        string(html),
		Paper:       req.paper,
		Orientation: req.orientation,
		Timeout:     time.Duration(s.config().Chrome.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		if capture.IsCode(err, capture.ErrCodeCancelled) {
			appLog.Debug("pdf export cancelled by client")
			writeError(w, http.StatusServiceUnavailable, "PDF rendering was cancelled")
			return
		}
		appLog.Error("pdf export failed", err)
		switch {
		case capture.IsCode(err, capture.ErrCodeInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case capture.IsCode(err, capture.ErrCodeRenderTimeout):
			writeError(w, http.StatusGatewayTimeout, "PDF rendering timed out")
		default:
			writeError(w, http.StatusInternalServerError, "failed to render PDF")
		}
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(req)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// exportFilename names a PDF after its mode and first page.
func exportFilename(req pageRequest) string {
	layoutFmt := "2006-01"
	if req.layout.Mode == model.ViewWeekly {
		layoutFmt = "2006-01-02"
	}
	return fmt.Sprintf("calendar-%s-%s.pdf", req.layout.Mode, req.layout.Start.Format(layoutFmt))
}

// handlePages returns the page grids as JSON for the same inputs as
// /calendar.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(s.config(), r.URL.Query(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.buildPages(req))
}
