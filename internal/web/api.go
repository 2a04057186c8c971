package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"printcal/internal/config"
	"printcal/internal/ics"
	appLog "printcal/internal/log"
	"printcal/internal/logo"
	"printcal/internal/model"
)

// primarySourceID names the feed managed through /api/calendar.
const primarySourceID = "primary"

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Status          ics.Status            `json:"status"`
	Events          []model.CalendarEvent `json:"events"`
	RangeStart      time.Time             `json:"range_start"`
	RangeEnd        time.Time             `json:"range_end"`
	DisplayTimeZone string                `json:"display_timezone"`
	WeekStart       model.WeekStart       `json:"week_start"`
}

// handleEvents returns the resolved events and the feed status.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	cfg := s.config()
	loc, _ := cfg.Location()
	rangeStart, rangeEnd := ics.Window(s.now(), loc)

	resp := eventsResponse{
		Events:          []model.CalendarEvent{},
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
		WeekStart:       cfg.WeekStart,
	}
	if s.resolver != nil {
		resp.Status = s.resolver.Status()
		resp.Events = s.resolver.Events()
	}
	writeJSON(w, http.StatusOK, resp)
}

// preferences is the user-editable part of the config as exposed by
// /api/config.
type preferences struct {
	View         model.ViewMode     `json:"view"`
	Start        string             `json:"start"`
	PageCount    int                `json:"page_count"`
	WeeklyLayout model.WeeklyLayout `json:"weekly_layout"`
	WeekStart    model.WeekStart    `json:"week_start"`
	Paper        model.PaperSize    `json:"paper"`
	Orientation  model.Orientation  `json:"orientation"`
	Timezone     string             `json:"timezone"`
	Connected    bool               `json:"connected"`
	HasLogo      bool               `json:"has_logo"`
}

// preferencesUpdate is the body of PUT /api/config. Absent fields are left
// unchanged.
type preferencesUpdate struct {
	View         *string `json:"view"`
	Start        *string `json:"start"`
	PageCount    *int    `json:"page_count"`
	WeeklyLayout *string `json:"weekly_layout"`
	WeekStart    *string `json:"week_start"`
	Paper        *string `json:"paper"`
	Orientation  *string `json:"orientation"`
}

func (s *Server) preferencesOf(cfg *config.Config) preferences {
	p := preferences{
		View:         cfg.View,
		Start:        cfg.Start,
		PageCount:    cfg.PageCount,
		WeeklyLayout: cfg.WeeklyLayout,
		WeekStart:    cfg.WeekStart,
		Paper:        cfg.Paper,
		Orientation:  cfg.Orientation,
		Timezone:     cfg.Timezone,
		HasLogo:      cfg.LogoPath != "",
	}
	if s.resolver != nil {
		p.Connected = s.resolver.Status().Connected
	}
	return p
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.preferencesOf(s.config()))
}

// handlePutConfig validates and persists preference changes.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var upd preferencesUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg, err := s.updateConfig(func(c *config.Config) error {
		return applyPreferences(c, upd, s.now())
	})
	if err != nil {
		var ve validationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		appLog.Error("config save failed", err, "path", s.cfgPath)
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}

	appLog.Info("preferences updated", "view", cfg.View, "start", cfg.Start, "page_count", cfg.PageCount)
	writeJSON(w, http.StatusOK, s.preferencesOf(cfg))
}

type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

func invalid(field, value string) error {
	return validationError{msg: fmt.Sprintf("invalid %s %q", field, value)}
}

func applyPreferences(c *config.Config, upd preferencesUpdate, now time.Time) error {
	if upd.View != nil {
		v, ok := model.ParseViewMode(*upd.View)
		if !ok {
			return invalid("view", *upd.View)
		}
		c.View = v
	}
	if upd.Start != nil {
		start := strings.TrimSpace(*upd.Start)
		if start != "" {
			loc, _ := c.Location()
			if _, err := config.ParseStart(start, now, loc); err != nil {
				return invalid("start", start)
			}
		}
		c.Start = start
	}
	if upd.PageCount != nil {
		c.PageCount = config.ClampPageCount(*upd.PageCount)
	}
	if upd.WeeklyLayout != nil {
		l, ok := model.ParseWeeklyLayout(*upd.WeeklyLayout)
		if !ok {
			return invalid("weekly_layout", *upd.WeeklyLayout)
		}
		c.WeeklyLayout = l
	}
	if upd.WeekStart != nil {
		ws := model.WeekStart(strings.ToLower(strings.TrimSpace(*upd.WeekStart)))
		if !ws.IsValid() {
			return invalid("week_start", *upd.WeekStart)
		}
		c.WeekStart = ws
	}
	if upd.Paper != nil {
		p, ok := model.ParsePaperSize(*upd.Paper)
		if !ok {
			return invalid("paper", *upd.Paper)
		}
		c.Paper = p
	}
	if upd.Orientation != nil {
		o, ok := model.ParseOrientation(*upd.Orientation)
		if !ok {
			return invalid("orientation", *upd.Orientation)
		}
		c.Orientation = o
	}
	return nil
}

type connectRequest struct {
	URL string `json:"url"`
}

// handleConnectCalendar stores a feed URL and loads it. If the feed cannot
// be loaded the URL is cleared again and 502 is returned.
func (s *Server) handleConnectCalendar(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar feeds not available")
		return
	}

	var req connectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	cfg, err := s.updateConfig(func(c *config.Config) error {
		c.ICS = []config.ICSConfig{{ID: primarySourceID, Name: "Calendar", URL: req.URL}}
		return nil
	})
	if err != nil {
		appLog.Error("config save failed", err, "path", s.cfgPath)
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}

	s.resolver.SetSources(ics.SourcesFromConfig(cfg))
	if err := s.resolver.Refresh(r.Context()); err != nil {
		s.disconnect()
		writeError(w, http.StatusBadGateway, "failed to load calendar: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.resolver.Status())
}

// handleDisconnectCalendar clears the feed URL and the loaded events.
func (s *Server) handleDisconnectCalendar(w http.ResponseWriter, _ *http.Request) {
	if err := s.disconnect(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}
	var st ics.Status
	if s.resolver != nil {
		st = s.resolver.Status()
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) disconnect() error {
	_, err := s.updateConfig(func(c *config.Config) error {
		c.ICS = nil
		return nil
	})
	if err != nil {
		appLog.Error("config save failed", err, "path", s.cfgPath)
	}
	if s.resolver != nil {
		s.resolver.SetSources(nil)
	}
	return err
}

type logoResponse struct {
	HasLogo bool   `json:"has_logo"`
	MIME    string `json:"mime,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// handleUploadLogo accepts a multipart form with a "logo" file.
func (s *Server) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, logo.MaxBytes+(1<<20))
	if err := r.ParseMultipartForm(logo.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	file, _, err := r.FormFile("logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "logo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, logo.MaxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	lg, err := logo.FromBytes(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err = s.updateConfig(func(c *config.Config) error {
		path, err := logo.Store(c.DataDir, data)
		if err != nil {
			return err
		}
		c.LogoPath = path
		return nil
	})
	if err != nil {
		appLog.Error("logo store failed", err)
		writeError(w, http.StatusInternalServerError, "failed to store logo")
		return
	}

	appLog.Info("logo updated", "mime", lg.MIME, "bytes", len(data))
	writeJSON(w, http.StatusOK, logoResponse{HasLogo: true, MIME: lg.MIME, Width: lg.Width, Height: lg.Height})
}

func (s *Server) handleDeleteLogo(w http.ResponseWriter, _ *http.Request) {
	_, err := s.updateConfig(func(c *config.Config) error {
		if err := logo.Remove(c.DataDir); err != nil {
			return err
		}
		c.LogoPath = ""
		return nil
	})
	if err != nil {
		appLog.Error("logo remove failed", err)
		writeError(w, http.StatusInternalServerError, "failed to remove logo")
		return
	}
	writeJSON(w, http.StatusOK, logoResponse{})
}
