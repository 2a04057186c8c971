package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"printcal/internal/capture"
	"printcal/internal/config"
	"printcal/internal/ics"
	appLog "printcal/internal/log"
	"printcal/internal/render"
)

// Exporter prints calendar documents. *capture.PDFRenderer implements it.
type Exporter interface {
	Render(ctx context.Context, req capture.PDFRequest) ([]byte, error)
	CapturePNG(ctx context.Context, opts capture.CaptureOptions) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	// ConfigPath is where preference changes are persisted. Empty keeps
	// changes in memory only.
	ConfigPath string
	Config     *config.Config

	Resolver *ics.Resolver
	Renderer *render.Renderer
	Exporter Exporter

	Debug bool
}

// Server provides the settings UI, the printable calendar and its JSON
// APIs.
type Server struct {
	cfgPath string
	debug   bool
	mux     *http.ServeMux

	resolver *ics.Resolver
	renderer *render.Renderer
	exporter Exporter
	now      func() time.Time

	// cfg is replaced, never mutated, so readers may keep the pointer.
	cfgMu sync.RWMutex
	cfg   *config.Config

	// previewMu serializes preview captures.
	previewMu sync.Mutex
}

// NewServer constructs a new Server.
func NewServer(d Deps) *Server {
	cfg := d.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfgPath:  d.ConfigPath,
		debug:    d.Debug,
		mux:      http.NewServeMux(),
		resolver: d.Resolver,
		renderer: d.Renderer,
		exporter: d.Exporter,
		now:      time.Now,
		cfg:      cfg,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.config().Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on the configured listen address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config().Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+srv.Addr, "debug", s.debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// updateConfig applies fn to a copy of the current config, persists it and
// swaps it in. The copy is discarded if fn or the save fails.
func (s *Server) updateConfig(fn func(c *config.Config) error) (*config.Config, error) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	next := s.cfg.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Normalize()
	if s.cfgPath != "" {
		if err := next.Save(s.cfgPath); err != nil {
			return nil, err
		}
	}
	s.cfg = next
	return next, nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	cfg := s.config()
	if cfg == nil || cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	return cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.config().BasicAuth.Username
	password := s.config().BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="printcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /export.pdf", s.handleExportPDF)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	s.mux.HandleFunc("GET /api/pages", s.handlePages)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/config", s.handleGetConfig)
	s.mux.HandleFunc("PUT /api/config", s.handlePutConfig)
	s.mux.HandleFunc("POST /api/calendar", s.handleConnectCalendar)
	s.mux.HandleFunc("DELETE /api/calendar", s.handleDisconnectCalendar)
	s.mux.HandleFunc("POST /api/logo", s.handleUploadLogo)
	s.mux.HandleFunc("DELETE /api/logo", s.handleDeleteLogo)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// previewPath is where the last PNG preview is stored.
func (s *Server) previewPath() string {
	return filepath.Join(s.config().DataDir, "preview.png")
}

// CapturePreview renders the current calendar in the browser and stores a
// PNG screenshot for /preview.png.
func (s *Server) CapturePreview(ctx context.Context) error {
	if s.exporter == nil {
		return errors.New("preview: no exporter configured")
	}
	s.previewMu.Lock()
	defer s.previewMu.Unlock()

	cfg := s.config()
	err := s.exporter.CapturePNG(ctx, capture.CaptureOptions{
		URL:        selfURL(cfg, "/calendar"),
		OutputPath: s.previewPath(),
		Timeout:    time.Duration(cfg.Chrome.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	appLog.Info("preview captured", "path", s.previewPath())
	return nil
}

// handlePreview serves the last rendered PNG preview from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	// http.ServeFile answers 404 for a missing preview.
	http.ServeFile(w, r, s.previewPath())
}

// selfURL is the address the browser uses to reach this server, with
// basic auth credentials embedded when enabled.
func selfURL(cfg *config.Config, path string) string {
	host, port, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		host, port = "127.0.0.1", "8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: path}
	if cfg.BasicAuth != nil && cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password != "" {
		u.User = url.UserPassword(cfg.BasicAuth.Username, cfg.BasicAuth.Password)
	}
	return u.String()
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
