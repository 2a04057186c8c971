package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"printcal/internal/model"
)

// Page count bounds accepted at the configuration boundary.
const (
	MinPageCount = 1
	MaxPageCount = 12
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultRefreshCron = "*/30 * * * *"
	defaultDataDir     = "./var"
	defaultChromeSec   = 30
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint (http, https or webcal).
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ChromeConfig controls the headless browser used for PDF export.
type ChromeConfig struct {
	// RemoteURL points at an already running Chrome DevTools endpoint. When
	// empty a local browser is launched per export.
	RemoteURL      string `yaml:"remote_url" json:"remote_url"`
	NoSandbox      bool   `yaml:"no_sandbox" json:"no_sandbox"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, error
	Format string `yaml:"format" json:"format"` // console, json
	Output string `yaml:"output" json:"output"` // stdout, stderr or file path
}

// Config is the top-level application configuration. The view settings
// double as the persisted user preferences edited through the Web UI.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for calendar-day arithmetic. Empty
	// means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first column of both monthly and weekly grids:
	// "sunday" (default) or "monday".
	WeekStart model.WeekStart `yaml:"week_start" json:"week_start"`

	// View is "monthly" (default) or "weekly".
	View model.ViewMode `yaml:"view" json:"view"`

	// Start is the first page's month as YYYY-MM (or a YYYY-MM-DD date for
	// weekly pages). Empty means the current month.
	Start string `yaml:"start" json:"start"`

	// PageCount is the number of pages to print, clamped to [1,12].
	PageCount int `yaml:"page_count" json:"page_count"`

	// WeeklyLayout is "weekdayFocus" (3+4, default) or "weekendFocus" (4+3).
	WeeklyLayout model.WeeklyLayout `yaml:"weekly_layout" json:"weekly_layout"`

	Paper       model.PaperSize   `yaml:"paper" json:"paper"`
	Orientation model.Orientation `yaml:"orientation" json:"orientation"`

	// RefreshCron is a standard 5-field cron spec for feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// LogoPath is an optional PNG/JPEG placed on every page.
	LogoPath string `yaml:"logo_path" json:"logo_path"`

	// DataDir holds the ICS cache, uploaded logo and preview image.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	Chrome ChromeConfig `yaml:"chrome" json:"chrome"`
	Log    LogConfig    `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"-"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{ICS: []ICSConfig{}}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults and clamps
// out-of-range values so that partially-filled or hand-edited configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if !c.WeekStart.IsValid() {
		c.WeekStart = model.WeekStartSunday
	}
	if v, ok := model.ParseViewMode(string(c.View)); ok {
		c.View = v
	} else {
		c.View = model.ViewMonthly
	}
	c.PageCount = ClampPageCount(c.PageCount)
	if l, ok := model.ParseWeeklyLayout(string(c.WeeklyLayout)); ok {
		c.WeeklyLayout = l
	} else {
		c.WeeklyLayout = model.LayoutWeekdayFocus
	}
	if p, ok := model.ParsePaperSize(string(c.Paper)); ok {
		c.Paper = p
	} else {
		c.Paper = model.PaperA4
	}
	if !c.Orientation.IsValid() {
		c.Orientation = model.OrientationLandscape
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	} else if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		c.RefreshCron = defaultRefreshCron
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.Chrome.TimeoutSeconds <= 0 {
		c.Chrome.TimeoutSeconds = defaultChromeSec
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}
}

// ClampPageCount limits n to [MinPageCount, MaxPageCount]. Zero (unset)
// becomes MinPageCount.
func ClampPageCount(n int) int {
	if n < MinPageCount {
		return MinPageCount
	}
	if n > MaxPageCount {
		return MaxPageCount
	}
	return n
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// StartDate parses Start in loc. Empty Start yields the first day of now's
// month.
func (c *Config) StartDate(now time.Time, loc *time.Location) (time.Time, error) {
	return ParseStart(c.Start, now, loc)
}

// ParseStart parses "YYYY-MM" or "YYYY-MM-DD" in loc. Empty input yields
// the first day of now's month.
func ParseStart(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: start %q: expected YYYY-MM or YYYY-MM-DD", s)
	}
	return t, nil
}

// Sources returns the ICS entries that have a URL, with IDs defaulted from
// Name or URL.
func (c *Config) Sources() []ICSConfig {
	out := make([]ICSConfig, 0, len(c.ICS))
	for _, s := range c.ICS {
		if s.URL == "" {
			continue
		}
		if s.ID == "" {
			if s.Name != "" {
				s.ID = s.Name
			} else {
				s.ID = s.URL
			}
		}
		out = append(out, s)
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save normalizes cfg and writes it to path atomically (temp file in the
// same directory, then rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place. The parent directory is created with 0700 if missing.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".printcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Clone returns a deep copy, so handlers can mutate a copy before saving.
func (c *Config) Clone() *Config {
	out := *c
	out.ICS = append([]ICSConfig(nil), c.ICS...)
	if c.BasicAuth != nil {
		ba := *c.BasicAuth
		out.BasicAuth = &ba
	}
	return &out
}
