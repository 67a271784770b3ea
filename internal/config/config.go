package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"apptcal/internal/calendar"
	"apptcal/internal/fsutil"
)

// ICSConfig describes an external ICS feed whose events are shown next to
// the booked appointments (e.g. a veterinarian's public calendar).
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for event IDs and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in tooltips.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PreviewConfig controls the headless capture of the calendar page.
type PreviewConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
}

// MetricsConfig toggles the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Timezone is the IANA timezone appointments are displayed in (e.g. "Europe/Paris").
	Timezone string `yaml:"timezone" json:"timezone"`

	// DatabaseURL, when set, stores appointments in PostgreSQL instead of
	// AppointmentsFile.
	DatabaseURL string `yaml:"database_url,omitempty" json:"database_url,omitempty"`

	// AppointmentsFile is the YAML appointment book used without a database.
	AppointmentsFile string `yaml:"appointments_file" json:"appointments_file"`

	// CacheDir holds ICS HTTP caches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for ICS refresh and preview capture.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// ICS is the list of subscribed ICS feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// Calendar configures the calendar page widget.
	Calendar calendar.Settings `yaml:"calendar" json:"calendar"`

	Preview PreviewConfig `yaml:"preview" json:"preview"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen           = "127.0.0.1:5000"
	defaultTimezone         = "Europe/Paris"
	defaultAppointmentsFile = "/var/lib/apptcal/appointments.yaml"
	defaultCacheDir         = "/var/lib/apptcal/ics-cache"
	defaultRefreshCron      = "*/15 * * * *"
	defaultPreviewPath      = "/var/lib/apptcal/preview.png"
	defaultPreviewWidth     = 1280
	defaultPreviewHeight    = 960
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Listen:           defaultListen,
		LogLevel:         "info",
		Timezone:         defaultTimezone,
		AppointmentsFile: defaultAppointmentsFile,
		CacheDir:         defaultCacheDir,
		RefreshCron:      defaultRefreshCron,
		ICS:              []ICSConfig{},
		Preview: PreviewConfig{
			Path:   defaultPreviewPath,
			Width:  defaultPreviewWidth,
			Height: defaultPreviewHeight,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
	c.Calendar.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.AppointmentsFile == "" {
		c.AppointmentsFile = defaultAppointmentsFile
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Preview.Path == "" {
		c.Preview.Path = defaultPreviewPath
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = defaultPreviewWidth
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = defaultPreviewHeight
	}
	c.Calendar.Normalize()
}

// Location resolves Timezone, falling back to time.Local when it is unknown.
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

// Save normalizes cfg and writes it to path as YAML, atomically and with
// 0600 permissions.
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
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := fsutil.WriteAtomic(path, data); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
