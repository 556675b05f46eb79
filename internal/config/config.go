package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"nureschedule/internal/semester"
)

// CalendarConfig controls the iCalendar export.
type CalendarConfig struct {
	// Name is the calendar display name embedded in the export.
	Name string `yaml:"name" json:"name"`
	// DefaultDurationMinutes is used when a lesson carries no end time.
	DefaultDurationMinutes int `yaml:"default_duration_minutes" json:"default_duration_minutes"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for calendar-day grouping and
	// semester boundaries (e.g. "Europe/Kyiv").
	Timezone string `yaml:"timezone" json:"timezone"`

	// APIBaseURL is the upstream schedule API endpoint.
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	// Mode is the audience mode: "group" or "teacher".
	Mode string `yaml:"mode" json:"mode"`

	// GroupID / TeacherID select whose timetable is fetched, depending on
	// Mode.
	GroupID   int64 `yaml:"group_id" json:"group_id"`
	TeacherID int64 `yaml:"teacher_id" json:"teacher_id"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *") for
	// the periodic refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir is where API responses are cached on disk.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ReminderLeadMinutes is how long before a lesson its reminder fires.
	ReminderLeadMinutes int `yaml:"reminder_lead_minutes" json:"reminder_lead_minutes"`

	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`

	// Semester holds the user-adjustable semester boundary overrides.
	Semester semester.Overrides `yaml:"semester" json:"semester"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              "127.0.0.1:8080",
		Timezone:            "Europe/Kyiv",
		APIBaseURL:          "https://api.mindenit.org",
		Mode:                "group",
		RefreshCron:         "*/15 * * * *",
		CacheDir:            "./var/api-cache",
		ReminderLeadMinutes: 10,
		Calendar: CalendarConfig{
			Name:                   "NureSchedule",
			DefaultDurationMinutes: 90,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Kyiv"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = "https://api.mindenit.org"
	}
	switch c.Mode {
	case "group", "teacher":
	default:
		c.Mode = "group"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/api-cache"
	}
	if c.ReminderLeadMinutes <= 0 {
		c.ReminderLeadMinutes = 10
	}
	if c.Calendar.Name == "" {
		c.Calendar.Name = "NureSchedule"
	}
	if c.Calendar.DefaultDurationMinutes <= 0 {
		c.Calendar.DefaultDurationMinutes = 90
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written (0600) and
//     returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".nureschedule-config-*.tmp")
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
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// SemesterStore adapts the config file into a semester.OverrideStore, so
// boundary changes made through the provider are persisted next to the rest
// of the settings.
type SemesterStore struct {
	mu   sync.Mutex
	path string
}

// NewSemesterStore creates a store persisting overrides into the config file
// at path.
func NewSemesterStore(path string) *SemesterStore {
	return &SemesterStore{path: path}
}

func (s *SemesterStore) Load() (semester.Overrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := Load(s.path)
	if err != nil {
		return semester.Overrides{}, err
	}
	return cfg.Semester, nil
}

func (s *SemesterStore) Save(ov semester.Overrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	cfg.Semester = ov
	return Save(s.path, cfg)
}
