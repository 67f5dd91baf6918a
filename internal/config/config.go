// Package config loads opsdesk settings from an optional YAML file and
// OPSDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dukerupert/opsdesk/internal/schedule"
)

type Config struct {
	Port      string         `yaml:"port"`
	DBPath    string         `yaml:"db_path"`
	LogLevel  string         `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string         `yaml:"log_format"` // text or json
	Timezone  string         `yaml:"timezone"`   // IANA name or "Local"
	Schedule  ScheduleConfig `yaml:"schedule"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}

type ScheduleConfig struct {
	WeekStart          string `yaml:"week_start"`
	MaxVisible         int    `yaml:"max_visible"`
	SalesManualEntries string `yaml:"sales_manual_entries"` // shared or owner
	StrictLeadNames    bool   `yaml:"strict_lead_names"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() *Config {
	return &Config{
		Port:      "8080",
		DBPath:    "opsdesk.db",
		LogLevel:  "info",
		LogFormat: "text",
		Timezone:  "Local",
		Schedule: ScheduleConfig{
			WeekStart:          "sunday",
			MaxVisible:         schedule.DefaultMaxVisible,
			SalesManualEntries: string(schedule.ManualShared),
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"OPSDESK_PORT":                 &c.Port,
		"OPSDESK_DB_PATH":              &c.DBPath,
		"OPSDESK_LOG_LEVEL":            &c.LogLevel,
		"OPSDESK_LOG_FORMAT":           &c.LogFormat,
		"OPSDESK_TIMEZONE":             &c.Timezone,
		"OPSDESK_WEEK_START":           &c.Schedule.WeekStart,
		"OPSDESK_SALES_MANUAL_ENTRIES": &c.Schedule.SalesManualEntries,
	}
	for key, dst := range str {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("OPSDESK_MAX_VISIBLE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OPSDESK_MAX_VISIBLE: %w", err)
		}
		c.Schedule.MaxVisible = n
	}
	bools := map[string]*bool{
		"OPSDESK_STRICT_LEAD_NAMES": &c.Schedule.StrictLeadNames,
		"OPSDESK_METRICS_ENABLED":   &c.Metrics.Enabled,
	}
	for key, dst := range bools {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

// Validate checks every field that has a restricted set of values.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.WeekStart(); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.MaxVisible < 1 {
		errs = append(errs, fmt.Errorf("schedule.max_visible must be at least 1, got %d", c.Schedule.MaxVisible))
	}
	if _, err := schedule.ParseManualVisibility(c.Schedule.SalesManualEntries); err != nil {
		errs = append(errs, fmt.Errorf("schedule.sales_manual_entries: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (c *Config) WeekStart() (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(c.Schedule.WeekStart))]
	if !ok {
		return 0, fmt.Errorf("schedule.week_start: unknown weekday %q", c.Schedule.WeekStart)
	}
	return d, nil
}

// EngineConfig converts the schedule settings for schedule.NewEngine. It
// assumes Validate has passed.
func (c *Config) EngineConfig() schedule.Config {
	loc, _ := c.Location()
	weekStart, _ := c.WeekStart()
	vis, _ := schedule.ParseManualVisibility(c.Schedule.SalesManualEntries)
	return schedule.Config{
		Location:        loc,
		WeekStart:       weekStart,
		MaxVisible:      c.Schedule.MaxVisible,
		StrictLeadNames: c.Schedule.StrictLeadNames,
		Views:           schedule.DefaultViews(vis),
	}
}
