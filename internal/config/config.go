package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EffortMode selects how an issue's planned effort is measured.
type EffortMode string

const (
	EffortHours       EffortMode = "HOURS"
	EffortStoryPoints EffortMode = "STORY_POINTS"
)

// Config holds the JIRA connection settings and the per-team sync policies.
type Config struct {
	URL      string     `yaml:"url"                mapstructure:"url"`
	Email    string     `yaml:"email"              mapstructure:"email"`
	Token    string     `yaml:"token"              mapstructure:"token"`
	Database string     `yaml:"database,omitempty" mapstructure:"database"`
	Timezone string     `yaml:"timezone,omitempty" mapstructure:"timezone"`
	Workers  int        `yaml:"workers,omitempty"  mapstructure:"workers"`
	Teams    []TeamSync `yaml:"teams,omitempty"    mapstructure:"teams"`
}

// TeamSync describes how one team's sprints are looked up in JIRA and valued.
type TeamSync struct {
	Name                 string     `yaml:"name"                              mapstructure:"name"`
	ProjectKey           string     `yaml:"project_key"                       mapstructure:"project_key"`
	VersionScheme        string     `yaml:"version_scheme"                    mapstructure:"version_scheme"`
	EffortMode           EffortMode `yaml:"effort_mode"                       mapstructure:"effort_mode"`
	StoryPointsFieldID   string     `yaml:"story_points_field_id,omitempty"   mapstructure:"story_points_field_id"`
	Unplanned            bool       `yaml:"unplanned,omitempty"               mapstructure:"unplanned"`
	UnplannedFlagFieldID string     `yaml:"unplanned_flag_field_id,omitempty" mapstructure:"unplanned_flag_field_id"`
	UnplannedFlagName    string     `yaml:"unplanned_flag_name,omitempty"     mapstructure:"unplanned_flag_name"`
}

// DefaultPath returns the default config file path (~/.burndown.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".burndown.yaml"
	}
	return filepath.Join(home, ".burndown.yaml")
}

// DefaultDatabasePath returns the default sprint database (~/.burndown/burndown.db).
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".burndown", "burndown.db")
	}
	return filepath.Join(home, ".burndown", "burndown.db")
}

// Load reads config from the YAML file and applies env var overrides.
// configPath may be empty to use the default path.
func Load(configPath string) (Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = DefaultPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("workers", 1)
	v.SetDefault("database", DefaultDatabasePath())

	// Env var overrides
	v.BindEnv("url", "JIRA_URL")
	v.BindEnv("email", "JIRA_EMAIL")
	v.BindEnv("token", "JIRA_TOKEN")
	v.BindEnv("database", "BURNDOWN_DATABASE")
	v.BindEnv("timezone", "BURNDOWN_TIMEZONE")

	// Read the config file (ignore "not found" errors so env vars still work)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the JIRA connection fields are present.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("JIRA URL is required (set in config file or JIRA_URL env var)")
	}
	if c.Email == "" {
		return fmt.Errorf("JIRA email is required (set in config file or JIRA_EMAIL env var)")
	}
	if c.Token == "" {
		return fmt.Errorf("JIRA token is required (set in config file or JIRA_TOKEN env var)")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative (got %d)", c.Workers)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for _, t := range c.Teams {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("team %q: %w", t.Name, err)
		}
	}
	return nil
}

// Location resolves the configured timezone used for calendar-day matching.
// An empty timezone means the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Team looks up a team sync policy by name (case-insensitive).
func (c Config) Team(name string) (TeamSync, error) {
	for _, t := range c.Teams {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return TeamSync{}, fmt.Errorf("team %q is not configured", name)
}

// Validate checks that a team policy can drive a sync.
func (t TeamSync) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.ProjectKey == "" {
		return fmt.Errorf("project_key is required")
	}
	if t.VersionScheme == "" {
		return fmt.Errorf("version_scheme is required")
	}
	switch t.EffortMode {
	case EffortHours:
	case EffortStoryPoints:
		if t.StoryPointsFieldID == "" {
			return fmt.Errorf("story_points_field_id is required for effort mode %s", EffortStoryPoints)
		}
	default:
		return fmt.Errorf("unknown effort_mode %q (want %s or %s)", t.EffortMode, EffortHours, EffortStoryPoints)
	}
	if t.Unplanned && (t.UnplannedFlagFieldID == "" || t.UnplannedFlagName == "") {
		return fmt.Errorf("unplanned tracking needs unplanned_flag_field_id and unplanned_flag_name")
	}
	return nil
}

// Save writes the config to the given path (or default path if empty).
func Save(cfg Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
