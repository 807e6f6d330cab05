package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/mkarlsen/blockr/internal/schedule"
)

type Config struct {
	Timezone      string         `toml:"timezone"`
	Schedule      ScheduleConfig `toml:"schedule"`
	Calendar      CalendarConfig `toml:"calendar"`
	AI            AIConfig       `toml:"ai"`
	Notifications NotifyConfig   `toml:"notifications"`
}

type ScheduleConfig struct {
	BlockMinutes int                   `toml:"block_minutes"`
	GapMinutes   int                   `toml:"gap_minutes"`
	Window       schedule.WindowConfig `toml:"window"`
}

type CalendarConfig struct {
	Source     string `toml:"source"`      // ICS URL or file path with busy events
	ExportPath string `toml:"export_path"` // where applied blocks are written as ICS
}

type AIConfig struct {
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type NotifyConfig struct {
	Enabled     bool `toml:"enabled"`
	LeadMinutes int  `toml:"lead_minutes"`
}

func DefaultConfig() Config {
	window := schedule.WindowConfig{}
	for _, d := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		window[d] = schedule.DayWindow{Enabled: true, Start: "09:00", End: "17:00"}
	}
	window["saturday"] = schedule.DayWindow{Enabled: false, Start: "09:00", End: "17:00"}
	window["sunday"] = schedule.DayWindow{Enabled: false, Start: "09:00", End: "17:00"}

	return Config{
		Timezone: "UTC",
		Schedule: ScheduleConfig{
			BlockMinutes: 60,
			GapMinutes:   10,
			Window:       window,
		},
		AI: AIConfig{
			Model: "gpt-4o-mini",
		},
		Notifications: NotifyConfig{
			Enabled:     true,
			LeadMinutes: 5,
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "blockr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file, falling back to defaults when the file does
// not exist. Env vars override file values either way.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Schedule.Window.Validate(); err != nil {
		return nil, fmt.Errorf("validating working window: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("BLOCKR_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("BLOCKR_CALENDAR_SOURCE"); v != "" {
		cfg.Calendar.Source = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
