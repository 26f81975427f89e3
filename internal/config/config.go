// Package config loads server configuration from an optional TOML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Sweep    SweepConfig    `toml:"sweep"`
	Mirror   MirrorConfig   `toml:"mirror"`
	Calendar CalendarConfig `toml:"calendar"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type SweepConfig struct {
	Interval duration `toml:"interval"`
}

// MirrorConfig points at the external task provider. An empty BaseURL
// disables mirroring.
type MirrorConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// CalendarConfig points at the meal calendar. An empty BaseURL disables the
// meal board.
type CalendarConfig struct {
	BaseURL        string `toml:"base_url"`
	HalfWindowDays int    `toml:"half_window_days"`
}

// duration lets TOML carry values like "15m" or "1h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Server:   ServerConfig{Listen: ":8080"},
		Database: DatabaseConfig{Path: "hearth.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Sweep:    SweepConfig{Interval: duration{time.Hour}},
		Calendar: CalendarConfig{HalfWindowDays: 7},
	}
}

// Load reads the TOML file at path (skipped when path is "" or the file does
// not exist), then applies HEARTH_* environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if cfg.Sweep.Interval.Duration <= 0 {
		return cfg, fmt.Errorf("sweep interval must be positive, got %s", cfg.Sweep.Interval.Duration)
	}
	if cfg.Calendar.HalfWindowDays < 0 {
		return cfg, fmt.Errorf("calendar half window must not be negative, got %d", cfg.Calendar.HalfWindowDays)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Listen, "HEARTH_LISTEN")
	setString(&cfg.Database.Path, "HEARTH_DB_PATH")
	setString(&cfg.Log.Level, "HEARTH_LOG_LEVEL")
	setString(&cfg.Log.Format, "HEARTH_LOG_FORMAT")
	setString(&cfg.Mirror.BaseURL, "HEARTH_MIRROR_URL")
	setString(&cfg.Mirror.Token, "HEARTH_MIRROR_TOKEN")
	setString(&cfg.Calendar.BaseURL, "HEARTH_CALENDAR_URL")

	if v := os.Getenv("HEARTH_SWEEP_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse HEARTH_SWEEP_INTERVAL %q: %w", v, err)
		}
		cfg.Sweep.Interval = duration{parsed}
	}
	if v := os.Getenv("HEARTH_CALENDAR_HALF_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse HEARTH_CALENDAR_HALF_WINDOW %q: %w", v, err)
		}
		cfg.Calendar.HalfWindowDays = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// SweepInterval returns the configured sweep interval as a plain duration.
func (c Config) SweepInterval() time.Duration {
	return c.Sweep.Interval.Duration
}
