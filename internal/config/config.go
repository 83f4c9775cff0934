package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "chores.db"
	DefaultLogName        = "chores.log"
	appDirName            = "chores"

	DefaultRefreshInterval = 30 * time.Second
	DefaultHistoryDays     = 365
)

type Keymap struct {
	Quit     string `toml:"quit"`
	Add      string `toml:"add"`
	Up       string `toml:"up"`
	Down     string `toml:"down"`
	Done     string `toml:"done"`
	Reset    string `toml:"reset"`
	ForceDue string `toml:"force_due"`
	Delete   string `toml:"delete"`
	Detail   string `toml:"detail"`
	Confirm  string `toml:"confirm"`
	Cancel   string `toml:"cancel"`
	Edit     string `toml:"edit"`
	Refresh  string `toml:"refresh"`
}

type LogConfig struct {
	Level    string `toml:"level"`
	Encoding string `toml:"encoding"`
	Path     string `toml:"path"`
}

type Config struct {
	DBPath string `toml:"db_path"`
	// Person is recorded as the one who completed a chore.
	Person          string   `toml:"person"`
	RefreshInterval Duration `toml:"refresh_interval"`
	// HistoryDays is how long completions are kept by prune.
	HistoryDays int       `toml:"history_days"`
	Log         LogConfig `toml:"log"`
	Keys        Keymap    `toml:"keys"`
}

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// ResolveConfigPath honours CHORES_CONFIG, then the user config dir, then
// the working directory.
func ResolveConfigPath() string {
	if p := os.Getenv("CHORES_CONFIG"); p != "" {
		return p
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName, DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

// LoadOrCreate reads the TOML config at path, writing defaults there on
// first launch. Values from the environment (and a .env file, if present)
// override the file.
func LoadOrCreate(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaultConfig(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return applyEnv(cfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(path), DefaultDBName)
	}
	if cfg.RefreshInterval.Duration <= 0 {
		cfg.RefreshInterval.Duration = DefaultRefreshInterval
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = DefaultHistoryDays
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	cfg.DBPath = getString("CHORES_DB_PATH", cfg.DBPath)
	cfg.Person = getString("CHORES_PERSON", cfg.Person)
	cfg.Log.Level = getString("CHORES_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Encoding = getString("CHORES_LOG_ENCODING", cfg.Log.Encoding)
	cfg.Log.Path = getString("CHORES_LOG_PATH", cfg.Log.Path)
	cfg.RefreshInterval.Duration = getDuration("CHORES_REFRESH_INTERVAL", cfg.RefreshInterval.Duration)
	cfg.HistoryDays = getInt("CHORES_HISTORY_DAYS", cfg.HistoryDays)
	return cfg
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig(dir string) Config {
	person := os.Getenv("USER")
	if person == "" {
		person = "someone"
	}
	return Config{
		DBPath:          filepath.Join(dir, DefaultDBName),
		Person:          person,
		RefreshInterval: Duration{DefaultRefreshInterval},
		HistoryDays:     DefaultHistoryDays,
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
			Path:     filepath.Join(dir, DefaultLogName),
		},
		Keys: Keymap{
			Quit:     "q",
			Add:      "a",
			Up:       "k",
			Down:     "j",
			Done:     " ",
			Reset:    "u",
			ForceDue: "f",
			Delete:   "d",
			Detail:   "enter",
			Confirm:  "enter",
			Cancel:   "esc",
			Edit:     "e",
			Refresh:  "r",
		},
	}
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
