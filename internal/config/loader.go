package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads the configuration and applies environment overrides.
// Search order: customPath -> ~/.snake/config.yaml -> ./configs/snake.yaml -> embedded default
//
// A custom path must exist and parse. Unreadable or invalid files further
// down the search order are skipped.
func Load(customPath string) (Config, error) {
	cfg, err := load(customPath)
	if err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func load(customPath string) (Config, error) {
	if customPath != "" {
		cfg, err := LoadFile(customPath)
		if err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	for _, path := range searchPaths() {
		if cfg, err := LoadFile(path); err == nil {
			return cfg, nil
		}
	}

	return parse(defaultSnakeYAML)
}

// Locate returns the file Load would read, or "" for the embedded default.
func Locate(customPath string) string {
	if customPath != "" {
		return customPath
	}
	for _, path := range searchPaths() {
		if _, err := LoadFile(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadFile reads and parses one YAML file on top of the defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := parse(data)
	if err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func searchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, userConfigDir, "config.yaml"))
	}
	return append(paths, filepath.Join("configs", configFileName))
}

// ApplyEnv overrides values from REDIS_URL and ABLY_API_KEY.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(envRedisURL); v != "" {
		cfg.Realtime.RedisURL = v
	}
	if v := os.Getenv(envAblyAPIKey); v != "" {
		cfg.Realtime.AblyKey = v
	}
}

// Validate reports every problem found in cfg.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	g := c.Grid
	if g.InitialLength < 1 {
		add("grid.initial_length must be positive, got %d", g.InitialLength)
	}
	if g.Width < 1 || g.Height < 1 {
		add("grid must be at least 1x1, got %dx%d", g.Width, g.Height)
	} else if g.Width < g.InitialLength || g.Width*g.Height <= g.InitialLength {
		add("grid %dx%d has no room for a snake of %d plus food", g.Width, g.Height, g.InitialLength)
	}
	if _, err := c.WallPolicy(); err != nil {
		add("grid.walls: %v", err)
	}
	if c.Scoring.BasePoints <= 0 {
		add("scoring.base_points must be positive, got %d", c.Scoring.BasePoints)
	}

	if len(c.Difficulties) == 0 {
		add("at least one difficulty is required")
	}
	seen := make(map[string]bool, len(c.Difficulties))
	for _, d := range c.Difficulties {
		if d.ID == "" {
			add("difficulty without id")
			continue
		}
		if seen[d.ID] {
			add("duplicate difficulty %q", d.ID)
		}
		seen[d.ID] = true
		if d.Tick <= 0 {
			add("difficulty %q: tick must be positive", d.ID)
		}
		if d.Multiplier <= 0 {
			add("difficulty %q: multiplier must be positive", d.ID)
		}
	}
	if c.DefaultDifficulty != "" && !seen[c.DefaultDifficulty] {
		add("default_difficulty %q is not defined", c.DefaultDifficulty)
	}

	if c.Leaderboard.StorageCap <= 0 || c.Leaderboard.DisplayCap <= 0 {
		add("leaderboard caps must be positive")
	}

	switch c.Realtime.Backend {
	case BackendMemory, BackendRedis:
	default:
		add("realtime.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Realtime.Backend)
	}
	switch c.Realtime.Notifier {
	case NotifierRedis:
	case NotifierAbly:
		if c.Realtime.AblyKey == "" && c.Realtime.Backend == BackendRedis {
			add("realtime.notifier ably needs realtime.ably_key or %s", envAblyAPIKey)
		}
	default:
		add("realtime.notifier must be %q or %q, got %q", NotifierRedis, NotifierAbly, c.Realtime.Notifier)
	}

	return errors.Join(errs...)
}
