// Package config provides YAML-based configuration loading and difficulty
// presets for snake duel.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Grid              GridConfig         `yaml:"grid"`
	Scoring           ScoringConfig      `yaml:"scoring"`
	DefaultDifficulty string             `yaml:"default_difficulty"`
	Difficulties      []DifficultyPreset `yaml:"difficulties"`
	Leaderboard       LeaderboardConfig  `yaml:"leaderboard"`
	Lobby             LobbyConfig        `yaml:"lobby"`
	Realtime          RealtimeConfig     `yaml:"realtime"`
	Server            ServerConfig       `yaml:"server"`
	Storage           StorageConfig      `yaml:"storage"`
}

// GridConfig defines the playing field.
type GridConfig struct {
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	Walls           string `yaml:"walls"` // "wrap" or "walls"
	MaxFoodAttempts int    `yaml:"max_food_attempts"`
	InitialLength   int    `yaml:"initial_length"`
}

// ScoringConfig defines points per food before the difficulty multiplier.
type ScoringConfig struct {
	BasePoints int `yaml:"base_points"`
}

// DifficultyPreset is a named speed and score multiplier.
type DifficultyPreset struct {
	ID         string        `yaml:"id"`
	Label      string        `yaml:"label"`
	Tick       time.Duration `yaml:"tick"`
	Multiplier float64       `yaml:"multiplier"`
}

// LeaderboardConfig bounds the local high score table.
type LeaderboardConfig struct {
	StorageCap int `yaml:"storage_cap"` // Rows kept per difficulty
	DisplayCap int `yaml:"display_cap"` // Rows returned per query
}

// LobbyConfig tunes room creation and cleanup.
type LobbyConfig struct {
	CodeAttempts  int           `yaml:"code_attempts"`
	LobbyTimeout  time.Duration `yaml:"lobby_timeout"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
}

// RealtimeConfig selects the shared room store.
type RealtimeConfig struct {
	Backend    string        `yaml:"backend"`  // "memory" or "redis"
	RedisURL   string        `yaml:"redis_url"`
	Notifier   string        `yaml:"notifier"` // "redis" or "ably"
	AblyKey    string        `yaml:"ably_key"`
	LockExpiry time.Duration `yaml:"lock_expiry"`
	RoomTTL    time.Duration `yaml:"room_ttl"`
}

// ServerConfig configures snake serve.
type ServerConfig struct {
	SSHAddr     string        `yaml:"ssh_addr"`
	HostKey     string        `yaml:"host_key"`
	HTTPAddr    string        `yaml:"http_addr"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Realtime backends and notifiers.
const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	NotifierRedis  = "redis"
	NotifierAbly   = "ably"
	envRedisURL    = "REDIS_URL"
	envAblyAPIKey  = "ABLY_API_KEY"
	userConfigDir  = ".snake"
	configFileName = "snake.yaml"
)
