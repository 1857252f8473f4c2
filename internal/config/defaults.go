package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/snake.yaml
var defaultSnakeYAML []byte

// Default returns the built-in configuration. It matches the embedded YAML.
func Default() Config {
	return Config{
		Grid: GridConfig{
			Width:           20,
			Height:          20,
			Walls:           "wrap",
			MaxFoodAttempts: 1000,
			InitialLength:   3,
		},
		Scoring:           ScoringConfig{BasePoints: 10},
		DefaultDifficulty: "medium",
		Difficulties: []DifficultyPreset{
			{ID: "easy", Label: "Easy", Tick: 150 * time.Millisecond, Multiplier: 1},
			{ID: "medium", Label: "Medium", Tick: 100 * time.Millisecond, Multiplier: 1.5},
			{ID: "hard", Label: "Hard", Tick: 60 * time.Millisecond, Multiplier: 2},
			{ID: "expert", Label: "Expert", Tick: 40 * time.Millisecond, Multiplier: 3},
		},
		Leaderboard: LeaderboardConfig{StorageCap: 100, DisplayCap: 50},
		Lobby: LobbyConfig{
			CodeAttempts:  5,
			LobbyTimeout:  10 * time.Minute,
			CleanupPeriod: 30 * time.Second,
		},
		Realtime: RealtimeConfig{
			Backend:    BackendMemory,
			RedisURL:   "redis://localhost:6379/0",
			Notifier:   NotifierRedis,
			LockExpiry: 8 * time.Second,
			RoomTTL:    time.Hour,
		},
		Server: ServerConfig{
			SSHAddr:     ":2222",
			HostKey:     "~/.snake/ssh_host_ed25519",
			HTTPAddr:    ":8080",
			IdleTimeout: 30 * time.Minute,
		},
		Storage: StorageConfig{Path: "~/.snake/scores.db"},
	}
}
