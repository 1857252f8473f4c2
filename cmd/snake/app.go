package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snake-duel/internal/config"
	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/realtime"
	"github.com/vovakirdan/snake-duel/internal/storage"
)

// app holds what every command opens: configuration, logger and scores.
type app struct {
	cfgPath string
	holder  *config.Holder
	logger  *log.Logger
	store   *storage.Store // Nil when the database cannot be opened
	scores  *storage.BestEffort
	closers []func()
}

// openApp loads the configuration and opens the scores database. When
// logFile is set, logs go to ~/.snake/snake.log so they do not corrupt
// the TUI.
func openApp(logFile bool) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfgPath: config.Locate(flagConfig),
		holder:  config.NewHolder(cfg),
	}

	var out io.Writer = os.Stderr
	if logFile {
		f, err := openLogFile()
		if err != nil {
			out = io.Discard
		} else {
			out = f
			a.closers = append(a.closers, func() { f.Close() })
		}
	}
	a.logger = newLogger(out)

	dbPath := cfg.Storage.Path
	if flagDBPath != "" {
		dbPath = flagDBPath
	}
	store, err := storage.Open(dbPath, storage.WithCaps(cfg.Leaderboard.StorageCap, cfg.Leaderboard.DisplayCap))
	if err != nil {
		a.logger.Warn("could not open scores database", "path", dbPath, "err", err)
		store = nil
	} else {
		a.closers = append(a.closers, func() { store.Close() })
	}
	a.store = store
	a.scores = storage.NewBestEffort(store, a.logger)
	return a, nil
}

func newLogger(out io.Writer) *log.Logger {
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          "snake",
	})
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func openLogFile() (*os.File, error) {
	path, err := storage.ExpandHome("~/.snake/snake.log")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Close releases everything opened by the app, last opened first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// playerName returns the profile name unless override is set.
func (a *app) playerName(override string) string {
	if override != "" {
		return override
	}
	return a.scores.GetProfile().Name
}

// rooms is the shared room store and what the lobby needs on top of it.
type rooms struct {
	lobby  *multiplayer.Lobby
	lister multiplayer.RoomLister // Nil when the backend expires rooms itself
}

// openRooms connects the configured realtime backend. Without shared
// rooms requested, the memory backend only serves this process.
func (a *app) openRooms(ctx context.Context) (*rooms, error) {
	cfg := a.holder.Load()
	lobbyOpts := []multiplayer.LobbyOption{
		multiplayer.WithLobbyConfig(cfg.LobbyConfig()),
		multiplayer.WithLobbyLogger(a.logger),
	}

	switch cfg.Realtime.Backend {
	case config.BackendMemory:
		store := realtime.NewMemoryStore()
		return &rooms{
			lobby:  multiplayer.NewLobby(store, realtime.NewMemoryLocker(), lobbyOpts...),
			lister: store,
		}, nil

	case config.BackendRedis:
		rdb, err := realtime.Dial(ctx, cfg.Realtime.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { rdb.Close() })

		storeOpts := []realtime.RedisOption{
			realtime.WithRecordTTL(cfg.Realtime.RoomTTL),
			realtime.WithStoreLogger(a.logger),
		}
		if cfg.Realtime.Notifier == config.NotifierAbly {
			notifier, err := realtime.NewAblyNotifier(cfg.Realtime.AblyKey)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, notifier.Close)
			storeOpts = append(storeOpts, realtime.WithNotifier(notifier))
		}

		store := realtime.NewRedisStore(rdb, storeOpts...)
		locker := realtime.NewRedsyncLocker(rdb, cfg.Realtime.LockExpiry)
		a.logger.Info("connected to redis", "notifier", cfg.Realtime.Notifier)
		return &rooms{lobby: multiplayer.NewLobby(store, locker, lobbyOpts...)}, nil
	}
	return nil, fmt.Errorf("unknown realtime backend %q", cfg.Realtime.Backend)
}
