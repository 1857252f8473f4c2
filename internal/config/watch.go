package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Holder shares the current configuration between goroutines. New sessions
// read it when they start; running matches keep the values they began with.
type Holder struct {
	cfg atomic.Pointer[Config]
}

// NewHolder creates a holder with an initial configuration.
func NewHolder(cfg Config) *Holder {
	h := &Holder{}
	h.Store(cfg)
	return h
}

// Load returns the current configuration.
func (h *Holder) Load() Config {
	return *h.cfg.Load()
}

// Store replaces the configuration.
func (h *Holder) Store(cfg Config) {
	h.cfg.Store(&cfg)
}

// Reload reads path and stores it if it is valid.
func (h *Holder) Reload(path string) error {
	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	h.Store(cfg)
	return nil
}

// Watch reloads path into h whenever the file changes, until ctx is done.
// Invalid edits are logged and the previous configuration is kept. The
// parent directory is watched so editors that replace the file are seen.
func Watch(ctx context.Context, path string, h *Holder, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	logger.Info("watching config", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != abs {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			if err := h.Reload(abs); err != nil {
				logger.Warn("config reload rejected", "path", abs, "err", err)
				continue
			}
			logger.Info("config reloaded", "path", abs)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "err", err)
		}
	}
}
