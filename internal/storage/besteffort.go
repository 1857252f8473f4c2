package storage

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snake-duel/internal/multiplayer"
)

// BestEffort wraps a Store so persistence never interrupts play. Failures
// are logged and degrade to empty or default results. A nil Store is
// allowed and behaves like an empty database that drops writes.
type BestEffort struct {
	store  *Store
	logger *log.Logger
}

// NewBestEffort wraps store. logger may be nil.
func NewBestEffort(store *Store, logger *log.Logger) *BestEffort {
	if logger == nil {
		logger = log.Default()
	}
	return &BestEffort{store: store, logger: logger}
}

// Available reports whether a database is attached.
func (b *BestEffort) Available() bool {
	return b != nil && b.store != nil
}

// SaveScore stores entry and returns the updated leaderboard for its
// difficulty, or nil on failure.
func (b *BestEffort) SaveScore(entry HighScoreEntry) []HighScoreEntry {
	if !b.Available() {
		return nil
	}
	entries, err := b.store.SaveScore(entry)
	if err != nil {
		b.logger.Warn("save score failed", "err", err)
		return nil
	}
	return entries
}

// GetTopScores returns the leaderboard, or nil on failure.
func (b *BestEffort) GetTopScores(difficulty string, limit int) []HighScoreEntry {
	if !b.Available() {
		return nil
	}
	entries, err := b.store.GetTopScores(difficulty, limit)
	if err != nil {
		b.logger.Warn("load scores failed", "err", err)
		return nil
	}
	return entries
}

// TopScore returns the best score, or 0 on failure.
func (b *BestEffort) TopScore(difficulty string) int {
	if !b.Available() {
		return 0
	}
	score, err := b.store.TopScore(difficulty)
	if err != nil {
		b.logger.Warn("load top score failed", "err", err)
		return 0
	}
	return score
}

// ClearScores empties the leaderboard and reports whether it succeeded.
func (b *BestEffort) ClearScores() bool {
	if !b.Available() {
		return false
	}
	if _, err := b.store.ClearScores(); err != nil {
		b.logger.Warn("clear scores failed", "err", err)
		return false
	}
	return true
}

// GetProfile returns the saved profile, or DefaultProfile on failure.
func (b *BestEffort) GetProfile() Profile {
	if !b.Available() {
		return DefaultProfile()
	}
	p, err := b.store.GetProfile()
	if err != nil {
		b.logger.Warn("load profile failed", "err", err)
		return DefaultProfile()
	}
	return p
}

// SaveProfile stores p and reports whether it succeeded.
func (b *BestEffort) SaveProfile(p Profile) bool {
	if !b.Available() {
		return false
	}
	if err := b.store.SaveProfile(p); err != nil {
		b.logger.Warn("save profile failed", "err", err)
		return false
	}
	return true
}

// RecentMatches returns recent duels, or nil on failure.
func (b *BestEffort) RecentMatches(limit int) []MatchRecord {
	if !b.Available() {
		return nil
	}
	matches, err := b.store.RecentMatches(limit)
	if err != nil {
		b.logger.Warn("load matches failed", "err", err)
		return nil
	}
	return matches
}

// RecordMatch implements multiplayer.MatchRecorder.
func (b *BestEffort) RecordMatch(r multiplayer.MatchResult) {
	if !b.Available() {
		return
	}
	_, err := b.store.SaveMatch(MatchRecord{
		Code:        r.Code,
		Role:        string(r.Role),
		Difficulty:  r.Difficulty,
		LocalName:   r.LocalName,
		RemoteName:  r.RemoteName,
		LocalScore:  r.LocalScore,
		RemoteScore: r.RemoteScore,
		Verdict:     r.Verdict.String(),
		Reason:      r.Reason.String(),
		CreatedAt:   r.EndedAt,
	})
	if err != nil {
		b.logger.Warn("save match failed", "code", r.Code, "err", err)
	}
}

// Ensure BestEffort implements MatchRecorder
var _ multiplayer.MatchRecorder = (*BestEffort)(nil)
