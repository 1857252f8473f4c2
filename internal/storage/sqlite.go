// Package storage provides SQLite-based persistence for high scores, the
// local profile and duel history.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	// DefaultStorageCap is how many scores are kept per difficulty.
	DefaultStorageCap = 100
	// DefaultDisplayCap is the largest leaderboard page returned.
	DefaultDisplayCap = 50

	timeLayout = "2006-01-02 15:04:05.000"
)

// Store manages the SQLite database connection.
type Store struct {
	db         *sql.DB
	storageCap int
	displayCap int
}

// HighScoreEntry is a single leaderboard row.
type HighScoreEntry struct {
	ID         int64
	PlayerName string
	Score      int
	Difficulty string
	CreatedAt  time.Time
}

// Profile is the locally saved player profile.
type Profile struct {
	Name       string
	Avatar     string
	Difficulty string
}

// DefaultProfile is returned when no profile has been saved yet.
func DefaultProfile() Profile {
	return Profile{Name: "Player", Difficulty: "medium"}
}

// MatchRecord is a finished duel as seen by the local player.
type MatchRecord struct {
	ID          int64
	Code        string
	Role        string
	Difficulty  string
	LocalName   string
	RemoteName  string
	LocalScore  int
	RemoteScore int
	Verdict     string
	Reason      string
	CreatedAt   time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCaps overrides the storage and display caps. Non-positive values keep
// the defaults.
func WithCaps(storageCap, displayCap int) Option {
	return func(s *Store) {
		if storageCap > 0 {
			s.storageCap = storageCap
		}
		if displayCap > 0 {
			s.displayCap = displayCap
		}
	}
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string, opts ...Option) (*Store, error) {
	dbPath, err := ExpandHome(dbPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between SSH sessions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db, storageCap: DefaultStorageCap, displayCap: DefaultDisplayCap}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("storage: cannot expand home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS high_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_name TEXT NOT NULL,
			score INTEGER NOT NULL,
			difficulty TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_high_scores_top ON high_scores(difficulty, score DESC);

		CREATE TABLE IF NOT EXISTS profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS duel_matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL,
			role TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			local_name TEXT NOT NULL,
			remote_name TEXT NOT NULL,
			local_score INTEGER NOT NULL DEFAULT 0,
			remote_score INTEGER NOT NULL DEFAULT 0,
			verdict TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_duel_matches_created ON duel_matches(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveScore appends an entry and drops the lowest scores of its difficulty
// beyond the storage cap. It returns the updated leaderboard for that
// difficulty.
func (s *Store) SaveScore(entry HighScoreEntry) ([]HighScoreEntry, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("storage: cannot save score: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO high_scores (player_name, score, difficulty, created_at) VALUES (?, ?, ?, ?)",
		entry.PlayerName, entry.Score, entry.Difficulty, formatTime(entry.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("storage: cannot save score: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM high_scores
		 WHERE difficulty = ? AND id NOT IN (
			SELECT id FROM high_scores
			WHERE difficulty = ?
			ORDER BY score DESC, id ASC
			LIMIT ?
		 )`,
		entry.Difficulty, entry.Difficulty, s.storageCap,
	); err != nil {
		return nil, fmt.Errorf("storage: cannot trim scores: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: cannot save score: %w", err)
	}

	return s.GetTopScores(entry.Difficulty, s.displayCap)
}

// GetTopScores retrieves the best scores, highest first. An empty
// difficulty means every difficulty. limit is capped at the display cap.
func (s *Store) GetTopScores(difficulty string, limit int) ([]HighScoreEntry, error) {
	if limit <= 0 || limit > s.displayCap {
		limit = s.displayCap
	}

	query := `SELECT id, player_name, score, difficulty, created_at FROM high_scores`
	args := []any{}
	if difficulty != "" {
		query += ` WHERE difficulty = ?`
		args = append(args, difficulty)
	}
	query += ` ORDER BY score DESC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	defer rows.Close()

	var entries []HighScoreEntry
	for rows.Next() {
		var e HighScoreEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.PlayerName, &e.Score, &e.Difficulty, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// TopScore returns the highest score for the difficulty, or 0 when there
// is none. An empty difficulty means every difficulty.
func (s *Store) TopScore(difficulty string) (int, error) {
	query := "SELECT MAX(score) FROM high_scores"
	args := []any{}
	if difficulty != "" {
		query += " WHERE difficulty = ?"
		args = append(args, difficulty)
	}

	var score sql.NullInt64
	if err := s.db.QueryRow(query, args...).Scan(&score); err != nil {
		return 0, fmt.Errorf("storage: cannot query top score: %w", err)
	}
	if !score.Valid {
		return 0, nil
	}
	return int(score.Int64), nil
}

// ClearScores deletes the whole leaderboard. It reports whether anything
// was removed.
func (s *Store) ClearScores() (bool, error) {
	res, err := s.db.Exec("DELETE FROM high_scores")
	if err != nil {
		return false, fmt.Errorf("storage: cannot clear scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: cannot clear scores: %w", err)
	}
	return n > 0, nil
}

// GetProfile returns the saved profile, or DefaultProfile when none exists.
func (s *Store) GetProfile() (Profile, error) {
	var p Profile
	err := s.db.QueryRow("SELECT name, avatar, difficulty FROM profile WHERE id = 1").
		Scan(&p.Name, &p.Avatar, &p.Difficulty)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("storage: cannot read profile: %w", err)
	}
	return p, nil
}

// SaveProfile replaces the saved profile.
func (s *Store) SaveProfile(p Profile) error {
	_, err := s.db.Exec(
		`INSERT INTO profile (id, name, avatar, difficulty) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, avatar = excluded.avatar, difficulty = excluded.difficulty`,
		p.Name, p.Avatar, p.Difficulty,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save profile: %w", err)
	}
	return nil
}

// SaveMatch records a finished duel.
// Returns the ID of the inserted record.
func (s *Store) SaveMatch(m MatchRecord) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO duel_matches
		 (code, role, difficulty, local_name, remote_name, local_score, remote_score, verdict, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Code, m.Role, m.Difficulty, m.LocalName, m.RemoteName,
		m.LocalScore, m.RemoteScore, m.Verdict, m.Reason, formatTime(m.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// RecentMatches retrieves the most recent duels, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, code, role, difficulty, local_name, remote_name,
		        local_score, remote_score, verdict, reason, created_at
		 FROM duel_matches
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var results []MatchRecord
	for rows.Next() {
		var m MatchRecord
		var createdAt any
		if err := rows.Scan(
			&m.ID,
			&m.Code,
			&m.Role,
			&m.Difficulty,
			&m.LocalName,
			&m.RemoteName,
			&m.LocalScore,
			&m.RemoteScore,
			&m.Verdict,
			&m.Reason,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime handles both time.Time and string, depending on how the driver
// returns the column.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{timeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
