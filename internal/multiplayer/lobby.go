package multiplayer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snake-duel/internal/realtime"
)

// LobbyConfig holds lobby tuning.
type LobbyConfig struct {
	CodeAttempts  int           // Codes tried before giving up on creation
	LobbyTimeout  time.Duration // How long a room may wait for a guest
	CleanupPeriod time.Duration // How often the janitor sweeps
	EventBuffer   int           // Room event queue size
}

// DefaultLobbyConfig returns sensible defaults.
func DefaultLobbyConfig() LobbyConfig {
	return LobbyConfig{
		CodeAttempts:  5,
		LobbyTimeout:  10 * time.Minute,
		CleanupPeriod: 30 * time.Second,
		EventBuffer:   64,
	}
}

// Lobby creates and joins rooms in a realtime store.
type Lobby struct {
	store   realtime.Store
	locker  realtime.Locker
	config  LobbyConfig
	logger  *log.Logger
	newCode func() string
	now     func() time.Time
}

// LobbyOption configures a Lobby.
type LobbyOption func(*Lobby)

// WithLobbyConfig overrides DefaultLobbyConfig.
func WithLobbyConfig(cfg LobbyConfig) LobbyOption {
	return func(l *Lobby) { l.config = cfg }
}

// WithLobbyLogger sets the logger.
func WithLobbyLogger(logger *log.Logger) LobbyOption {
	return func(l *Lobby) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithCodeGenerator replaces GenerateCode, e.g. to force collisions in
// tests.
func WithCodeGenerator(gen func() string) LobbyOption {
	return func(l *Lobby) { l.newCode = gen }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LobbyOption {
	return func(l *Lobby) { l.now = now }
}

// NewLobby creates a lobby on store. The locker serialises room creation and
// joins across clients.
func NewLobby(store realtime.Store, locker realtime.Locker, opts ...LobbyOption) *Lobby {
	l := &Lobby{
		store:   store,
		locker:  locker,
		config:  DefaultLobbyConfig(),
		logger:  log.Default(),
		newCode: GenerateCode,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.config.CodeAttempts < 1 {
		l.config.CodeAttempts = 1
	}
	return l
}

// CreateRoom claims a fresh code, writes a waiting room with id as host and
// starts observing it.
func (l *Lobby) CreateRoom(ctx context.Context, id Identity, difficulty string) (*Room, error) {
	for attempt := 0; attempt < l.config.CodeAttempts; attempt++ {
		code := l.newCode()
		claimed, err := l.claim(ctx, code, id, difficulty)
		if err != nil {
			return nil, err
		}
		if !claimed {
			l.logger.Debug("room code collision", "code", code, "attempt", attempt+1)
			continue
		}
		l.logger.Info("room created", "code", code, "host", id.Name, "difficulty", difficulty)
		return l.open(code, RoleHost, id, difficulty)
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrNoFreeCode, l.config.CodeAttempts)
}

// claim writes the room under the lock unless the code is taken.
func (l *Lobby) claim(ctx context.Context, code string, id Identity, difficulty string) (bool, error) {
	unlock, err := l.locker.Lock(ctx, roomPath(code))
	if err != nil {
		return false, fmt.Errorf("multiplayer: create room: %w", err)
	}
	defer unlock()

	_, err = l.store.Get(ctx, roomPath(code))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, realtime.ErrNotFound) {
		return false, fmt.Errorf("multiplayer: create room: %w", err)
	}

	fields := realtime.Record{
		fieldStatus:     string(StatusWaiting),
		fieldDifficulty: difficulty,
		fieldCreatedAt:  l.now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range slotRecord(id) {
		fields[realtime.Join(string(RoleHost), k)] = v
	}
	if err := l.store.Update(ctx, roomPath(code), fields); err != nil {
		return false, fmt.Errorf("multiplayer: create room: %w", err)
	}
	return true, nil
}

// JoinRoom takes the guest slot of the room with the given code.
func (l *Lobby) JoinRoom(ctx context.Context, code string, id Identity) (*Room, error) {
	code, err := ValidateCode(code)
	if err != nil {
		return nil, err
	}

	unlock, err := l.locker.Lock(ctx, roomPath(code))
	if err != nil {
		return nil, fmt.Errorf("multiplayer: join room: %w", err)
	}
	defer unlock()

	sess, err := l.peek(ctx, code)
	if err != nil {
		return nil, err
	}
	switch {
	case sess.Host.ID == id.ID:
		return nil, ErrOwnRoom
	case sess.Guest != nil:
		return nil, ErrRoomFull
	case sess.Status != StatusWaiting:
		return nil, fmt.Errorf("%w: match already %s", ErrRoomFull, sess.Status)
	}

	if err := l.store.Update(ctx, slotPath(code, RoleGuest), slotRecord(id)); err != nil {
		return nil, fmt.Errorf("multiplayer: join room: %w", err)
	}
	l.logger.Info("room joined", "code", code, "guest", id.Name)
	return l.open(code, RoleGuest, id, sess.Difficulty)
}

// Peek reads a room without joining it.
func (l *Lobby) Peek(ctx context.Context, code string) (MatchSession, error) {
	code, err := ValidateCode(code)
	if err != nil {
		return MatchSession{}, err
	}
	return l.peek(ctx, code)
}

func (l *Lobby) peek(ctx context.Context, code string) (MatchSession, error) {
	rec, err := l.store.Get(ctx, roomPath(code))
	if errors.Is(err, realtime.ErrNotFound) {
		return MatchSession{}, ErrRoomNotFound
	}
	if err != nil {
		return MatchSession{}, fmt.Errorf("multiplayer: read room %s: %w", code, err)
	}
	sess, ok := DecodeSession(code, rec)
	if !ok {
		return MatchSession{}, ErrRoomNotFound
	}
	return sess, nil
}

func (l *Lobby) open(code string, role Role, id Identity, difficulty string) (*Room, error) {
	r := newRoom(l.store, code, role, id, difficulty, l.config.EventBuffer, l.logger)
	if err := r.observe(); err != nil {
		_ = r.Leave(context.Background())
		return nil, err
	}
	return r, nil
}

// RoomLister enumerates record paths; realtime.MemoryStore implements it.
type RoomLister interface {
	Paths(depth int) []string
}

// Sweep deletes rooms that waited longer than the lobby timeout without a
// guest, and leftovers without a host. It returns how many were removed.
func (l *Lobby) Sweep(ctx context.Context, lister RoomLister) int {
	removed := 0
	now := l.now()
	for _, p := range lister.Paths(2) {
		code, ok := strings.CutPrefix(p, roomsRoot+"/")
		if !ok {
			continue
		}
		sess, err := l.peek(ctx, code)
		switch {
		case errors.Is(err, ErrRoomNotFound):
			// Fields left behind by a late write after the host deleted the room
		case err != nil:
			l.logger.Warn("sweep: read failed", "code", code, "err", err)
			continue
		case sess.Guest == nil && sess.Status == StatusWaiting && now.Sub(sess.CreatedAt) > l.config.LobbyTimeout:
			l.logger.Info("room expired", "code", code, "host", sess.Host.Name)
		default:
			continue
		}
		if err := l.store.Delete(ctx, roomPath(code)); err != nil {
			l.logger.Warn("sweep: delete failed", "code", code, "err", err)
			continue
		}
		removed++
	}
	return removed
}

// RunJanitor sweeps periodically until ctx is done.
func (l *Lobby) RunJanitor(ctx context.Context, lister RoomLister) error {
	period := l.config.CleanupPeriod
	if period <= 0 {
		period = DefaultLobbyConfig().CleanupPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.Sweep(ctx, lister); n > 0 {
				l.logger.Debug("janitor swept rooms", "count", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
