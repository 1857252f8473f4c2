package multiplayer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snake-duel/internal/realtime"
)

// cleanupTimeout bounds the guest's own slot removal once the room is gone.
const cleanupTimeout = 5 * time.Second

// Room is one client's handle on a shared room. It observes the record,
// performs the host-only status transitions and turns changes into events.
//
// Events are delivered in order and never dropped, so the consumer must keep
// reading until it calls Leave.
type Room struct {
	code       string
	role       Role
	self       Identity
	difficulty string
	store      realtime.Store
	channel    *Channel
	queue      *EventQueue
	logger     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	sub          realtime.Subscription
	session      MatchSession
	seen         bool
	started      bool
	opponentLeft bool
	closed       bool

	leaveOnce sync.Once
	leaveErr  error
}

func newRoom(store realtime.Store, code string, role Role, self Identity, difficulty string, buffer int, logger *log.Logger) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	return &Room{
		code:       code,
		role:       role,
		self:       self,
		difficulty: difficulty,
		store:      store,
		channel:    NewChannel(store, code),
		queue:      NewEventQueue(buffer, false),
		logger:     logger.With("code", code, "role", role),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (r *Room) observe() error {
	sub, err := r.channel.Subscribe(r.ctx, r.handle)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	return nil
}

// Code returns the room code.
func (r *Room) Code() string { return r.code }

// Role returns the side this client plays.
func (r *Room) Role() Role { return r.role }

// Self returns the local identity.
func (r *Room) Self() Identity { return r.self }

// Difficulty returns the difficulty preset the room was created with.
func (r *Room) Difficulty() string { return r.difficulty }

// Channel returns the replication channel of the room.
func (r *Room) Channel() *Channel { return r.channel }

// Events returns the room event stream.
func (r *Room) Events() <-chan Event { return r.queue.Events() }

// Done is closed once the room stops observing, after it closed or the
// client left.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Session returns the last observed record.
func (r *Room) Session() (MatchSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, r.seen
}

// SetReady writes this client's ready flag.
func (r *Room) SetReady(ctx context.Context, ready bool) error {
	return r.channel.PublishReady(ctx, r.role, ready)
}

// Leave releases the room exactly once. The host deletes the whole room;
// the guest only its own slot.
func (r *Room) Leave(ctx context.Context) error {
	r.leaveOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		sub := r.sub
		r.mu.Unlock()

		r.cancel()
		if sub != nil {
			sub.Close()
		}
		r.queue.Close()

		path := slotPath(r.code, RoleGuest)
		if r.role == RoleHost {
			path = roomPath(r.code)
		}
		if err := r.store.Delete(ctx, path); err != nil {
			r.leaveErr = err
			r.logger.Warn("leave failed", "err", err)
			return
		}
		r.logger.Info("left room")
	})
	return r.leaveErr
}

// handle runs on the subscription goroutine for every snapshot.
func (r *Room) handle(sess MatchSession, exists bool) {
	if !exists {
		r.markClosed()
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	prev, seen := r.session, r.seen
	r.session, r.seen = sess, true
	r.mu.Unlock()

	r.queue.Send(SessionUpdatedEvent{Session: sess})
	if r.role == RoleHost {
		r.hostTransitions(prev, seen, sess)
	}
	r.maybeStart(sess)
}

// hostTransitions implements the host's single-writer status rules.
func (r *Room) hostTransitions(prev MatchSession, seen bool, sess MatchSession) {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()

	switch {
	case sess.Status == StatusWaiting && sess.BothReady():
		r.setStatus(StatusReady)
	case sess.Status == StatusReady && sess.Guest == nil && !started:
		r.setStatus(StatusWaiting)
		if err := r.channel.PublishReady(r.ctx, RoleHost, false); err != nil {
			r.logger.Warn("cannot clear ready flag", "err", err)
		}
	}

	if started && seen && prev.Guest != nil && sess.Guest == nil {
		r.mu.Lock()
		first := !r.opponentLeft
		r.opponentLeft = true
		r.mu.Unlock()
		if first {
			r.logger.Info("opponent left", "status", sess.Status)
			r.queue.Send(OpponentLeftEvent{Code: r.code})
		}
	}
}

// maybeStart emits MatchStartEvent the first time play has begun. The host
// also moves the room on to playing.
func (r *Room) maybeStart(sess MatchSession) {
	if !sess.Status.Started() || sess.Guest == nil {
		return
	}
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	opponent := sess.Slot(r.role.Opponent())
	r.logger.Info("match starting", "opponent", opponent.Name)
	r.queue.Send(MatchStartEvent{
		Code:       r.code,
		Role:       r.role,
		Difficulty: sess.Difficulty,
		Opponent:   *opponent,
	})
	if r.role == RoleHost && sess.Status == StatusReady {
		r.setStatus(StatusPlaying)
	}
}

// Finish marks the room finished. Only the host writes status.
func (r *Room) Finish(ctx context.Context) error {
	if r.role != RoleHost {
		return nil
	}
	return r.channel.SetStatus(ctx, StatusFinished)
}

func (r *Room) setStatus(status Status) {
	if err := r.channel.SetStatus(r.ctx, status); err != nil && r.ctx.Err() == nil {
		r.logger.Warn("status write failed", "status", status, "err", err)
	}
}

func (r *Room) markClosed() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.logger.Info("room closed")
	r.queue.Send(RoomClosedEvent{Code: r.code})
	if r.role == RoleGuest {
		// Late writes of our own slot can outlive the room
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		_ = r.store.Delete(ctx, slotPath(r.code, RoleGuest))
		cancel()
	}
	r.cancel()
}
