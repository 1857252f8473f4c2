package multiplayer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vovakirdan/snake-duel/internal/realtime"
)

// Channel replicates per-player progress through the room record. Each
// field has a single writer, so last-writer-wins needs no conflict
// resolution.
type Channel struct {
	store realtime.Store
	code  string
}

// NewChannel creates a channel for the room with the given code.
func NewChannel(store realtime.Store, code string) *Channel {
	return &Channel{store: store, code: code}
}

// Code returns the room code.
func (c *Channel) Code() string {
	return c.code
}

// PublishScore writes the role's score.
func (c *Channel) PublishScore(ctx context.Context, role Role, score int) error {
	if err := c.store.Set(ctx, fieldPath(c.code, role, fieldScore), strconv.Itoa(score)); err != nil {
		return fmt.Errorf("multiplayer: publish score: %w", err)
	}
	return nil
}

// PublishTermination marks the role's run as over.
func (c *Channel) PublishTermination(ctx context.Context, role Role) error {
	if err := c.store.Set(ctx, fieldPath(c.code, role, fieldTerminated), "true"); err != nil {
		return fmt.Errorf("multiplayer: publish termination: %w", err)
	}
	return nil
}

// PublishReady writes the role's ready flag.
func (c *Channel) PublishReady(ctx context.Context, role Role, ready bool) error {
	if err := c.store.Set(ctx, fieldPath(c.code, role, fieldReady), strconv.FormatBool(ready)); err != nil {
		return fmt.Errorf("multiplayer: publish ready: %w", err)
	}
	return nil
}

// SetStatus writes the room status. Only the host calls it.
func (c *Channel) SetStatus(ctx context.Context, status Status) error {
	if err := c.store.Set(ctx, realtime.Join(roomPath(c.code), fieldStatus), string(status)); err != nil {
		return fmt.Errorf("multiplayer: set status %s: %w", status, err)
	}
	return nil
}

// Subscribe calls fn with the full decoded session on every change. exists
// is false once the room is gone.
func (c *Channel) Subscribe(ctx context.Context, fn func(sess MatchSession, exists bool)) (realtime.Subscription, error) {
	sub, err := c.store.Subscribe(ctx, roomPath(c.code), func(rec realtime.Record) {
		sess, ok := DecodeSession(c.code, rec)
		fn(sess, ok)
	})
	if err != nil {
		return nil, fmt.Errorf("multiplayer: subscribe %s: %w", c.code, err)
	}
	return sub, nil
}
