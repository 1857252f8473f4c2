// Package realtime provides the shared, path-addressable record store the
// duel clients meet in. A record is a flat map of slash-separated field
// paths to string values; every write notifies the subscribers of the
// enclosing record.
package realtime

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when nothing is stored under the path.
var ErrNotFound = errors.New("realtime: not found")

// Record maps paths relative to the queried path to values.
type Record map[string]string

// Sub returns the fields under prefix with the prefix stripped.
func (r Record) Sub(prefix string) Record {
	prefix = CleanPath(prefix) + "/"
	out := make(Record)
	for k, v := range r {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

// Store is a real-time record store. Writes to different fields are
// independent; Update makes no atomicity promise across fields, so readers
// must tolerate partially applied updates.
type Store interface {
	// Set writes a single field.
	Set(ctx context.Context, path, value string) error
	// Update writes several fields below path.
	Update(ctx context.Context, path string, fields Record) error
	// Get reads every field below path. It returns ErrNotFound when empty.
	Get(ctx context.Context, path string) (Record, error)
	// Delete removes path and everything below it.
	Delete(ctx context.Context, path string) error
	// Subscribe calls fn with the full record below path once right away and
	// again after changes. A nil record means nothing is stored there.
	// Calls are sequential and coalesce, so fn always sees the latest state
	// but not necessarily every intermediate one.
	Subscribe(ctx context.Context, path string, fn func(Record)) (Subscription, error)
}

// Subscription stops delivery when closed. A callback already running may
// finish after Close returns.
type Subscription interface {
	Close()
}

// Locker provides named mutual exclusion across clients.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

type subscriptionFunc func()

func (f subscriptionFunc) Close() { f() }

// CleanPath trims surrounding slashes and collapses empty segments.
func CleanPath(p string) string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// Join joins path segments with slashes.
func Join(parts ...string) string {
	return CleanPath(strings.Join(parts, "/"))
}

// within reports whether p is base or lies below it.
func within(p, base string) bool {
	return p == base || strings.HasPrefix(p, base+"/")
}
