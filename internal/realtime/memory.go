package realtime

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and the SSH server,
// where every client lives in the same process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
	subs map[*memorySub]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
		subs: make(map[*memorySub]struct{}),
	}
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, path, value string) error {
	path = CleanPath(path)
	s.mu.Lock()
	s.data[path] = value
	s.mu.Unlock()
	s.notify(path)
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, path string, fields Record) error {
	path = CleanPath(path)
	s.mu.Lock()
	for k, v := range fields {
		s.data[Join(path, k)] = v
	}
	s.mu.Unlock()
	s.notify(path)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, path string) (Record, error) {
	rec := s.snapshot(CleanPath(path))
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, path string) error {
	path = CleanPath(path)
	s.mu.Lock()
	for k := range s.data {
		if within(k, path) {
			delete(s.data, k)
		}
	}
	s.mu.Unlock()
	s.notify(path)
	return nil
}

// Subscribe implements Store.
func (s *MemoryStore) Subscribe(ctx context.Context, path string, fn func(Record)) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &memorySub{
		path:   CleanPath(path),
		fn:     fn,
		signal: make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	sub.poke()
	go sub.run(ctx, s)

	return subscriptionFunc(func() {
		cancel()
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	}), nil
}

// Len returns the number of stored fields.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Paths returns the distinct record paths at the given depth, e.g. depth 2
// lists "rooms/ABC123" for every room.
func (s *MemoryStore) Paths(depth int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for k := range s.data {
		parts := strings.Split(k, "/")
		if len(parts) < depth {
			continue
		}
		p := strings.Join(parts[:depth], "/")
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func (s *MemoryStore) snapshot(path string) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rec Record
	for k, v := range s.data {
		if !within(k, path) {
			continue
		}
		if rec == nil {
			rec = make(Record)
		}
		rec[strings.TrimPrefix(strings.TrimPrefix(k, path), "/")] = v
	}
	return rec
}

func (s *MemoryStore) notify(changed string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs {
		if within(changed, sub.path) || within(sub.path, changed) {
			sub.poke()
		}
	}
}

type memorySub struct {
	path   string
	fn     func(Record)
	signal chan struct{}
}

// poke marks the subscription dirty. A pending signal already covers the
// new change.
func (m *memorySub) poke() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *memorySub) run(ctx context.Context, s *MemoryStore) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.signal:
			if ctx.Err() != nil {
				return
			}
			m.fn(s.snapshot(m.path))
		}
	}
}

// MemoryLocker is an in-process Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewMemoryLocker creates a locker with no held locks.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]chan struct{})}
}

// Lock implements Locker. It waits until the name is free or ctx is done.
func (l *MemoryLocker) Lock(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[name] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
