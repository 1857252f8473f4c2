package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStoreFieldMapping(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewRedisStore(rdb)

	if err := s.Update(ctx, "rooms/ABC123", Record{
		"status":  "waiting",
		"host/id": "h1",
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Set(ctx, "rooms/ABC123/host/score", "30"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if got := mr.HGet("rooms/ABC123", "host/score"); got != "30" {
		t.Errorf("Hash field host/score = %q, expected 30", got)
	}
	if ttl := mr.TTL("rooms/ABC123"); ttl != DefaultRecordTTL {
		t.Errorf("TTL = %v, expected %v", ttl, DefaultRecordTTL)
	}

	rec, err := s.Get(ctx, "rooms/ABC123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec["status"] != "waiting" || rec["host/id"] != "h1" || rec["host/score"] != "30" {
		t.Errorf("Unexpected record %v", rec)
	}

	host, err := s.Get(ctx, "rooms/ABC123/host")
	if err != nil {
		t.Fatalf("Get host: %v", err)
	}
	if len(host) != 2 || host["score"] != "30" {
		t.Errorf("Host subtree = %v", host)
	}
}

func TestRedisStoreSetWholeRecordFails(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)
	if err := s.Set(context.Background(), "rooms/ABC123", "x"); err == nil {
		t.Error("Set on a record path should fail")
	}
}

func TestRedisStoreDelete(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewRedisStore(rdb)

	_ = s.Update(ctx, "rooms/ABC123", Record{
		"status":     "waiting",
		"host/id":    "h1",
		"guest/id":   "g1",
		"guest/name": "Bob",
		"guestbook":  "kept",
	})

	if err := s.Delete(ctx, "rooms/ABC123/guest"); err != nil {
		t.Fatalf("Delete guest: %v", err)
	}
	rec, _ := s.Get(ctx, "rooms/ABC123")
	if _, ok := rec["guest/id"]; ok {
		t.Error("guest/id should be deleted")
	}
	if rec["guestbook"] != "kept" {
		t.Error("Field sharing a prefix with the subtree should survive")
	}

	if err := s.Delete(ctx, "rooms/ABC123"); err != nil {
		t.Fatalf("Delete room: %v", err)
	}
	if mr.Exists("rooms/ABC123") {
		t.Error("Room hash should be deleted")
	}
	if _, err := s.Get(ctx, "rooms/ABC123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, expected ErrNotFound", err)
	}
}

func TestRedisStoreSubscribe(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewRedisStore(rdb, WithRecordTTL(0))

	_ = s.Set(ctx, "rooms/ABC123/status", "waiting")

	rec := newRecorder()
	sub, err := s.Subscribe(ctx, "rooms/ABC123", rec.fn)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	rec.waitFor(t, func(r Record) bool { return r["status"] == "waiting" })

	_ = s.Set(ctx, "rooms/ABC123/guest/score", "70")
	rec.waitFor(t, func(r Record) bool { return r["guest/score"] == "70" })

	_ = s.Delete(ctx, "rooms/ABC123")
	rec.waitFor(t, func(r Record) bool { return r == nil })
}

func TestRedisStoreSubscribeResyncsAfterReconnect(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewRedisStore(rdb, WithRecordTTL(0))

	_ = s.Set(ctx, "rooms/ABC123/status", "playing")

	rec := newRecorder()
	sub, err := s.Subscribe(ctx, "rooms/ABC123", rec.fn)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	rec.waitFor(t, func(r Record) bool { return r["status"] == "playing" })

	// The write lands while the subscriber is disconnected, so no
	// notification ever reaches it.
	mr.Close()
	mr.HSet("rooms/ABC123", "guest/terminated", "true")
	if err := mr.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}

	rec.waitWithin(t, 10*time.Second, func(r Record) bool { return r["guest/terminated"] == "true" })
}

func TestRedsyncLocker(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	l := NewRedsyncLocker(rdb, time.Second)

	unlock, err := l.Lock(ctx, "rooms/ABC123")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(short, "rooms/ABC123"); err == nil {
		t.Error("Second Lock on a held mutex should fail")
	}

	unlock()
	again, err := l.Lock(ctx, "rooms/ABC123")
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	again()
}

func TestLockName(t *testing.T) {
	if got := LockName("/rooms/ABC123"); got != "lockroom:rooms/ABC123" {
		t.Errorf("LockName = %q", got)
	}
}
