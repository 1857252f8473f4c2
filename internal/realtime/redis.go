package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"
)

// DefaultRecordTTL expires idle records whose owners vanished without
// cleaning up.
const DefaultRecordTTL = time.Hour

// DefaultKeyDepth is the number of leading path segments that form the Redis
// key; "rooms/ABC123/host/score" is field "host/score" of hash
// "rooms/ABC123".
const DefaultKeyDepth = 2

// RedisStore keeps each record in a Redis hash and announces writes through
// a Notifier.
type RedisStore struct {
	rdb      *redis.Client
	notifier Notifier
	keyDepth int
	ttl      time.Duration
	logger   *log.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithNotifier replaces the default Redis pub/sub notifier.
func WithNotifier(n Notifier) RedisOption {
	return func(s *RedisStore) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRecordTTL overrides DefaultRecordTTL. Zero disables expiry.
func WithRecordTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithKeyDepth overrides DefaultKeyDepth.
func WithKeyDepth(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.keyDepth = n
		}
	}
}

// WithStoreLogger sets the logger for delivery errors.
func WithStoreLogger(l *log.Logger) RedisOption {
	return func(s *RedisStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRedisStore creates a store on top of rdb.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:      rdb,
		keyDepth: DefaultKeyDepth,
		ttl:      DefaultRecordTTL,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewRedisNotifier(rdb)
	}
	return s
}

// Dial parses a redis:// URL and checks the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("realtime: ping redis: %w", err)
	}
	return rdb, nil
}

// split maps a path to its hash key and field. The field is empty when the
// path addresses a whole record or something above it.
func (s *RedisStore) split(path string) (key, field string) {
	parts := strings.Split(CleanPath(path), "/")
	if len(parts) <= s.keyDepth {
		return strings.Join(parts, "/"), ""
	}
	return strings.Join(parts[:s.keyDepth], "/"), strings.Join(parts[s.keyDepth:], "/")
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, path, value string) error {
	key, field := s.split(path)
	if field == "" {
		return fmt.Errorf("realtime: set %q: path addresses a whole record", path)
	}
	return s.write(ctx, key, map[string]interface{}{field: value})
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, path string, fields Record) error {
	if len(fields) == 0 {
		return nil
	}
	key, base := s.split(path)
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		field := Join(base, k)
		if field == "" {
			return fmt.Errorf("realtime: update %q: empty field name", path)
		}
		values[field] = v
	}
	return s.write(ctx, key, values)
}

func (s *RedisStore) write(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("realtime: write %s: %w", key, err)
	}
	return s.notify(ctx, key)
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, path string) (Record, error) {
	key, base := s.split(path)
	all, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("realtime: get %s: %w", key, err)
	}
	rec := filterFields(all, base)
	if len(rec) == 0 {
		return nil, ErrNotFound
	}
	return rec, nil
}

func filterFields(all map[string]string, base string) Record {
	if base == "" {
		return Record(all)
	}
	rec := make(Record)
	for k, v := range all {
		if within(k, base) {
			rec[strings.TrimPrefix(strings.TrimPrefix(k, base), "/")] = v
		}
	}
	return rec
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, path string) error {
	key, base := s.split(path)
	if base == "" {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("realtime: delete %s: %w", key, err)
		}
		return s.notify(ctx, key)
	}

	fields, err := s.rdb.HKeys(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("realtime: delete %s/%s: %w", key, base, err)
	}
	var doomed []string
	for _, f := range fields {
		if within(f, base) {
			doomed = append(doomed, f)
		}
	}
	if len(doomed) == 0 {
		return nil
	}
	if err := s.rdb.HDel(ctx, key, doomed...).Err(); err != nil {
		return fmt.Errorf("realtime: delete %s/%s: %w", key, base, err)
	}
	return s.notify(ctx, key)
}

// Subscribe implements Store. The record is re-read on every notification,
// so a missed message only delays delivery until the next one.
func (s *RedisStore) Subscribe(ctx context.Context, path string, fn func(Record)) (Subscription, error) {
	key, _ := s.split(path)
	deliver := func() {
		rec, err := s.Get(ctx, path)
		switch {
		case errors.Is(err, ErrNotFound):
			fn(nil)
		case err != nil:
			if ctx.Err() == nil {
				s.logger.Warn("realtime: refresh failed", "path", path, "err", err)
			}
		default:
			fn(rec)
		}
	}
	sub, err := s.notifier.Listen(ctx, key, deliver)
	if err != nil {
		return nil, fmt.Errorf("realtime: subscribe %s: %w", path, err)
	}
	return sub, nil
}

func (s *RedisStore) notify(ctx context.Context, key string) error {
	if err := s.notifier.Notify(ctx, key); err != nil {
		return fmt.Errorf("realtime: notify %s: %w", key, err)
	}
	return nil
}
