package realtime

import (
	"context"
	"fmt"

	"github.com/ably/ably-go/ably"
	"github.com/go-redis/redis/v8"
)

// Notifier carries "record changed" signals between clients. Payloads are
// never trusted; listeners re-read the record.
type Notifier interface {
	Notify(ctx context.Context, key string) error
	// Listen calls onChange once the listener is established and after every
	// notification for key. Calls are sequential.
	Listen(ctx context.Context, key string, onChange func()) (Subscription, error)
}

const changedEvent = "changed"

// RedisNotifier uses Redis pub/sub on "changes:<key>".
type RedisNotifier struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisNotifier creates a notifier on rdb.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, prefix: "changes:"}
}

// Notify implements Notifier.
func (n *RedisNotifier) Notify(ctx context.Context, key string) error {
	return n.rdb.Publish(ctx, n.prefix+key, changedEvent).Err()
}

// Listen implements Notifier.
func (n *RedisNotifier) Listen(ctx context.Context, key string, onChange func()) (Subscription, error) {
	ps := n.rdb.Subscribe(ctx, n.prefix+key)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("realtime: redis subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	// Subscription confirmations arrive again after go-redis reconnects;
	// notifications published while disconnected are lost, so re-read then.
	msgs := ps.ChannelWithSubscriptions(ctx, 100)
	go func() {
		defer ps.Close()
		onChange()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				drain(msgs)
				onChange()
			}
		}
	}()
	return subscriptionFunc(cancel), nil
}

// drain discards queued messages; one refresh covers them all.
func drain(msgs <-chan interface{}) {
	for {
		select {
		case <-msgs:
		default:
			return
		}
	}
}

// AblyNotifier pushes change signals over Ably channels named "room:<key>".
type AblyNotifier struct {
	client *ably.Realtime
	prefix string
}

// NewAblyNotifier connects to Ably with an API key.
func NewAblyNotifier(apiKey string) (*AblyNotifier, error) {
	client, err := ably.NewRealtime(ably.WithKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("realtime: ably connect: %w", err)
	}
	return &AblyNotifier{client: client, prefix: "room:"}, nil
}

// Notify implements Notifier.
func (n *AblyNotifier) Notify(ctx context.Context, key string) error {
	ch := n.client.Channels.Get(n.prefix + key)
	return ch.Publish(ctx, changedEvent, key)
}

// Listen implements Notifier.
func (n *AblyNotifier) Listen(ctx context.Context, key string, onChange func()) (Subscription, error) {
	ch := n.client.Channels.Get(n.prefix + key)
	signal := make(chan struct{}, 1)
	unsubscribe, err := ch.Subscribe(ctx, changedEvent, func(*ably.Message) {
		poke(signal)
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: ably subscribe: %w", err)
	}
	// Messages sent while the connection was down may be gone; resync on
	// every (re)connect.
	off := n.client.Connection.On(ably.ConnectionEventConnected, func(ably.ConnectionStateChange) {
		poke(signal)
	})

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer unsubscribe()
		defer off()
		onChange()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				onChange()
			}
		}
	}()
	return subscriptionFunc(cancel), nil
}

func poke(signal chan<- struct{}) {
	select {
	case signal <- struct{}{}:
	default:
	}
}

// Close disconnects from Ably.
func (n *AblyNotifier) Close() {
	n.client.Close()
}
