package multiplayer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultRetryMin = 100 * time.Millisecond
	defaultRetryMax = 2 * time.Second
)

// Publisher sends the local player's progress without ever blocking the
// caller. Pending values coalesce to the latest score; failed writes are
// retried with backoff until they land or the publisher is closed. The
// score is always written before the termination flag.
type Publisher struct {
	ch       *Channel
	role     Role
	logger   *log.Logger
	retryMin time.Duration
	retryMax time.Duration

	mu            sync.Mutex
	score         int
	scoreDirty    bool
	terminate     bool
	terminateSent bool
	settled       chan struct{} // Closed while nothing is pending
	settledClosed bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger for write failures.
func WithPublisherLogger(l *log.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRetryBackoff sets the first and maximum retry delay.
func WithRetryBackoff(min, max time.Duration) PublisherOption {
	return func(p *Publisher) {
		if min > 0 {
			p.retryMin = min
		}
		if max >= p.retryMin {
			p.retryMax = max
		}
	}
}

// NewPublisher starts a publisher for role. Close releases it.
func NewPublisher(ch *Channel, role Role, opts ...PublisherOption) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		ch:       ch,
		role:     role,
		logger:   log.Default(),
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
		settled:  make(chan struct{}),
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	close(p.settled)
	p.settledClosed = true

	go p.run()
	return p
}

// Score queues score for publishing. Scores never decrease, so a value not
// above the last queued one is ignored.
func (p *Publisher) Score(score int) {
	p.mu.Lock()
	if score <= p.score {
		p.mu.Unlock()
		return
	}
	p.score = score
	p.scoreDirty = true
	p.unsettleLocked()
	p.mu.Unlock()
	p.poke()
}

// Terminate queues the termination flag.
func (p *Publisher) Terminate() {
	p.mu.Lock()
	if p.terminate {
		p.mu.Unlock()
		return
	}
	p.terminate = true
	p.unsettleLocked()
	p.mu.Unlock()
	p.poke()
}

// Flush waits until every queued value has been written.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	settled := p.settled
	p.mu.Unlock()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return context.Canceled
	}
}

// Close stops the background writer. Values not yet written are lost.
func (p *Publisher) Close() {
	p.cancel()
	<-p.done
}

func (p *Publisher) unsettleLocked() {
	if p.settledClosed {
		p.settled = make(chan struct{})
		p.settledClosed = false
	}
}

func (p *Publisher) poke() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Publisher) run() {
	defer close(p.done)

	backoff := p.retryMin
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.wake:
		}

		for {
			err := p.drain()
			if err == nil {
				backoff = p.retryMin
				break
			}
			if p.ctx.Err() != nil {
				return
			}
			p.logger.Warn("publish failed, retrying", "role", p.role, "code", p.ch.Code(), "backoff", backoff, "err", err)
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > p.retryMax {
				backoff = p.retryMax
			}
		}
	}
}

// drain writes whatever is pending: the latest score first, then the
// termination flag.
func (p *Publisher) drain() error {
	for {
		p.mu.Lock()
		score, scoreDirty := p.score, p.scoreDirty
		terminate := p.terminate && !p.terminateSent
		if !scoreDirty && !terminate {
			if !p.settledClosed {
				close(p.settled)
				p.settledClosed = true
			}
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		if scoreDirty {
			if err := p.ch.PublishScore(p.ctx, p.role, score); err != nil {
				return err
			}
			p.mu.Lock()
			if p.score == score {
				p.scoreDirty = false
			}
			p.mu.Unlock()
			continue
		}

		if err := p.ch.PublishTermination(p.ctx, p.role); err != nil {
			return err
		}
		p.mu.Lock()
		p.terminateSent = true
		p.mu.Unlock()
	}
}
