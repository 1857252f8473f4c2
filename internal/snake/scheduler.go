package snake

import (
	"sync"
	"time"
)

// Scheduler runs a task at a fixed interval on a single goroutine, so runs
// never overlap. The task returns false to end the loop on its own.
//
// Stop must not be called from inside the task.
type Scheduler struct {
	interval time.Duration
	task     func() bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(interval time.Duration, task func() bool) *Scheduler {
	if interval <= 0 {
		panic("snake: scheduler interval must be positive")
	}
	return &Scheduler{interval: interval, task: task}
}

// Start launches the loop. It is a no-op while a loop is running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return
		}
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

// Stop ends the loop and waits for it to exit. Once Stop returns no further
// task run starts. Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the loop goroutine is alive.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Scheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// A tick and a stop can be ready together; stop wins.
			select {
			case <-stop:
				return
			default:
			}
			if !s.task() {
				return
			}
		}
	}
}
