package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrQueueFull = errors.New("notification queue is full")

// Async delivers events to the wrapped notifier on a background goroutine,
// in the order they were queued. Notify never waits for the wrapped
// notifier. Events that do not fit into the queue are dropped.
type Async struct {
	next    Notifier
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// NewAsync starts delivering to next. Every delivery is cancelled after
// timeout.
func NewAsync(next Notifier, size int, timeout time.Duration) *Async {
	a := &Async{
		next:    next,
		timeout: timeout,
		queue:   make(chan Event, size),
		done:    make(chan struct{}),
	}

	go a.run()
	return a
}

func (a *Async) Notify(_ context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return errors.New("notifier is closed")
	}

	select {
	case a.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer close(a.done)

	for e := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Notify(ctx, e)
		cancel()

		if err != nil {
			log.Error().Err(err).Str("event", string(e.Type)).Str("alert", e.AlertID.String()).Msg("Async notifier")
		}
	}
}

// Close stops accepting events and waits until the queued ones are
// delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	<-a.done
}
