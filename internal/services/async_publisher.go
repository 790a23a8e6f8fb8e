package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
)

var (
	ErrPublishQueueFull   = errors.New("event queue full")
	ErrPublisherClosed    = errors.New("event publisher closed")
	defaultPublishBacklog = 256
)

// AsyncPublisher queues events in memory and hands them to next from a
// single goroutine, so a slow broker never holds up a request. Events are
// delivered in order; when the queue is full new events are dropped.
type AsyncPublisher struct {
	next  EventPublisher
	queue chan amqp.TransactionEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

type PublisherStats struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// NewAsyncPublisher starts the delivery goroutine. A backlog below 1 uses
// the default of 256 events.
func NewAsyncPublisher(next EventPublisher, backlog int) *AsyncPublisher {
	if backlog < 1 {
		backlog = defaultPublishBacklog
	}
	p := &AsyncPublisher{
		next:  next,
		queue: make(chan amqp.TransactionEvent, backlog),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

// PublishTransactionEvent enqueues e without waiting for the broker.
func (p *AsyncPublisher) PublishTransactionEvent(_ context.Context, e amqp.TransactionEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- e:
		return nil
	default:
		p.dropped.Add(1)
		return ErrPublishQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		// Detached from the request that produced the event; the client
		// applies its own publish timeout.
		if err := p.next.PublishTransactionEvent(context.Background(), e); err != nil {
			p.failed.Add(1)
			slog.Error("Failed to publish transaction event",
				log.FieldEvent, e.Event,
				log.FieldTransactionID, e.TransactionID,
				log.FieldUserID, e.UserID,
				log.FieldError, err)
			continue
		}
		p.published.Add(1)
	}
}

// Close stops accepting events and waits until the backlog is delivered or
// ctx is done.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AsyncPublisher) Stats() PublisherStats {
	return PublisherStats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}
