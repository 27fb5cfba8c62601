package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arrdem/bbdb/internal/errors"
	"github.com/arrdem/bbdb/pkg/queue"
	"github.com/arrdem/bbdb/pkg/topology"
)

const depth = 1024

// NewStore returns an in-process store. Queues live in channels keyed by
// their ready key, so every worker bound to the same key within one store
// shares one queue.
func NewStore() queue.Store {
	return &store{queues: map[string]chan []byte{}}
}

type store struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	closed bool
}

func (s *store) Queue(q topology.Queue) (queue.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.QueueClosedError
	}

	ch, ok := s.queues[q.Key]
	if !ok {
		ch = make(chan []byte, depth)
		s.queues[q.Key] = ch
	}
	return &memQueue{ch: ch}, nil
}

func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memQueue struct {
	ch chan []byte
}

func (q *memQueue) Enqueue(ctx context.Context, body []byte) error {
	select {
	case q.ch <- body:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *memQueue) Dequeue(ctx context.Context, timeout time.Duration) (queue.Item, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case body := <-q.ch:
		return &memItem{q: q, body: body}, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *memQueue) Close() error {
	return nil
}

type memItem struct {
	q    *memQueue
	body []byte
}

func (i *memItem) Body() []byte { return i.body }

func (i *memItem) Ack(ctx context.Context) error { return nil }

func (i *memItem) Reject(ctx context.Context) error {
	return i.q.Enqueue(ctx, i.body)
}
