package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/arrdem/bbdb/pkg/topology"
)

// Item is one unit of work taken off a queue. The item stays in-flight until
// Ack removes it for good or Reject hands it back to the ready queue.
type Item interface {
	Body() []byte
	Ack(ctx context.Context) error
	Reject(ctx context.Context) error
}

// Queue is the narrow queue contract the worker core runs against. Dequeue
// blocks for at most timeout and returns (nil, nil) when no item arrived, so
// a consumer loop always regains control and can observe shutdown.
type Queue interface {
	Enqueue(ctx context.Context, body []byte) error
	Dequeue(ctx context.Context, timeout time.Duration) (Item, error)
	Close() error
}

// Store hands out queues over a single dialed connection. Implementations
// must allow Queue to be called once per worker instance; the returned queues
// are each used from a single goroutine.
type Store interface {
	Queue(q topology.Queue) (Queue, error)
	Close() error
}

// Envelope tags an opaque payload with a unique id so list-based stores can
// remove exactly one in-flight entry even when payloads collide.
type Envelope struct {
	ID   string `json:"id"`
	Body []byte `json:"body"`
}

func Wrap(body []byte) ([]byte, error) {
	return json.Marshal(Envelope{ID: uuid.NewString(), Body: body})
}

func Unwrap(raw []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}
