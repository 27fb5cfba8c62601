package amqp

import (
	"context"
	"time"

	amqpgo "github.com/rabbitmq/amqp091-go"

	"github.com/arrdem/bbdb/internal/errors"
	"github.com/arrdem/bbdb/pkg/queue"
	"github.com/arrdem/bbdb/pkg/topology"
)

const dialRetries = 3

// NewStore creates a new AMQP connection. Brokers routinely come up after the
// workers do, so the dial is retried a few times before giving up.
func NewStore(conn topology.Connection) (queue.Store, error) {
	var c *amqpgo.Connection
	var err error

	for i := 0; i < dialRetries; i++ {
		c, err = amqpgo.Dial(conn.URL)
		if err == nil {
			return &store{conn: c}, nil
		}
		time.Sleep(time.Second)
	}

	return nil, err
}

type store struct {
	conn *amqpgo.Connection
}

// Queue opens a dedicated channel per queue instance. AMQP channels are not
// safe for concurrent use, and each worker instance owns its queue.
func (s *store) Queue(q topology.Queue) (queue.Queue, error) {
	ch, err := s.conn.Channel()
	if err != nil {
		return nil, err
	}

	if _, err = ch.QueueDeclare(q.Key, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &amqpQueue{ch: ch, key: q.Key}, nil
}

func (s *store) Close() error {
	return s.conn.Close()
}

type amqpQueue struct {
	ch         *amqpgo.Channel
	key        string
	deliveries <-chan amqpgo.Delivery
}

func (q *amqpQueue) Enqueue(ctx context.Context, body []byte) error {
	return q.ch.PublishWithContext(ctx, "", q.key, true, false, amqpgo.Publishing{
		ContentType:  "application/octet-stream",
		DeliveryMode: amqpgo.Persistent,
		Body:         body,
	})
}

func (q *amqpQueue) Dequeue(ctx context.Context, timeout time.Duration) (queue.Item, error) {
	if q.deliveries == nil {
		deliveries, err := q.ch.Consume(q.key, "", false, false, false, false, nil)
		if err != nil {
			return nil, err
		}
		q.deliveries = deliveries
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d, ok := <-q.deliveries:
		if !ok {
			return nil, errors.QueueClosedError
		}
		return &amqpItem{d: d}, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *amqpQueue) Close() error {
	return q.ch.Close()
}

type amqpItem struct {
	d amqpgo.Delivery
}

func (i *amqpItem) Body() []byte { return i.d.Body }

func (i *amqpItem) Ack(ctx context.Context) error {
	return i.d.Ack(false)
}

func (i *amqpItem) Reject(ctx context.Context) error {
	return i.d.Reject(true)
}
