package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/arrdem/bbdb/pkg/queue"
	"github.com/arrdem/bbdb/pkg/topology"
)

// NewStore dials a redis connection. The underlying client pools connections
// and is safe to share across every queue and worker bound to it.
func NewStore(conn topology.Connection) (queue.Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr: fmt.Sprintf("%s:%d", conn.Host, conn.Port),
		DB:   conn.DB,
	})
	return &store{client: client}, nil
}

type store struct {
	client *goredis.Client
}

func (s *store) Queue(q topology.Queue) (queue.Queue, error) {
	return &redisQueue{client: s.client, key: q.Key, inflight: q.Inflight}, nil
}

func (s *store) Close() error {
	return s.client.Close()
}

// redisQueue is a reliable list queue: items are pushed onto the ready list
// and moved atomically onto the inflight list when dequeued. Ack removes the
// inflight entry; Reject moves it back to the head of the ready list. Items
// are wrapped in uuid-tagged envelopes so LREM matches a single entry.
type redisQueue struct {
	client   *goredis.Client
	key      string
	inflight string
}

func (q *redisQueue) Enqueue(ctx context.Context, body []byte) error {
	raw, err := queue.Wrap(body)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (queue.Item, error) {
	raw, err := q.client.BRPopLPush(ctx, q.key, q.inflight, timeout).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	env, err := queue.Unwrap([]byte(raw))
	if err != nil {
		// Whatever this is, it did not come from Enqueue. Drop it from
		// inflight so it cannot wedge the queue.
		_ = q.client.LRem(ctx, q.inflight, 1, raw).Err()
		return nil, err
	}

	return &redisItem{q: q, raw: raw, body: env.Body}, nil
}

func (q *redisQueue) Close() error {
	// The client belongs to the store.
	return nil
}

type redisItem struct {
	q    *redisQueue
	raw  string
	body []byte
}

func (i *redisItem) Body() []byte { return i.body }

func (i *redisItem) Ack(ctx context.Context) error {
	return i.q.client.LRem(ctx, i.q.inflight, 1, i.raw).Err()
}

func (i *redisItem) Reject(ctx context.Context) error {
	pipe := i.q.client.TxPipeline()
	pipe.LRem(ctx, i.q.inflight, 1, i.raw)
	pipe.RPush(ctx, i.q.key, i.raw)
	_, err := pipe.Exec(ctx)
	return err
}
