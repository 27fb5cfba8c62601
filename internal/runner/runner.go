package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	errs "github.com/arrdem/bbdb/internal/errors"
	"github.com/arrdem/bbdb/pkg/logs"
	"github.com/arrdem/bbdb/pkg/queue"
	amqpq "github.com/arrdem/bbdb/pkg/queue/amqp"
	"github.com/arrdem/bbdb/pkg/queue/memory"
	redisq "github.com/arrdem/bbdb/pkg/queue/redis"
	"github.com/arrdem/bbdb/pkg/registry"
	"github.com/arrdem/bbdb/pkg/topology"
)

const (
	defPollTimeout = time.Second
	defMaxElapsed  = time.Minute
	defItemTimeout = 30 * time.Second
)

type Options struct {
	// PollTimeout bounds a single blocking dequeue so shutdown cannot hang.
	PollTimeout time.Duration
	// MaxRetryElapsed caps the backoff window for a failing queue operation.
	// Once exhausted the task fails and the whole topology shuts down.
	MaxRetryElapsed time.Duration
	// ItemTimeout bounds the handling of one dequeued item. The in-hand item
	// runs on a context detached from shutdown, so this is also the longest a
	// stuck target can delay termination.
	ItemTimeout time.Duration
	// Stores supplies pre-opened stores by connection name. Connections not
	// covered here are dialed according to their declared kind.
	Stores map[string]queue.Store
}

// task is one launched instance of a worker definition. Duplicate topology
// entries become fully independent tasks with their own queue handles.
type task struct {
	name     string
	instance int
	def      topology.WorkerDefinition
	q        queue.Queue
	producer registry.Producer
	consumer registry.Consumer
	limiter  *rate.Limiter
}

// Runner owns every running worker task of a loaded topology.
type Runner struct {
	opts   Options
	tasks  []*task
	stores map[string]queue.Store
	owned  []queue.Store
}

// New resolves every topology entry down to its queue handle and target
// handler before anything runs. A topology with an unregistered target or an
// unreachable store never starts a single worker.
func New(topo *topology.Topology, reg *registry.Registry, opts Options) (*Runner, error) {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defPollTimeout
	}
	if opts.MaxRetryElapsed <= 0 {
		opts.MaxRetryElapsed = defMaxElapsed
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = defItemTimeout
	}

	r := &Runner{opts: opts, stores: map[string]queue.Store{}}
	for name, s := range opts.Stores {
		r.stores[name] = s
	}

	seen := map[string]int{}
	for _, name := range topo.Order {
		def, err := topo.Resolve(name)
		if err != nil {
			r.Close()
			return nil, err
		}

		t := &task{name: name, instance: seen[name], def: def}
		seen[name]++

		q, conn, err := topo.QueueFor(def)
		if err != nil {
			r.Close()
			return nil, err
		}

		store, err := r.store(q.Conn, conn)
		if err != nil {
			r.Close()
			return nil, err
		}
		if t.q, err = store.Queue(q); err != nil {
			r.Close()
			return nil, err
		}

		switch def.Type {
		case topology.WorkerCustom:
			if t.producer, err = reg.Producer(def.Target); err != nil {
				r.Close()
				return nil, err
			}
			t.limiter = rate.NewLimiter(rate.Limit(def.Rate), 1)
		case topology.WorkerMap:
			if t.consumer, err = reg.Consumer(def.Target); err != nil {
				r.Close()
				return nil, err
			}
		}

		r.tasks = append(r.tasks, t)
	}

	return r, nil
}

func (r *Runner) store(name string, conn topology.Connection) (queue.Store, error) {
	if s, ok := r.stores[name]; ok {
		return s, nil
	}

	s, err := openStore(conn)
	if err != nil {
		return nil, err
	}

	r.stores[name] = s
	r.owned = append(r.owned, s)
	return s, nil
}

func openStore(conn topology.Connection) (queue.Store, error) {
	switch conn.Kind {
	case topology.KindRedis:
		return redisq.NewStore(conn)
	case topology.KindAMQP:
		return amqpq.NewStore(conn)
	case topology.KindMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.UnknownConnectionKindError, conn.Kind)
	}
}

// OpenQueue dials the store behind a declared queue and returns a handle on
// it plus a closer for the handle and store both. Tooling entry point; the
// runner itself pools stores across queues.
func OpenQueue(topo *topology.Topology, q topology.Queue) (queue.Queue, func(), error) {
	conn, ok := topo.Connections[q.Conn]
	if !ok {
		return nil, nil, fmt.Errorf("%w: connection %q is not declared", errs.ConfigError, q.Conn)
	}

	s, err := openStore(conn)
	if err != nil {
		return nil, nil, err
	}

	handle, err := s.Queue(q)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}

	return handle, func() {
		_ = handle.Close()
		_ = s.Close()
	}, nil
}

// Run launches one goroutine per topology entry and blocks until the context
// is cancelled or a task fails fatally. Cancellation is a clean shutdown and
// returns nil.
func (r *Runner) Run(parent context.Context) error {
	g, ctx := errgroup.WithContext(parent)

	for _, t := range r.tasks {
		t := t
		logs.Logger.Infof("Booting worker %s[%d] (%s -> %s)", t.name, t.instance, t.def.Type, t.def.Target)
		g.Go(func() error {
			defer logs.Logger.Infof("Worker %s[%d] stopped", t.name, t.instance)
			if t.def.Type == topology.WorkerCustom {
				return r.produce(ctx, t)
			}
			return r.consume(ctx, t)
		})
	}

	err := g.Wait()
	r.Close()
	// Task errors caused by the caller's own cancellation (possibly wrapped
	// by a store client on the way up) are a clean shutdown, not a failure.
	if err != nil && parent.Err() != nil && errors.Is(err, parent.Err()) {
		return nil
	}
	return err
}

// Close releases every queue handle and every store the runner dialed
// itself. Stores passed in via Options belong to the caller.
func (r *Runner) Close() {
	for _, t := range r.tasks {
		if t.q != nil {
			_ = t.q.Close()
		}
	}
	for _, s := range r.owned {
		_ = s.Close()
	}
	r.owned = nil
}

// produce runs a custom worker: invoke the target, enqueue whatever it
// returned, and pace to the configured rate. A failing target costs its slot
// in the pacing window but never kills the task.
func (r *Runner) produce(ctx context.Context, t *task) error {
	for {
		if err := t.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		body, err := t.producer(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logs.Logger.Errorf("Worker %s[%d]: target %s failed: %s", t.name, t.instance, t.def.Target, err)
			continue
		}
		if body == nil {
			continue
		}

		if err := r.withRetries(ctx, func() error { return t.q.Enqueue(ctx, body) }); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("worker %s[%d]: enqueue: %w", t.name, t.instance, err)
		}
	}
}

// consume runs a map worker: dequeue with a bounded timeout and hand each
// item to the target. The in-hand item is always finished, acked included,
// before the task observes cancellation.
func (r *Runner) consume(ctx context.Context, t *task) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		item, err := r.dequeue(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return fmt.Errorf("worker %s[%d]: dequeue: %w", t.name, t.instance, err)
		}
		if item == nil {
			continue
		}

		// The in-hand item is finished on a context detached from shutdown,
		// so cancellation racing the dequeue cannot abort its processing.
		// The deadline bounds how long a stuck target can delay termination.
		itemCtx, done := context.WithTimeout(context.WithoutCancel(ctx), r.opts.ItemTimeout)
		if err := t.consumer(itemCtx, item.Body()); err != nil {
			logs.Logger.Errorf("Worker %s[%d]: target %s failed on item: %s", t.name, t.instance, t.def.Target, err)
		}

		// Acked regardless of the target outcome: one bad item must not stall
		// the pipeline.
		if err := item.Ack(itemCtx); err != nil {
			logs.Logger.Errorf("Worker %s[%d]: ack failed: %s", t.name, t.instance, err)
		}
		done()
	}
}

func (r *Runner) dequeue(ctx context.Context, t *task) (queue.Item, error) {
	return backoff.RetryWithData(func() (queue.Item, error) {
		item, err := t.q.Dequeue(ctx, r.opts.PollTimeout)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return item, err
	}, r.policy(ctx))
}

func (r *Runner) withRetries(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, r.policy(ctx))
}

func (r *Runner) policy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = r.opts.MaxRetryElapsed
	return backoff.WithContext(policy, ctx)
}
