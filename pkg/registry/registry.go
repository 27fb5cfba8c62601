package registry

import (
	"context"
	"fmt"

	"github.com/arrdem/bbdb/internal/errors"
)

// Producer yields one item per invocation. Items are opaque to the topology
// core; whatever schema the downstream mappers expect is between them and the
// producer.
type Producer func(ctx context.Context) ([]byte, error)

// Consumer processes one dequeued item.
type Consumer func(ctx context.Context, item []byte) error

// Registry maps "module:function" target names to handlers. Targets are
// registered during process startup, before any worker runs, so lookups need
// no locking.
type Registry struct {
	producers map[string]Producer
	consumers map[string]Consumer
}

func New() *Registry {
	return &Registry{
		producers: map[string]Producer{},
		consumers: map[string]Consumer{},
	}
}

func (r *Registry) RegisterProducer(name string, fn Producer) {
	r.producers[name] = fn
}

func (r *Registry) RegisterConsumer(name string, fn Consumer) {
	r.consumers[name] = fn
}

// Producer resolves a target name to a producer handler.
func (r *Registry) Producer(name string) (Producer, error) {
	fn, ok := r.producers[name]
	if !ok {
		return nil, fmt.Errorf("%w: no producer registered for %q", errors.UnknownTargetError, name)
	}
	return fn, nil
}

// Consumer resolves a target name to a consumer handler.
func (r *Registry) Consumer(name string) (Consumer, error) {
	fn, ok := r.consumers[name]
	if !ok {
		return nil, fmt.Errorf("%w: no consumer registered for %q", errors.UnknownTargetError, name)
	}
	return fn, nil
}
