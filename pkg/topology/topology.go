package topology

import (
	"fmt"
	"strings"

	"github.com/arrdem/bbdb/internal/errors"
	"github.com/arrdem/bbdb/pkg/config"
)

// Connection kinds.
const (
	KindRedis  = "redis"
	KindAMQP   = "amqp"
	KindMemory = "memory"
)

// Worker types.
const (
	WorkerCustom = "custom"
	WorkerMap    = "map"
)

// Connection describes how to reach an external key/queue store. Exactly one
// store is dialed per declared connection, shared by every queue bound to it.
type Connection struct {
	Kind string `mapstructure:"kind"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	DB   int    `mapstructure:"db"`
	URL  string `mapstructure:"url"`
}

// Queue names a work channel within a connection. Key is the ready queue;
// Inflight holds items between dequeue and ack on stores that support it.
type Queue struct {
	Conn     string `mapstructure:"conn"`
	Key      string `mapstructure:"key"`
	Inflight string `mapstructure:"inflight"`
}

// WorkerDefinition is one named unit of work. A "custom" worker produces
// items onto Queue at most Rate per second; a "map" worker drains Source and
// hands each item to Target.
type WorkerDefinition struct {
	Type   string  `mapstructure:"type"`
	Target string  `mapstructure:"target"`
	Queue  string  `mapstructure:"queue"`
	Source string  `mapstructure:"source"`
	Rate   float64 `mapstructure:"rate"`
}

// Topology is a fully resolved and validated worker topology. Order lists the
// worker instances to launch; the same name may appear more than once to fan
// a consumer out.
type Topology struct {
	Connections map[string]Connection
	Queues      map[string]Queue
	Workers     map[string]WorkerDefinition
	Order       []string
}

// Load parses the connections, queues, workers and topology sections out of
// cfg and validates every cross-reference in a single pass. It performs no
// I/O beyond what cfg already read: a Topology that loads is safe to run.
func Load(cfg config.Config) (*Topology, error) {
	t := &Topology{
		Connections: map[string]Connection{},
		Queues:      map[string]Queue{},
		Workers:     map[string]WorkerDefinition{},
	}

	if err := cfg.Unmarshal("connections", &t.Connections); err != nil {
		return nil, fmt.Errorf("%w: connections: %s", errors.ConfigError, err)
	}
	if err := cfg.Unmarshal("queues", &t.Queues); err != nil {
		return nil, fmt.Errorf("%w: queues: %s", errors.ConfigError, err)
	}
	if err := cfg.Unmarshal("workers", &t.Workers); err != nil {
		return nil, fmt.Errorf("%w: workers: %s", errors.ConfigError, err)
	}
	t.Order = cfg.StringSlice("topology", nil)

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Topology) validate() error {
	for name, conn := range t.Connections {
		if err := validateConnection(name, conn); err != nil {
			return err
		}
	}

	for name, q := range t.Queues {
		if q.Key == "" {
			return fmt.Errorf("%w: queue %q has no key", errors.ConfigError, name)
		}
		if _, ok := t.Connections[q.Conn]; !ok {
			return fmt.Errorf("%w: queue %q references undeclared connection %q",
				errors.ConfigError, name, q.Conn)
		}
		if q.Inflight == "" {
			q.Inflight = defaultInflight(q.Key)
			t.Queues[name] = q
		}
	}

	for name, def := range t.Workers {
		if err := t.validateWorker(name, def); err != nil {
			return err
		}
	}

	for _, name := range t.Order {
		if _, ok := t.Workers[name]; !ok {
			return fmt.Errorf("%w: topology entry %q is not a declared worker",
				errors.ConfigError, name)
		}
	}

	return nil
}

func validateConnection(name string, conn Connection) error {
	switch conn.Kind {
	case KindRedis:
		if conn.Host == "" || conn.Port == 0 {
			return fmt.Errorf("%w: redis connection %q requires host and port",
				errors.ConfigError, name)
		}
	case KindAMQP:
		if conn.URL == "" {
			return fmt.Errorf("%w: amqp connection %q requires a url",
				errors.ConfigError, name)
		}
	case KindMemory:
	default:
		return fmt.Errorf("%w: connection %q: %s %q",
			errors.ConfigError, name, errors.UnknownConnectionKindError.Error(), conn.Kind)
	}
	return nil
}

func (t *Topology) validateWorker(name string, def WorkerDefinition) error {
	if def.Target == "" {
		return fmt.Errorf("%w: worker %q has no target", errors.InvalidWorkerDefinitionError, name)
	}

	switch def.Type {
	case WorkerCustom:
		if def.Queue == "" {
			return fmt.Errorf("%w: custom worker %q has no queue", errors.InvalidWorkerDefinitionError, name)
		}
		if def.Rate <= 0 {
			return fmt.Errorf("%w: custom worker %q requires rate > 0, got %v",
				errors.InvalidWorkerDefinitionError, name, def.Rate)
		}
		if _, ok := t.Queues[def.Queue]; !ok {
			return fmt.Errorf("%w: worker %q references undeclared queue %q",
				errors.ConfigError, name, def.Queue)
		}
	case WorkerMap:
		if def.Source == "" {
			return fmt.Errorf("%w: map worker %q has no source", errors.InvalidWorkerDefinitionError, name)
		}
		if _, ok := t.Queues[def.Source]; !ok {
			return fmt.Errorf("%w: worker %q references undeclared queue %q",
				errors.ConfigError, name, def.Source)
		}
	default:
		return fmt.Errorf("%w: worker %q has unknown type %q", errors.ConfigError, name, def.Type)
	}

	return nil
}

// Resolve returns the definition for a named worker.
func (t *Topology) Resolve(name string) (WorkerDefinition, error) {
	def, ok := t.Workers[name]
	if !ok {
		return WorkerDefinition{}, fmt.Errorf("%w: %q", errors.UnknownWorkerError, name)
	}
	return def, nil
}

// QueueFor returns the queue a definition is bound to: the destination for a
// producer, the source for a consumer. Load already checked the references,
// so this cannot fail on a loaded Topology.
func (t *Topology) QueueFor(def WorkerDefinition) (Queue, Connection, error) {
	name := def.Queue
	if def.Type == WorkerMap {
		name = def.Source
	}

	q, ok := t.Queues[name]
	if !ok {
		return Queue{}, Connection{}, fmt.Errorf("%w: queue %q is not declared", errors.ConfigError, name)
	}
	conn, ok := t.Connections[q.Conn]
	if !ok {
		return Queue{}, Connection{}, fmt.Errorf("%w: connection %q is not declared", errors.ConfigError, q.Conn)
	}
	return q, conn, nil
}

// defaultInflight derives the in-flight key for a ready key, mirroring the
// /queue/<name>/ready -> /queue/<name>/inflight layout.
func defaultInflight(key string) string {
	if strings.HasSuffix(key, "/ready") {
		return strings.TrimSuffix(key, "/ready") + "/inflight"
	}
	return key + "/inflight"
}
