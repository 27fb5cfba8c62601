// Package targets holds the built-in worker handlers shipped with the
// binaries. External deployments register their own handlers against the
// same registry before the runner boots.
package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/arrdem/bbdb/pkg/extid"
	"github.com/arrdem/bbdb/pkg/logs"
	"github.com/arrdem/bbdb/pkg/registry"
)

// RegisterBuiltins wires every handler a stock binary can name as a worker
// target.
func RegisterBuiltins(reg *registry.Registry) {
	reg.RegisterProducer("random_data:source", randomDataSource)
	reg.RegisterConsumer("random_data:mapper", randomDataMapper)
	reg.RegisterConsumer("accounts:normalize", normalizeAccount)
}

type randomDatum struct {
	ID    string `json:"id"`
	Value int64  `json:"value"`
	When  int64  `json:"when"`
}

func randomDataSource(ctx context.Context) ([]byte, error) {
	return json.Marshal(randomDatum{
		ID:    uuid.NewString(),
		Value: rand.Int63(),
		When:  time.Now().Unix(),
	})
}

func randomDataMapper(ctx context.Context, item []byte) error {
	var datum randomDatum
	if err := json.Unmarshal(item, &datum); err != nil {
		return err
	}
	logs.Logger.Infof("random datum %s: %d", datum.ID, datum.Value)
	return nil
}

type accountRef struct {
	Service string `json:"service"`
	Handle  string `json:"handle"`
}

func normalizeAccount(ctx context.Context, item []byte) error {
	var ref accountRef
	if err := json.Unmarshal(item, &ref); err != nil {
		return err
	}

	var id string
	switch ref.Service {
	case "github":
		id = extid.GitHub(ref.Handle)
	case "lobsters":
		id = extid.Lobsters(ref.Handle)
	case "twitter":
		id = extid.Twitter(ref.Handle)
	case "reddit":
		id = extid.Reddit(ref.Handle)
	case "hackernews", "hn":
		id = extid.HackerNews(ref.Handle)
	case "keybase":
		id = extid.Keybase(ref.Handle)
	default:
		return fmt.Errorf("no external id scheme for service %q", ref.Service)
	}

	logs.Logger.Infof("account %s/%s -> %s", ref.Service, ref.Handle, id)
	return nil
}
