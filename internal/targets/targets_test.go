package targets

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrdem/bbdb/pkg/registry"
)

func TestRegisterBuiltins(t *testing.T) {
	reg := registry.New()
	RegisterBuiltins(reg)

	_, err := reg.Producer("random_data:source")
	assert.NoError(t, err)
	_, err = reg.Consumer("random_data:mapper")
	assert.NoError(t, err)
	_, err = reg.Consumer("accounts:normalize")
	assert.NoError(t, err)
}

func TestRandomDataRoundTrip(t *testing.T) {
	ctx := context.Background()

	item, err := randomDataSource(ctx)
	require.NoError(t, err)

	var datum randomDatum
	require.NoError(t, json.Unmarshal(item, &datum))
	assert.NotEmpty(t, datum.ID)

	assert.NoError(t, randomDataMapper(ctx, item))
}

func TestRandomDataMapperRejectsGarbage(t *testing.T) {
	assert.Error(t, randomDataMapper(context.Background(), []byte("not json")))
}

func TestNormalizeAccount(t *testing.T) {
	ctx := context.Background()

	ok, err := json.Marshal(accountRef{Service: "github", Handle: "https://github.com/somebody"})
	require.NoError(t, err)
	assert.NoError(t, normalizeAccount(ctx, ok))

	unknown, err := json.Marshal(accountRef{Service: "myspace", Handle: "somebody"})
	require.NoError(t, err)
	assert.Error(t, normalizeAccount(ctx, unknown))
}
