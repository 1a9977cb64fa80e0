package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/pkg/adapters/redis"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisCache_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunGraphCacheContract(t, redis.NewFromClient(client))
}

func TestRedisCache_TTLExpiration(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, &domain.GraphDocument{ID: "denial", Version: "1"}))
	ids, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "denial")

	mr.FastForward(2 * time.Second)
	_, err = cache.Get(ctx, "denial")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestRedisCache_Prefix(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, &domain.GraphDocument{ID: "denial"}))
	assert.True(t, mr.Exists("custom:app:denial"))
	assert.True(t, mr.Exists("custom:app:index"))
	assert.NoError(t, cache.Ping(ctx))

	ids, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"denial"}, ids)
}
