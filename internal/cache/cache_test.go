package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/GordonCopestake/Logisplit/internal/config"
)

func TestMemoryClient_GetSetDelete(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "patterns")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "patterns", []byte("[]"), time.Minute))
	got, err := c.Get(ctx, "patterns")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), got)

	require.NoError(t, c.Delete(ctx, "patterns"))
	_, err = c.Get(ctx, "patterns")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Eviction(t *testing.T) {
	c := NewMemoryClient(2)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss, "entry expiring first should be evicted")

	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryClient_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryClient(1)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNew(t *testing.T) {
	c, err := New(config.CacheConfig{Driver: config.CacheNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(config.CacheConfig{Driver: config.CacheMemory, MaxEntries: 4})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NoError(t, c.Close())

	_, err = New(config.CacheConfig{Driver: "memcached"})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "patterns:http://localhost:8000", Key("patterns", "http://localhost:8000"))
}

// redisAddr returns REDIS_TEST_ADDR when set, otherwise starts a Redis
// container for the test.
func redisAddr(t *testing.T) string {
	t.Helper()
	if addr := os.Getenv("REDIS_TEST_ADDR"); addr != "" {
		return addr
	}

	if testing.Short() {
		t.Skip("Skipping Redis container test in short mode")
	}
	if os.Getenv("CI") == "" && !isDockerAvailable() {
		t.Skip("Docker not available")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.Client().Ping(ctx)
	return err == nil
}

func TestRedisClient(t *testing.T) {
	c, err := NewRedisClient(RedisConfig{Addr: redisAddr(t), Prefix: "logisplit-test:"})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisClientExpiry(t *testing.T) {
	c, err := NewRedisClient(RedisConfig{Addr: redisAddr(t), Prefix: "logisplit-test:"})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 200*time.Millisecond))
	time.Sleep(400 * time.Millisecond)

	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
