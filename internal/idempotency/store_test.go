package idempotency

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"kigogo-backend/internal/config"
)

func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupRedis starts a throwaway Redis container.
// Skips the test if Docker is not available.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb, err := Connect(ctx, &config.RedisConfig{Addr: endpoint})
	require.NoError(t, err)

	return rdb, func() {
		_ = rdb.Close()
		_ = container.Terminate(ctx)
	}
}

func TestStore_Claim(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	store := NewStore(rdb, time.Minute)
	ctx := context.Background()

	first, err := store.Claim(ctx, "withdraw-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.Claim(ctx, "withdraw-1")
	require.NoError(t, err)
	assert.False(t, second)

	other, err := store.Claim(ctx, "withdraw-2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestStore_Release(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	store := NewStore(rdb, time.Minute)
	ctx := context.Background()

	_, err := store.Claim(ctx, "withdraw-1")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "withdraw-1"))

	again, err := store.Claim(ctx, "withdraw-1")
	require.NoError(t, err)
	assert.True(t, again)
}

func TestStore_ClaimExpires(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	store := NewStore(rdb, time.Second)
	ctx := context.Background()

	_, err := store.Claim(ctx, "withdraw-1")
	require.NoError(t, err)

	ttl, err := rdb.TTL(ctx, keyPrefix+"withdraw-1").Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Second)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, &config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
