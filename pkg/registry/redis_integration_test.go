//go:build integration

package registry

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a Redis container and returns a client
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedis_Integration_ClaimDiscard(t *testing.T) {
	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()
	reg, err := NewRedis(client, RunKey{RunID: "integration"})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}

	for _, id := range []string{"a", "b", "a"} {
		if _, err := reg.Claim(ctx, id); err != nil {
			t.Fatalf("Claim(%s): %v", id, err)
		}
	}

	ids, err := reg.AllClaimed(ctx)
	if err != nil {
		t.Fatalf("AllClaimed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("AllClaimed = %v, want 2 ids", ids)
	}

	ttl, err := client.TTL(ctx, reg.key.String()).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 {
		t.Errorf("claim set has no expiry: %v", ttl)
	}

	if err := reg.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	exists, _ := client.Exists(ctx, reg.key.String()).Result()
	if exists != 0 {
		t.Error("claim set should be deleted after Discard")
	}
}
