// Package suite boots a throwaway redis container for tests that exercise
// the real room storage or the pub/sub fan-out layer.
package suite

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

// containerLifetime is a hard kill for leaked containers; maxWait bounds
// both the docker pull and every retry against the fresh instance.
const (
	containerLifetime = 120
	maxWait           = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client
}

// New - starts a redis container and returns a suite whose Storage points at
// it, flushed clean. The container and the context are torn down with the test.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWait)
	t.Cleanup(cancel)

	storage := startRedis(ctx, t)

	if err := storage.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush redis: %v", err)
	}

	return ctx, &Suite{
		T:       t,
		Logger:  slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})),
		Storage: storage,
	}
}

// RoomKeys - the room snapshot keys currently stored, for asserting on what
// the repository left behind.
func (that *Suite) RoomKeys(ctx context.Context) []string {
	that.Helper()

	keys, err := that.Storage.Keys(ctx, "room:*").Result()
	if err != nil {
		that.Fatalf("could not list room keys: %v", err)
	}

	return keys
}

func startRedis(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start redis container: %v", err)
	}

	// never returns an error
	_ = resource.Expire(containerLifetime)

	t.Cleanup(func() {
		t.Helper()

		if purgeErr := pool.Purge(resource); purgeErr != nil {
			t.Fatalf("could not purge redis container: %v", purgeErr)
		}
	})

	addr := resource.GetHostPort(redisPort)
	pool.MaxWait = maxWait

	var client *redis.Client
	if err = pool.Retry(func() error {
		client = redis.NewClient(&redis.Options{Addr: addr})
		return client.Ping(ctx).Err()
	}); err != nil {
		t.Fatalf("could not connect to redis at %s: %v", addr, err)
	}

	return client
}
