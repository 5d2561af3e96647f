//go:build integration

package fragment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start redis: %v", err)
	}
	port, err := c.MappedPort(ctx, "6379")
	if err != nil {
		_ = c.Terminate(ctx)
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		t.Fatalf("failed to get host: %v", err)
	}
	return c, host + ":" + port.Port()
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, addr := startRedis(t, ctx)
	defer func() { _ = c.Terminate(ctx) }()

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	s := NewRedisStore(client)

	if err := s.Put(ctx, "c1", 0, []byte("principal"), time.Minute); err != nil {
		t.Fatalf("put principal: %v", err)
	}
	for i, p := range []string{"Hello", ", wor", "ld!"} {
		if err := s.Put(ctx, "c1", i+1, []byte(p), time.Minute); err != nil {
			t.Fatalf("put body %d: %v", i+1, err)
		}
	}

	got, err := s.Get(ctx, "c1", 0)
	if err != nil {
		t.Fatalf("get principal: %v", err)
	}
	if string(got) != "principal" {
		t.Fatalf("expected principal payload, got %q", got)
	}

	frags, err := s.List(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(frags) != 3 {
		t.Fatalf("expected 3 body fragments, got %d", len(frags))
	}
	for _, f := range frags {
		if f.Index < 1 {
			t.Fatalf("list returned principal at index %d", f.Index)
		}
	}

	if _, err := s.Get(ctx, "c1", 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	c, addr := startRedis(t, ctx)
	defer func() { _ = c.Terminate(ctx) }()

	client := redis.NewClient(&redis.Options{Addr: addr})
	s := NewRedisStore(client)

	if err := s.Put(ctx, "c1", 1, []byte("short"), time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(1500 * time.Millisecond)
	if _, err := s.Get(ctx, "c1", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected fragment to lapse, got %v", err)
	}
}
