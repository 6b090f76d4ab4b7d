package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/crypvault/wallet-api/pkg/pgutil"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	pgutil.RequireDockerAccess(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
	return client
}

func TestRedisPubSub_RoundTrip(t *testing.T) {
	client := setupRedis(t)
	logger := zap.NewNop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	received := make(chan Event, 1)
	sub := NewRedisSubscriber(client, logger)
	if err := sub.Subscribe(ctx, "user-1", func(e Event) { received <- e }); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	pub := NewRedisPublisher(client, logger)
	event := Event{
		Type:    EventBalanceUpdated,
		UserID:  "user-1",
		Payload: map[string]any{"balance": "1.5"},
	}

	// The subscription registers asynchronously; republish until delivered.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case got := <-received:
			if got.Type != EventBalanceUpdated {
				t.Errorf("expected type %s, got %s", EventBalanceUpdated, got.Type)
			}
			if got.UserID != "user-1" {
				t.Errorf("expected user-1, got %s", got.UserID)
			}
			if got.Payload["balance"] != "1.5" {
				t.Errorf("expected balance 1.5 in payload, got %v", got.Payload)
			}
			return
		case <-tick.C:
			if err := pub.Publish(ctx, event); err != nil {
				t.Fatalf("Publish() failed: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestRedisPubSub_ChannelsArePerUser(t *testing.T) {
	client := setupRedis(t)
	logger := zap.NewNop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	received := make(chan Event, 16)
	sub := NewRedisSubscriber(client, logger)
	if err := sub.Subscribe(ctx, "user-2", func(e Event) { received <- e }); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	pub := NewRedisPublisher(client, logger)
	other := Event{Type: EventTransactionCreated, UserID: "user-1"}
	mine := Event{Type: EventTransactionCreated, UserID: "user-2"}

	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case got := <-received:
			// The handler is attached to user-2's channel only; any event for
			// another user means channels leak across users.
			if got.UserID != "user-2" {
				t.Fatalf("received event for %s on user-2's channel", got.UserID)
			}
			return
		case <-tick.C:
			if err := pub.Publish(ctx, other); err != nil {
				t.Fatalf("Publish() failed: %v", err)
			}
			if err := pub.Publish(ctx, mine); err != nil {
				t.Fatalf("Publish() failed: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}
