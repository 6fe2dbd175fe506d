package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Layer fans a frame out to every subscriber of a room, possibly across
// relay instances. The local implementation covers one process; the redis
// implementation mirrors the pub/sub channel layer the rooms originally
// ran on.
type Layer interface {
	Publish(ctx context.Context, roomCode string, frame []byte) error
	Subscribe(ctx context.Context, roomCode string, deliver func(frame []byte)) (func(), error)
}

// LocalLayer delivers frames to in-process subscribers only.
type LocalLayer struct {
	mu   sync.Mutex
	subs map[string]map[*localSub]struct{}
}

type localSub struct {
	deliver func(frame []byte)
}

func NewLocalLayer() *LocalLayer {
	return &LocalLayer{
		subs: make(map[string]map[*localSub]struct{}),
	}
}

func (that *LocalLayer) Publish(_ context.Context, roomCode string, frame []byte) error {
	that.mu.Lock()
	set := that.subs[roomCode]
	delivers := make([]func([]byte), 0, len(set))
	for sub := range set {
		delivers = append(delivers, sub.deliver)
	}
	that.mu.Unlock()

	for _, deliver := range delivers {
		deliver(frame)
	}

	return nil
}

func (that *LocalLayer) Subscribe(_ context.Context, roomCode string, deliver func(frame []byte)) (func(), error) {
	sub := &localSub{deliver: deliver}

	that.mu.Lock()
	if that.subs[roomCode] == nil {
		that.subs[roomCode] = make(map[*localSub]struct{})
	}
	that.subs[roomCode][sub] = struct{}{}
	that.mu.Unlock()

	cancel := func() {
		that.mu.Lock()
		defer that.mu.Unlock()

		set := that.subs[roomCode]
		delete(set, sub)
		if len(set) == 0 {
			delete(that.subs, roomCode)
		}
	}

	return cancel, nil
}

// RedisLayer fans frames out through redis pub/sub, one channel per room,
// so rooms span every relay instance connected to the same redis.
type RedisLayer struct {
	logger *slog.Logger
	client *redis.Client
}

func NewRedisLayer(logger *slog.Logger, client *redis.Client) *RedisLayer {
	return &RedisLayer{
		logger: logger.With("component", "redis-layer"),
		client: client,
	}
}

func (that *RedisLayer) Publish(ctx context.Context, roomCode string, frame []byte) error {
	if err := that.client.Publish(ctx, layerKey(roomCode), frame).Err(); err != nil {
		return fmt.Errorf("failed to publish room frame: %w", err)
	}

	return nil
}

func (that *RedisLayer) Subscribe(ctx context.Context, roomCode string, deliver func(frame []byte)) (func(), error) {
	pubsub := that.client.Subscribe(ctx, layerKey(roomCode))

	// Confirm the subscription before any frame can be published past us.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room channel: %w", err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			deliver([]byte(msg.Payload))
		}
	}()

	cancel := func() {
		if err := pubsub.Close(); err != nil {
			that.logger.Warn("failed to close room subscription", "room", roomCode, "error", err)
		}
	}

	return cancel, nil
}

func layerKey(roomCode string) string {
	return "layer:room:" + roomCode
}
