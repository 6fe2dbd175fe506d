package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/instantmusic/realtime/internal/apperror"
	"github.com/instantmusic/realtime/internal/entity"
)

// roomTTL keeps abandoned rooms from accumulating forever.
const roomTTL = 24 * time.Hour

// RoomRepository stores the latest game snapshot per room code, so late
// joiners can be brought up to date without replaying events.
type RoomRepository interface {
	Save(ctx context.Context, game *entity.Game) error
	GetByCode(ctx context.Context, roomCode string) (*entity.Game, error)
	DeleteByCode(ctx context.Context, roomCode string) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func (that *dbRoom) Save(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal room snapshot: %w", err)
	}

	roomKey := "room:" + game.RoomCode
	if err = that.client.Set(ctx, roomKey, gameJSON, roomTTL).Err(); err != nil {
		return fmt.Errorf("failed to set room snapshot: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByCode(ctx context.Context, roomCode string) (*entity.Game, error) {
	roomKey := "room:" + roomCode

	response, err := that.client.Get(ctx, roomKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room snapshot: %w", err)
	}

	return &game, nil
}

func (that *dbRoom) DeleteByCode(ctx context.Context, roomCode string) error {
	roomKey := "room:" + roomCode

	if err := that.client.Del(ctx, roomKey).Err(); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}
