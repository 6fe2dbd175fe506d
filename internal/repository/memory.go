package repository

import (
	"context"
	"sync"

	"github.com/instantmusic/realtime/internal/apperror"
	"github.com/instantmusic/realtime/internal/entity"
)

// memoryRoom is an in-process RoomRepository for single-instance setups
// and tests that should not need a redis container.
type memoryRoom struct {
	mu    sync.RWMutex
	rooms map[string]*entity.Game
}

func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoom{
		rooms: make(map[string]*entity.Game),
	}
}

func (that *memoryRoom) Save(_ context.Context, game *entity.Game) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.rooms[game.RoomCode] = game.Clone()

	return nil
}

func (that *memoryRoom) GetByCode(_ context.Context, roomCode string) (*entity.Game, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	game, ok := that.rooms[roomCode]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return game.Clone(), nil
}

func (that *memoryRoom) DeleteByCode(_ context.Context, roomCode string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, roomCode)

	return nil
}
