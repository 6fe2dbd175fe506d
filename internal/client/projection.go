package client

import (
	"sync"

	"github.com/instantmusic/realtime/internal/entity"
)

// GameStore holds the latest known game snapshot, shared by every consumer
// in the process. Writes are last-write-wins; the server is the sole source
// of truth and its updates arrive in the dispatcher's strict arrival order.
type GameStore struct {
	mu      sync.RWMutex
	current *entity.Game
}

func NewGameStore() *GameStore {
	return &GameStore{}
}

// SetCurrentGame - replaces the entire projection. A nil game resets it.
func (that *GameStore) SetCurrentGame(game *entity.Game) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.current = game.Clone()
}

// UpdateGame - merges the patch into the existing projection. With no
// current game the update is a no-op: a partial update never fabricates one.
func (that *GameStore) UpdateGame(patch entity.GamePatch) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.current == nil {
		return
	}

	that.current.ApplyPatch(patch)
}

// AddPlayer - adds a player to the projected roster; no-op without a game.
func (that *GameStore) AddPlayer(player *entity.Player) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.current == nil || player == nil {
		return
	}

	cp := *player
	that.current.AddPlayer(&cp)
}

// CurrentGame - returns a copy of the projection, or nil when there is none.
func (that *GameStore) CurrentGame() *entity.Game {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.current.Clone()
}
