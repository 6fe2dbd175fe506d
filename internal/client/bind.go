package client

import (
	"encoding/json"

	"github.com/instantmusic/realtime/internal/entity"
	"github.com/instantmusic/realtime/pkg/protocol"
)

// BindGame registers the standard handlers that keep a game store in sync
// with server frames: full snapshots replace the projection, everything else
// merges into it. Returns one cleanup removing all registrations.
func BindGame(session *Session, store *GameStore) func() {
	log := session.logger.With("component", "bind")

	cleanups := make([]func(), 0, 6)
	register := func(eventType string, handler Handler) {
		cleanups = append(cleanups, session.OnMessage(eventType, handler))
	}

	register(protocol.EventGameState, func(payload json.RawMessage) {
		var p protocol.GameStatePayload
		if err := protocol.DecodePayload(payload, &p); err != nil {
			log.Warn("bad game_state payload", "error", err)
			return
		}
		store.SetCurrentGame(p.Game)
	})

	register(protocol.EventGameUpdated, func(payload json.RawMessage) {
		var p protocol.GameUpdatePayload
		if err := protocol.DecodePayload(payload, &p); err != nil {
			log.Warn("bad game_updated payload", "error", err)
			return
		}
		store.UpdateGame(p.Update)
	})

	register(protocol.EventGameStarted, func(json.RawMessage) {
		status := entity.StatusInProgress
		store.UpdateGame(entity.GamePatch{Status: &status})
	})

	register(protocol.EventGameFinished, func(json.RawMessage) {
		status := entity.StatusFinished
		store.UpdateGame(entity.GamePatch{Status: &status})
	})

	register(protocol.EventRoundStarted, func(payload json.RawMessage) {
		var p protocol.RoundPayload
		if err := protocol.DecodePayload(payload, &p); err != nil {
			log.Warn("bad round_started payload", "error", err)
			return
		}
		if p.RoundData == nil {
			return
		}
		store.UpdateGame(entity.GamePatch{CurrentRound: p.RoundData})
	})

	register(protocol.EventPlayerJoined, func(payload json.RawMessage) {
		var p protocol.PlayerPayload
		if err := protocol.DecodePayload(payload, &p); err != nil {
			log.Warn("bad player_joined payload", "error", err)
			return
		}
		store.AddPlayer(p.Player)
	})

	return func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}
}
