package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/instantmusic/realtime/internal/apperror"
	"github.com/instantmusic/realtime/internal/entity"
	"github.com/instantmusic/realtime/pkg/protocol"
)

func (that *Server) handlePlayerJoin(ctx context.Context, c *client, payload json.RawMessage) error {
	var req protocol.PlayerPayload
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return fmt.Errorf("failed to decode player join: %w", err)
	}

	if req.Player == nil || req.Player.Username == "" {
		return apperror.ErrMalformedFrame
	}

	game, err := that.rooms.GetByCode(ctx, c.roomCode)
	if err != nil {
		if !errors.Is(err, apperror.ErrRoomNotFound) {
			return fmt.Errorf("failed to load room %s: %w", c.roomCode, err)
		}

		game = entity.NewGame(c.roomCode)
	}

	if len(game.Players) >= game.MaxPlayers && game.GetPlayerByUsername(req.Player.Username) == nil {
		return apperror.ErrRoomFull
	}

	player := *req.Player
	player.Connected = true
	game.AddPlayer(&player)

	if err := that.rooms.Save(ctx, game); err != nil {
		return fmt.Errorf("failed to save room %s: %w", c.roomCode, err)
	}

	msg, err := protocol.NewEnvelope(protocol.EventPlayerJoined, protocol.PlayerPayload{Player: &player})
	if err != nil {
		return fmt.Errorf("failed to encode player joined: %w", err)
	}

	return that.hub.Broadcast(ctx, c.roomCode, msg)
}

func (that *Server) handlePlayerAnswer(ctx context.Context, c *client, payload json.RawMessage) error {
	var req protocol.AnswerPayload
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return fmt.Errorf("failed to decode player answer: %w", err)
	}

	if req.Player == nil || req.Player.Username == "" {
		return apperror.ErrMalformedFrame
	}

	msg, err := protocol.NewEnvelope(protocol.EventPlayerAnswered, req)
	if err != nil {
		return fmt.Errorf("failed to encode player answered: %w", err)
	}

	return that.hub.Broadcast(ctx, c.roomCode, msg)
}

func (that *Server) handleStartGame(ctx context.Context, c *client, _ json.RawMessage) error {
	game, err := that.rooms.GetByCode(ctx, c.roomCode)
	if err != nil {
		if !errors.Is(err, apperror.ErrRoomNotFound) {
			return fmt.Errorf("failed to load room %s: %w", c.roomCode, err)
		}

		game = entity.NewGame(c.roomCode)
	}

	game.Status = entity.StatusInProgress

	if err := that.rooms.Save(ctx, game); err != nil {
		return fmt.Errorf("failed to save room %s: %w", c.roomCode, err)
	}

	msg, err := protocol.NewEnvelope(protocol.EventGameStarted, protocol.GameStatePayload{Game: game})
	if err != nil {
		return fmt.Errorf("failed to encode game started: %w", err)
	}

	return that.hub.Broadcast(ctx, c.roomCode, msg)
}

func (that *Server) handleNextRound(ctx context.Context, c *client, payload json.RawMessage) error {
	var req protocol.RoundPayload
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return fmt.Errorf("failed to decode next round: %w", err)
	}

	if req.RoundData == nil {
		return apperror.ErrMalformedFrame
	}

	game, err := that.rooms.GetByCode(ctx, c.roomCode)
	if err == nil {
		game.CurrentRound = req.RoundData

		if err := that.rooms.Save(ctx, game); err != nil {
			return fmt.Errorf("failed to save room %s: %w", c.roomCode, err)
		}
	} else if !errors.Is(err, apperror.ErrRoomNotFound) {
		return fmt.Errorf("failed to load room %s: %w", c.roomCode, err)
	}

	msg, err := protocol.NewEnvelope(protocol.EventRoundStarted, req)
	if err != nil {
		return fmt.Errorf("failed to encode round started: %w", err)
	}

	return that.hub.Broadcast(ctx, c.roomCode, msg)
}
