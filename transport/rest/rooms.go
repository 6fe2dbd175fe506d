package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/instantmusic/realtime/internal/apperror"
	"github.com/instantmusic/realtime/internal/entity"
)

const createRoomAttempts = 5

type createRoomRequest struct {
	Name     string `json:"name,omitempty"`
	Mode     string `json:"mode,omitempty"`
	NumRound int    `json:"num_round,omitempty"`
}

func (that *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	// An empty body means a room with default settings.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	game, err := that.createRoom(r, req)
	if err != nil {
		that.logger.Error("failed to create room", "error", err)
		http.Error(w, "failed to create room", http.StatusInternalServerError)

		return
	}

	that.writeJSON(w, http.StatusCreated, game)
}

// createRoom - picks a fresh room code, retrying on the rare collision.
func (that *Server) createRoom(r *http.Request, req createRoomRequest) (*entity.Game, error) {
	for range createRoomAttempts {
		code, err := GenerateRoomCode()
		if err != nil {
			return nil, err
		}

		if _, err = that.rooms.GetByCode(r.Context(), code); err == nil {
			continue
		} else if !errors.Is(err, apperror.ErrRoomNotFound) {
			return nil, err
		}

		game := entity.NewGame(code)
		game.ID = uuid.New().String()
		if req.Name != "" {
			game.Name = req.Name
		}
		if req.Mode != "" {
			game.Mode = req.Mode
		}
		if req.NumRound > 0 {
			game.NumRounds = req.NumRound
		}

		if err = that.rooms.Save(r.Context(), game); err != nil {
			return nil, err
		}

		return game, nil
	}

	return nil, apperror.ErrRoomCodeExhausted
}

func (that *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	game, err := that.rooms.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, apperror.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		that.logger.Error("failed to get room", "room", code, "error", err)
		http.Error(w, "failed to get room", http.StatusInternalServerError)

		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if err := that.rooms.DeleteByCode(r.Context(), code); err != nil {
		that.logger.Error("failed to delete room", "room", code, "error", err)
		http.Error(w, "failed to delete room", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
