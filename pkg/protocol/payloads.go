package protocol

import "github.com/instantmusic/realtime/internal/entity"

// PlayerPayload carries the player for player_join / player_joined frames.
type PlayerPayload struct {
	Player *entity.Player `json:"player"`
}

// AnswerPayload carries a submitted answer for player_answer / player_answered frames.
type AnswerPayload struct {
	Player *entity.Player `json:"player"`
	Answer string         `json:"answer"`
}

// RoundPayload carries the round data for next_round / round_started frames.
type RoundPayload struct {
	RoundData *entity.Round `json:"round_data"`
}

// GameStatePayload carries a full game snapshot for game_state frames.
type GameStatePayload struct {
	Game *entity.Game `json:"game"`
}

// GameUpdatePayload carries a partial game update for game_updated frames.
type GameUpdatePayload struct {
	Update entity.GamePatch `json:"update"`
}

// InfoPayload carries a human-readable message, used by
// connection_established and error frames.
type InfoPayload struct {
	Message string `json:"message"`
}
