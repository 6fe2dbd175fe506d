package protocol

import (
	"encoding/json"
	"fmt"
)

// Client -> server event types.
const (
	EventPlayerJoin   = "player_join"
	EventPlayerAnswer = "player_answer"
	EventStartGame    = "start_game"
	EventNextRound    = "next_round"
)

// Server -> client event types.
const (
	EventConnectionEstablished = "connection_established"
	EventPlayerJoined          = "player_joined"
	EventPlayerAnswered        = "player_answered"
	EventGameStarted           = "game_started"
	EventRoundStarted          = "round_started"
	EventGameState             = "game_state"
	EventGameUpdated           = "game_updated"
	EventGameFinished          = "game_finished"
	EventError                 = "error"
)

// Envelope is the wire format for every frame on the game channel,
// in both directions. Payload stays opaque to the transport layer.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope - builds an envelope with a marshaled payload.
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: eventType}, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return Envelope{Type: eventType, Payload: raw}, nil
}

// DecodePayload - unmarshals an envelope payload into target.
func DecodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return nil
}
