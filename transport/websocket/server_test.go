package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/instantmusic/realtime/internal/entity"
	"github.com/instantmusic/realtime/internal/repository"
	"github.com/instantmusic/realtime/pkg/protocol"
)

type relayFixture struct {
	rooms  repository.RoomRepository
	server *Server
	http   *httptest.Server
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rooms := repository.NewMemoryRoomRepository()
	server := New(logger, rooms, NewLocalLayer())

	go server.RunHub(ctx)

	httpServer := httptest.NewServer(server.Handler(ctx))
	t.Cleanup(httpServer.Close)

	return &relayFixture{rooms: rooms, server: server, http: httpServer}
}

// dial - connects to a room and consumes the connection_established greeting.
func (that *relayFixture) dial(t *testing.T, roomCode string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(that.http.URL, "http") + "/ws/game/" + roomCode + "/"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	welcome := readEnvelope(t, conn)
	require.Equal(t, protocol.EventConnectionEstablished, welcome.Type)

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg protocol.Envelope
	require.NoError(t, json.Unmarshal(frame, &msg))

	return msg
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()

	msg, err := protocol.NewEnvelope(eventType, payload)
	require.NoError(t, err)

	frame, err := json.Marshal(msg)
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func TestServer_PlayerJoin(t *testing.T) {
	t.Run("fans the join out to every client in the room", func(t *testing.T) {
		// Given: two clients connected to the same room
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")
		bob := fixture.dial(t, "ABC123")

		// When: one of them joins as a player
		sendEnvelope(t, alice, protocol.EventPlayerJoin, protocol.PlayerPayload{
			Player: &entity.Player{Username: "alice"},
		})

		// Then: both clients receive the player_joined event
		for _, conn := range []*websocket.Conn{alice, bob} {
			msg := readEnvelope(t, conn)
			require.Equal(t, protocol.EventPlayerJoined, msg.Type)

			var joined protocol.PlayerPayload
			require.NoError(t, protocol.DecodePayload(msg.Payload, &joined))
			require.Equal(t, "alice", joined.Player.Username)
			require.True(t, joined.Player.Connected)
		}
	})

	t.Run("persists the room snapshot for late joiners", func(t *testing.T) {
		// Given: a room where a player already joined
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")
		sendEnvelope(t, alice, protocol.EventPlayerJoin, protocol.PlayerPayload{
			Player: &entity.Player{Username: "alice"},
		})
		require.Equal(t, protocol.EventPlayerJoined, readEnvelope(t, alice).Type)

		// When: a new client connects to the room
		wsURL := "ws" + strings.TrimPrefix(fixture.http.URL, "http") + "/ws/game/ABC123/"
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		if resp != nil {
			resp.Body.Close()
		}
		defer conn.Close()

		// Then: the greeting is followed by the current room snapshot
		require.Equal(t, protocol.EventConnectionEstablished, readEnvelope(t, conn).Type)

		msg := readEnvelope(t, conn)
		require.Equal(t, protocol.EventGameState, msg.Type)

		var state protocol.GameStatePayload
		require.NoError(t, protocol.DecodePayload(msg.Payload, &state))
		require.Equal(t, "ABC123", state.Game.RoomCode)
		require.Len(t, state.Game.Players, 1)
		require.Equal(t, "alice", state.Game.Players[0].Username)
	})

	t.Run("does not leak events across rooms", func(t *testing.T) {
		// Given: clients in two different rooms
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")
		stranger := fixture.dial(t, "ZZZ999")

		// When: a player joins the first room
		sendEnvelope(t, alice, protocol.EventPlayerJoin, protocol.PlayerPayload{
			Player: &entity.Player{Username: "alice"},
		})
		require.Equal(t, protocol.EventPlayerJoined, readEnvelope(t, alice).Type)

		// Then: the other room hears nothing
		require.NoError(t, stranger.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
		_, _, err := stranger.ReadMessage()
		require.Error(t, err)
	})
}

func TestServer_StartGame(t *testing.T) {
	t.Run("broadcasts game_started with the updated snapshot", func(t *testing.T) {
		// Given: a room with one joined player
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")
		sendEnvelope(t, alice, protocol.EventPlayerJoin, protocol.PlayerPayload{
			Player: &entity.Player{Username: "alice"},
		})
		require.Equal(t, protocol.EventPlayerJoined, readEnvelope(t, alice).Type)

		// When: the game is started
		sendEnvelope(t, alice, protocol.EventStartGame, nil)

		// Then: the broadcast carries the in-progress snapshot
		msg := readEnvelope(t, alice)
		require.Equal(t, protocol.EventGameStarted, msg.Type)

		var state protocol.GameStatePayload
		require.NoError(t, protocol.DecodePayload(msg.Payload, &state))
		require.Equal(t, entity.StatusInProgress, state.Game.Status)

		saved, err := fixture.rooms.GetByCode(context.Background(), "ABC123")
		require.NoError(t, err)
		require.True(t, saved.IsInProgress())
	})
}

func TestServer_NextRound(t *testing.T) {
	t.Run("relays the round and stores it on the snapshot", func(t *testing.T) {
		// Given: a started room
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")
		sendEnvelope(t, alice, protocol.EventPlayerJoin, protocol.PlayerPayload{
			Player: &entity.Player{Username: "alice"},
		})
		require.Equal(t, protocol.EventPlayerJoined, readEnvelope(t, alice).Type)

		// When: the host pushes the next round
		sendEnvelope(t, alice, protocol.EventNextRound, protocol.RoundPayload{
			RoundData: &entity.Round{RoundNumber: 1, PreviewURL: "https://cdn.example/preview.mp3"},
		})

		// Then: the round is broadcast and persisted
		msg := readEnvelope(t, alice)
		require.Equal(t, protocol.EventRoundStarted, msg.Type)

		saved, err := fixture.rooms.GetByCode(context.Background(), "ABC123")
		require.NoError(t, err)
		require.NotNil(t, saved.CurrentRound)
		require.Equal(t, 1, saved.CurrentRound.RoundNumber)
	})
}

func TestServer_PlayerAnswer(t *testing.T) {
	t.Run("relays answers without touching the snapshot", func(t *testing.T) {
		// Given: two clients in a room
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")
		bob := fixture.dial(t, "ABC123")

		// When: one submits an answer
		sendEnvelope(t, alice, protocol.EventPlayerAnswer, protocol.AnswerPayload{
			Player: &entity.Player{Username: "alice"},
			Answer: "Daft Punk",
		})

		// Then: the other client receives it unchanged
		msg := readEnvelope(t, bob)
		require.Equal(t, protocol.EventPlayerAnswered, msg.Type)

		var answered protocol.AnswerPayload
		require.NoError(t, protocol.DecodePayload(msg.Payload, &answered))
		require.Equal(t, "alice", answered.Player.Username)
		require.Equal(t, "Daft Punk", answered.Answer)

		_, err := fixture.rooms.GetByCode(context.Background(), "ABC123")
		require.Error(t, err)
	})
}

func TestServer_BadFrames(t *testing.T) {
	t.Run("invalid JSON gets an error envelope, sender only", func(t *testing.T) {
		// Given: two clients in a room
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")
		bob := fixture.dial(t, "ABC123")

		// When: one sends a frame that is not JSON
		require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))

		// Then: only the sender is told
		msg := readEnvelope(t, alice)
		require.Equal(t, protocol.EventError, msg.Type)

		var info protocol.InfoPayload
		require.NoError(t, protocol.DecodePayload(msg.Payload, &info))
		require.Equal(t, "Invalid JSON", info.Message)

		require.NoError(t, bob.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
		_, _, err := bob.ReadMessage()
		require.Error(t, err)
	})

	t.Run("unknown event types are rejected", func(t *testing.T) {
		// Given: a connected client
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")

		// When: it sends an event the relay does not know
		sendEnvelope(t, alice, "do_a_barrel_roll", nil)

		// Then: it gets an error envelope back
		msg := readEnvelope(t, alice)
		require.Equal(t, protocol.EventError, msg.Type)

		var info protocol.InfoPayload
		require.NoError(t, protocol.DecodePayload(msg.Payload, &info))
		require.Equal(t, "Unknown message type", info.Message)
	})

	t.Run("join without a username is refused", func(t *testing.T) {
		// Given: a connected client
		fixture := newRelayFixture(t)
		alice := fixture.dial(t, "ABC123")

		// When: it joins with an empty player
		sendEnvelope(t, alice, protocol.EventPlayerJoin, protocol.PlayerPayload{})

		// Then: the relay reports a processing failure
		msg := readEnvelope(t, alice)
		require.Equal(t, protocol.EventError, msg.Type)
	})
}
