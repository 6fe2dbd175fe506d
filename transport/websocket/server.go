package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/instantmusic/realtime/internal/repository"
	"github.com/instantmusic/realtime/pkg/protocol"
)

// Server relays game events between the players of a room. It keeps no
// game rules of its own: clients publish events, the server fans them out
// through the layer and persists the latest room snapshot.
type Server struct {
	logger   *slog.Logger
	rooms    repository.RoomRepository
	hub      *Hub
	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, c *client, payload json.RawMessage) error
}

// New - creates a relay server on top of a room repository and a fan-out layer.
func New(logger *slog.Logger, rooms repository.RoomRepository, layer Layer) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		rooms:  rooms,
		hub:    newHub(logger, layer),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}

	server.handlers = map[string]func(ctx context.Context, c *client, payload json.RawMessage) error{
		protocol.EventPlayerJoin:   server.handlePlayerJoin,
		protocol.EventPlayerAnswer: server.handlePlayerAnswer,
		protocol.EventStartGame:    server.handleStartGame,
		protocol.EventNextRound:    server.handleNextRound,
	}

	return server
}

// Handler - the HTTP handler serving room websocket endpoints.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/game/", func(w http.ResponseWriter, r *http.Request) {
		that.serveRoom(ctx, w, r)
	})

	return mux
}

// Start - runs the hub and the HTTP listener until the context ends.
func (that *Server) Start(ctx context.Context, port string) error {
	go that.hub.Run(ctx)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = httpServer.Shutdown(shutdownCtx)
	}()

	that.logger.Info("starting websocket server", "port", port)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("websocket server failed: %w", err)
	}

	return nil
}

// RunHub - starts only the hub loop, for serving through an external listener.
func (that *Server) RunHub(ctx context.Context) {
	that.hub.Run(ctx)
}

func (that *Server) serveRoom(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	roomCode := roomCodeFromPath(r.URL.Path)
	if roomCode == "" {
		http.NotFound(w, r)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		that.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &client{
		id:       uuid.New().String(),
		roomCode: roomCode,
		hub:      that.hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		logger:   that.logger,
	}

	select {
	case that.hub.register <- c:
	case <-that.hub.done:
		conn.Close()
		return
	}

	that.greet(ctx, c)

	go c.writePump()
	c.readPump(func(c *client, frame []byte) {
		that.route(ctx, c, frame)
	})
}

// greet - confirms the connection and replays the room snapshot when one exists.
func (that *Server) greet(ctx context.Context, c *client) {
	welcome, err := protocol.NewEnvelope(protocol.EventConnectionEstablished, protocol.InfoPayload{
		Message: "Connected to game room",
	})
	if err == nil {
		that.sendEnvelope(c, welcome)
	}

	game, err := that.rooms.GetByCode(ctx, c.roomCode)
	if err != nil {
		return
	}

	snapshot, err := protocol.NewEnvelope(protocol.EventGameState, protocol.GameStatePayload{Game: game})
	if err != nil {
		that.logger.Error("failed to encode room snapshot", "room", c.roomCode, "error", err)
		return
	}

	that.sendEnvelope(c, snapshot)
}

func (that *Server) route(ctx context.Context, c *client, frame []byte) {
	var msg protocol.Envelope
	if err := json.Unmarshal(frame, &msg); err != nil {
		that.sendError(c, "Invalid JSON")
		return
	}

	handler, ok := that.handlers[msg.Type]
	if !ok {
		that.sendError(c, "Unknown message type")
		return
	}

	if err := handler(ctx, c, msg.Payload); err != nil {
		that.logger.Error("failed to handle message", "type", msg.Type, "room", c.roomCode, "error", err)
		that.sendError(c, "Failed to process message")
	}
}

func (that *Server) sendError(c *client, text string) {
	msg, err := protocol.NewEnvelope(protocol.EventError, protocol.InfoPayload{Message: text})
	if err != nil {
		return
	}

	that.sendEnvelope(c, msg)
}

func (that *Server) sendEnvelope(c *client, msg protocol.Envelope) {
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.enqueue(frame)
}

func roomCodeFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/ws/game/")
	if rest == path {
		return ""
	}

	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}

	return rest
}
