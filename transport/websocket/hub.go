package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/instantmusic/realtime/pkg/protocol"
)

const sendBufferSize = 16

type roomFrame struct {
	roomCode string
	frame    []byte
}

// Hub tracks the clients of every active room on this instance and keeps
// one layer subscription per room alive while the room has local clients.
type Hub struct {
	logger *slog.Logger
	layer  Layer

	register   chan *client
	unregister chan *client
	inbound    chan roomFrame
	done       chan struct{}

	rooms map[string]*roomState
}

type roomState struct {
	clients map[*client]struct{}
	cancel  func()
}

func newHub(logger *slog.Logger, layer Layer) *Hub {
	return &Hub{
		logger:     logger.With("component", "hub"),
		layer:      layer,
		register:   make(chan *client),
		unregister: make(chan *client),
		inbound:    make(chan roomFrame, 64),
		done:       make(chan struct{}),
		rooms:      make(map[string]*roomState),
	}
}

// Run - processes registrations and layer deliveries until the context ends.
func (that *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			that.shutdown()
			return

		case c := <-that.register:
			that.addClient(ctx, c)

		case c := <-that.unregister:
			that.removeClient(c)

		case rf := <-that.inbound:
			that.deliver(rf)
		}
	}
}

// Broadcast - publishes an envelope to every subscriber of a room, local
// clients of this instance included.
func (that *Hub) Broadcast(ctx context.Context, roomCode string, msg protocol.Envelope) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast: %w", err)
	}

	if err := that.layer.Publish(ctx, roomCode, frame); err != nil {
		return fmt.Errorf("failed to broadcast to room %s: %w", roomCode, err)
	}

	return nil
}

func (that *Hub) addClient(ctx context.Context, c *client) {
	rs := that.rooms[c.roomCode]
	if rs == nil {
		rs = &roomState{clients: make(map[*client]struct{})}

		cancel, err := that.layer.Subscribe(ctx, c.roomCode, func(frame []byte) {
			select {
			case that.inbound <- roomFrame{roomCode: c.roomCode, frame: frame}:
			case <-that.done:
			}
		})
		if err != nil {
			that.logger.Error("failed to subscribe room to layer", "room", c.roomCode, "error", err)
			cancel = func() {}
		}

		rs.cancel = cancel
		that.rooms[c.roomCode] = rs
	}

	rs.clients[c] = struct{}{}
	that.logger.Debug("client joined", "room", c.roomCode, "client", c.id, "clients", len(rs.clients))
}

func (that *Hub) removeClient(c *client) {
	rs := that.rooms[c.roomCode]
	if rs == nil {
		return
	}

	if _, ok := rs.clients[c]; !ok {
		return
	}

	delete(rs.clients, c)
	c.closeSend()

	if len(rs.clients) == 0 {
		rs.cancel()
		delete(that.rooms, c.roomCode)
	}

	that.logger.Debug("client left", "room", c.roomCode, "client", c.id)
}

func (that *Hub) deliver(rf roomFrame) {
	rs := that.rooms[rf.roomCode]
	if rs == nil {
		return
	}

	for c := range rs.clients {
		select {
		case c.send <- rf.frame:
		default:
			// The client stopped draining its buffer; cut it loose.
			delete(rs.clients, c)
			c.closeSend()
			that.logger.Warn("dropping slow client", "room", rf.roomCode, "client", c.id)
		}
	}

	if len(rs.clients) == 0 {
		rs.cancel()
		delete(that.rooms, rf.roomCode)
	}
}

// detach - drops a client from its room, returning immediately once the hub
// has stopped.
func (that *Hub) detach(c *client) {
	select {
	case that.unregister <- c:
	case <-that.done:
	}
}

func (that *Hub) shutdown() {
	close(that.done)

	for roomCode, rs := range that.rooms {
		rs.cancel()
		for c := range rs.clients {
			c.closeSend()
		}
		delete(that.rooms, roomCode)
	}
}
