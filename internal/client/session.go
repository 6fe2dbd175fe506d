package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/instantmusic/realtime/pkg/protocol"
)

// transport is the slice of Channel the session drives. Narrowed to an
// interface so session tests can substitute a scripted transport.
type transport interface {
	Connect(ctx context.Context, roomCode string) error
	Send(msg protocol.Envelope)
	Disconnect()
}

type channelFactory func(onFrame FrameHandler) transport

// Session binds a room code to a channel for the lifetime of one consumer.
// It owns at most one open channel at a time: a room change or Close fully
// tears the previous channel down before anything else happens.
type Session struct {
	logger         *slog.Logger
	dispatcher     *Dispatcher
	connectTimeout time.Duration
	newChannel     channelFactory

	mu         sync.Mutex
	channel    transport
	roomCode   string
	connected  bool
	interested bool
	generation uint64
}

// NewSession - creates a session for a server base URL. No connection is
// made until SetRoom is called with a non-empty room code.
func NewSession(logger *slog.Logger, serverURL string, connectTimeout time.Duration) *Session {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	session := &Session{
		logger:         logger.With("component", "session"),
		dispatcher:     NewDispatcher(logger),
		connectTimeout: connectTimeout,
		interested:     true,
	}

	session.newChannel = func(onFrame FrameHandler) transport {
		return NewChannel(logger, serverURL, connectTimeout, onFrame)
	}

	return session
}

// SetRoom - binds the session to a room. An empty code means no active room.
// Switching rooms disconnects the previous channel before the new connect is
// issued; the connect itself runs asynchronously and flips Connected only if
// the session still wants this room by the time the handshake resolves.
func (that *Session) SetRoom(roomCode string) {
	that.mu.Lock()

	if !that.interested || roomCode == that.roomCode {
		that.mu.Unlock()
		return
	}

	if that.channel != nil {
		that.channel.Disconnect()
		that.channel = nil
	}
	that.connected = false
	that.roomCode = roomCode
	that.generation++

	if roomCode == "" {
		that.mu.Unlock()
		return
	}

	gen := that.generation
	ch := that.newChannel(that.dispatcher.HandleFrame)
	that.channel = ch
	timeout := that.connectTimeout
	that.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := ch.Connect(ctx, roomCode)

		that.mu.Lock()
		defer that.mu.Unlock()

		if err != nil {
			that.logger.Error("could not connect to room", "room", roomCode, "error", err)
			return
		}

		if !that.interested || gen != that.generation {
			// The consumer moved on while the handshake was in flight; the
			// late success must not resurrect the connected flag.
			ch.Disconnect()
			return
		}

		that.connected = true
		that.logger.Info("connected to room", "room", roomCode)
	}()
}

// Connected - reports whether the current room's channel is open.
func (that *Session) Connected() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.connected
}

// Send - fire-and-forget send of an event to the current room. With no open
// channel the message is dropped; Send never fails.
func (that *Session) Send(eventType string, payload any) {
	msg, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		that.logger.Warn("failed to build message", "type", eventType, "error", err)
		return
	}

	that.mu.Lock()
	ch := that.channel
	that.mu.Unlock()

	if ch == nil {
		that.logger.Debug("dropping message without active room", "type", eventType)
		return
	}

	ch.Send(msg)
}

// OnMessage - registers a handler for an event type and returns its cleanup,
// so registering and deregistering fit in a single expression.
func (that *Session) OnMessage(eventType string, handler Handler) func() {
	sub := that.dispatcher.On(eventType, handler)
	return func() { that.dispatcher.Off(sub) }
}

// Close - marks the session uninterested and disconnects. A connect still in
// flight may resolve later; its success is suppressed by the interest flag
// rather than aborted.
func (that *Session) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.interested = false
	that.connected = false
	that.roomCode = ""

	if that.channel != nil {
		that.channel.Disconnect()
		that.channel = nil
	}
}
