package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/instantmusic/realtime/internal/apperror"
	"github.com/instantmusic/realtime/pkg/protocol"
)

const defaultConnectTimeout = 10 * time.Second

const writeWait = 10 * time.Second

// State is the lifecycle state of a channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (that State) String() string {
	switch that {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// FrameHandler receives every raw inbound frame, in arrival order.
type FrameHandler func(frame []byte)

// Channel owns one physical websocket connection to one game room.
// Reconnection is never automatic: after a failure the caller decides
// whether to call Connect again.
type Channel struct {
	logger  *slog.Logger
	dialer  *websocket.Dialer
	baseURL string
	onFrame FrameHandler

	mu       sync.Mutex
	writeMu  sync.Mutex
	state    State
	conn     *websocket.Conn
	roomCode string
	done     chan struct{}
}

// NewChannel - creates an idle channel for a server base URL (e.g. ws://host:port).
// connectTimeout bounds the websocket handshake; zero means the default.
func NewChannel(logger *slog.Logger, serverURL string, connectTimeout time.Duration, onFrame FrameHandler) *Channel {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	return &Channel{
		logger:  logger.With("component", "channel"),
		dialer:  &websocket.Dialer{HandshakeTimeout: connectTimeout},
		baseURL: strings.TrimRight(serverURL, "/"),
		onFrame: onFrame,
		state:   StateIdle,
	}
}

// Connect - establishes the connection for a room code. If the channel is
// already connecting or open, the existing connection is fully closed first.
// Failures are wrapped in apperror.ErrConnectionFailed.
func (that *Channel) Connect(ctx context.Context, roomCode string) error {
	that.mu.Lock()
	if that.state == StateConnecting || that.state == StateOpen {
		that.closeLocked()
	}
	that.state = StateConnecting
	that.roomCode = roomCode
	that.mu.Unlock()

	conn, resp, err := that.dialer.DialContext(ctx, that.roomURL(roomCode), nil) //nolint:bodyclose // nil body on handshake success
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		that.mu.Lock()
		that.state = StateClosed
		that.mu.Unlock()

		return fmt.Errorf("%w: dial room %s: %v", apperror.ErrConnectionFailed, roomCode, err)
	}

	that.mu.Lock()
	if that.state != StateConnecting {
		// Disconnect won the race while the handshake was in flight.
		that.mu.Unlock()
		_ = conn.Close()

		return apperror.ErrChannelNotOpen
	}

	done := make(chan struct{})
	that.conn = conn
	that.done = done
	that.state = StateOpen
	that.mu.Unlock()

	go that.readLoop(conn, done)

	that.logger.Debug("channel open", "room", roomCode)

	return nil
}

// Send - serializes and transmits a message. Messages sent while the channel
// is not open are dropped, not queued; Send never fails for a closed channel.
func (that *Channel) Send(msg protocol.Envelope) {
	that.mu.Lock()
	conn := that.conn
	state := that.state
	that.mu.Unlock()

	if state != StateOpen || conn == nil {
		that.logger.Debug("dropping message on non-open channel", "type", msg.Type, "state", state.String())
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		that.logger.Warn("failed to marshal message", "type", msg.Type, "error", err)
		return
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		that.logger.Warn("failed to write message", "type", msg.Type, "error", err)
	}
}

// Disconnect - closes the connection and releases the transport. Safe to
// call on an already-closed or never-connected channel.
func (that *Channel) Disconnect() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateIdle || that.state == StateClosing || that.state == StateClosed {
		return
	}

	that.closeLocked()
}

// State - reports the current lifecycle state.
func (that *Channel) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

// RoomCode - reports the room the channel was last connected to.
func (that *Channel) RoomCode() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.roomCode
}

func (that *Channel) closeLocked() {
	that.state = StateClosing

	if that.done != nil {
		close(that.done)
		that.done = nil
	}

	if that.conn != nil {
		deadline := time.Now().Add(writeWait)
		_ = that.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = that.conn.Close()
		that.conn = nil
	}

	that.state = StateClosed
}

func (that *Channel) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			that.mu.Lock()
			if that.conn == conn && that.state == StateOpen {
				that.state = StateClosed
				that.conn = nil
				that.logger.Debug("connection lost", "room", that.roomCode, "error", err)
			}
			that.mu.Unlock()

			return
		}

		select {
		case <-done:
			// Disconnect has run; frames still in flight are discarded.
			return
		default:
		}

		that.onFrame(data)
	}
}

func (that *Channel) roomURL(roomCode string) string {
	return fmt.Sprintf("%s/ws/game/%s/", that.baseURL, roomCode)
}
