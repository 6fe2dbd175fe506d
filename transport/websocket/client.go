package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// client is one websocket connection attached to a room.
type client struct {
	id       string
	roomCode string

	hub    *Hub
	conn   *websocket.Conn
	logger *slog.Logger

	// send is closed by the hub goroutine only, via closeSend. enqueue and
	// closeSend share sendMu so the read pump can never send on a channel
	// the hub has already closed.
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool
}

// readPump - reads frames from the socket and hands them to the server's
// router until the connection drops.
func (that *client) readPump(route func(c *client, frame []byte)) {
	defer func() {
		that.hub.detach(that)
		that.conn.Close()
	}()

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				that.logger.Debug("unexpected close", "client", that.id, "error", err)
			}
			return
		}

		route(that, frame)
	}
}

// writePump - drains the send channel onto the socket and keeps the
// connection alive with pings.
func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		that.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue - queues a frame for this client only, dropping it if the client
// has been detached or its buffer is full.
func (that *client) enqueue(frame []byte) {
	that.sendMu.Lock()
	defer that.sendMu.Unlock()

	if that.sendClosed {
		return
	}

	select {
	case that.send <- frame:
	default:
		that.logger.Warn("send buffer full, dropping frame", "client", that.id)
	}
}

// closeSend - closes the send channel exactly once. Must only be called
// from the hub goroutine.
func (that *client) closeSend() {
	that.sendMu.Lock()
	defer that.sendMu.Unlock()

	if that.sendClosed {
		return
	}

	that.sendClosed = true
	close(that.send)
}

func (that *client) detached() bool {
	that.sendMu.Lock()
	defer that.sendMu.Unlock()

	return that.sendClosed
}
