package client

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/instantmusic/realtime/pkg/protocol"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gameServer is a minimal in-process room endpoint for channel and session
// tests: it records inbound envelopes and can push frames to every peer.
type gameServer struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	inbound  []protocol.Envelope
	rooms    []string
	closures int
}

func newGameServer(t *testing.T) *gameServer {
	t.Helper()

	gs := &gameServer{t: t}
	gs.server = httptest.NewServer(http.HandlerFunc(gs.handle))
	t.Cleanup(gs.server.Close)

	return gs
}

// URL returns the ws:// base URL of the server.
func (that *gameServer) URL() string {
	return "ws" + strings.TrimPrefix(that.server.URL, "http")
}

func (that *gameServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	room := parts[len(parts)-1]

	that.mu.Lock()
	that.conns = append(that.conns, conn)
	that.rooms = append(that.rooms, room)
	that.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			that.mu.Lock()
			that.closures++
			that.mu.Unlock()

			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		that.mu.Lock()
		that.inbound = append(that.inbound, env)
		that.mu.Unlock()
	}
}

// push sends a raw frame to every connected peer.
func (that *gameServer) push(frame []byte) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, conn := range that.conns {
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}
}

func (that *gameServer) pushEnvelope(eventType string, payload any) {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		that.t.Fatalf("failed to build envelope: %v", err)
	}

	frame, err := json.Marshal(env)
	if err != nil {
		that.t.Fatalf("failed to marshal envelope: %v", err)
	}

	that.push(frame)
}

func (that *gameServer) received() []protocol.Envelope {
	that.mu.Lock()
	defer that.mu.Unlock()

	out := make([]protocol.Envelope, len(that.inbound))
	copy(out, that.inbound)

	return out
}

func (that *gameServer) joinedRooms() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	out := make([]string, len(that.rooms))
	copy(out, that.rooms)

	return out
}

func (that *gameServer) closedConns() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.closures
}
