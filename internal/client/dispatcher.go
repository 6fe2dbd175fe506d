package client

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/instantmusic/realtime/internal/apperror"
	"github.com/instantmusic/realtime/pkg/protocol"
)

// Handler is invoked with the raw payload of a matching frame.
type Handler func(payload json.RawMessage)

// Subscription is the handle returned by On. Removing a listener requires
// passing back the exact handle, so two components subscribed to the same
// event can never unregister each other.
type Subscription struct {
	eventType string
	handler   Handler
}

// Dispatcher demultiplexes inbound frames into named events and routes them
// to registered handlers. Handler invocation is serialized: even when an old
// channel's read loop and its replacement both feed HandleFrame around a room
// switch, no two handlers ever run at the same time.
type Dispatcher struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}

	// dispatchMu is held only while handlers run, so On/Off stay callable
	// from inside a handler.
	dispatchMu sync.Mutex
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger.With("component", "dispatcher"),
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// On - registers a handler for an event type. Multiple handlers per type are
// allowed and all of them are invoked.
func (that *Dispatcher) On(eventType string, handler Handler) *Subscription {
	sub := &Subscription{eventType: eventType, handler: handler}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.subs[eventType] == nil {
		that.subs[eventType] = make(map[*Subscription]struct{})
	}
	that.subs[eventType][sub] = struct{}{}

	return sub
}

// Off - removes exactly the given subscription. Removing one that is not
// registered (or nil) is a no-op.
func (that *Dispatcher) Off(sub *Subscription) {
	if sub == nil {
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	set := that.subs[sub.eventType]
	delete(set, sub)
	if len(set) == 0 {
		delete(that.subs, sub.eventType)
	}
}

// HandleFrame - parses a raw frame and synchronously invokes every handler
// registered for its type. Malformed frames are logged and dropped; frames
// with no registered handler are ignored, so the server can add event types
// without breaking older clients.
func (that *Dispatcher) HandleFrame(frame []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		that.logger.Warn("dropping frame", "error", apperror.ErrMalformedFrame, "cause", err)
		return
	}

	if env.Type == "" {
		that.logger.Warn("dropping frame", "error", apperror.ErrMalformedFrame, "cause", "missing type")
		return
	}

	that.mu.Lock()
	set := that.subs[env.Type]
	handlers := make([]Handler, 0, len(set))
	for sub := range set {
		handlers = append(handlers, sub.handler)
	}
	that.mu.Unlock()

	that.dispatchMu.Lock()
	defer that.dispatchMu.Unlock()

	for _, handler := range handlers {
		handler(env.Payload)
	}
}
