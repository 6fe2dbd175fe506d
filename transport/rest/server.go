package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/instantmusic/realtime/internal/repository"
	"github.com/instantmusic/realtime/pkg/handlers"
)

// Server exposes the room management API: creating rooms and fetching
// their snapshots. Live gameplay traffic goes over the websocket relay.
type Server struct {
	logger *slog.Logger
	rooms  repository.RoomRepository
}

func New(logger *slog.Logger, rooms repository.RoomRepository) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		rooms:  rooms,
	}
}

// Handler - builds the HTTP routes of the room API.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", handlers.PingHandler)
	mux.HandleFunc("POST /rooms", that.handleCreateRoom)
	mux.HandleFunc("GET /rooms/{code}", that.handleGetRoom)
	mux.HandleFunc("DELETE /rooms/{code}", that.handleDeleteRoom)

	return mux
}

// Start - runs the HTTP server until the context ends.
func (that *Server) Start(ctx context.Context, port string) error {
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = httpServer.Shutdown(shutdownCtx)
	}()

	that.logger.Info("starting rest server", "port", port)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("rest server failed: %w", err)
	}

	return nil
}
