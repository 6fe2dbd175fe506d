package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/instantmusic/realtime/internal/client"
	"github.com/instantmusic/realtime/internal/config"
	"github.com/instantmusic/realtime/internal/player"
	"github.com/instantmusic/realtime/internal/prefs"
	"github.com/instantmusic/realtime/internal/repository"
	"github.com/instantmusic/realtime/internal/repository/storage"
	"github.com/instantmusic/realtime/transport/rest"
	"github.com/instantmusic/realtime/transport/websocket"
)

// RunServer - runs the room relay: the REST room API plus the websocket
// fan-out server, until a termination signal arrives.
func RunServer(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signalContext(log)
	defer cancel()

	rooms, layer, closeStorage, err := buildBackend(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer closeStorage()

	restServer := rest.New(logger, rooms)
	wsServer := websocket.New(logger, rooms, layer)

	httpErrCh := make(chan error, 1)
	go func() {
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			httpErrCh <- httpErr
		}
	}()

	wsErrCh := make(chan error, 1)
	go func() {
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// RunPlayer - runs the terminal player against a running relay.
func RunPlayer(logger *slog.Logger, conf *config.Config, roomCode string) error {
	log := logger.With("component", "app")

	ctx, cancel := signalContext(log)
	defer cancel()

	username := conf.Client.Username
	if username == "" {
		username = "player-" + uuid.New().String()[:8]
	}

	prefsStore, err := buildPrefs(logger, conf)
	if err != nil {
		log.Warn("preferences unavailable, continuing without them", "error", err)
	}

	session := client.NewSession(logger, conf.Client.ServerURL, conf.Client.ConnectTimeout)
	defer session.Close()

	p := player.New(logger, session, prefsStore, username, os.Stdin, os.Stdout)

	return p.Run(ctx, roomCode)
}

// buildBackend - picks the room repository and fan-out layer for the
// configured relay mode. Redis is only dialed when the redis layer is on.
func buildBackend(ctx context.Context, logger *slog.Logger, conf *config.Config) (repository.RoomRepository, websocket.Layer, func(), error) {
	if conf.Relay.Layer != config.LayerRedis {
		return repository.NewMemoryRoomRepository(), websocket.NewLocalLayer(), func() {}, nil
	}

	redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	closeStorage := func() {
		if closeErr := redisStorage.Close(); closeErr != nil {
			logger.Error("could not close redis storage", "error", closeErr)
		}
	}

	rooms := repository.NewRoomRepository(redisStorage.Connection)
	layer := websocket.NewRedisLayer(logger, redisStorage.Connection)

	return rooms, layer, closeStorage, nil
}

func buildPrefs(logger *slog.Logger, conf *config.Config) (*prefs.Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	fileStorage, err := prefs.NewFileStorage(filepath.Join(home, conf.Client.PrefsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences storage: %w", err)
	}

	return prefs.New(logger, fileStorage), nil
}

func signalContext(log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	return ctx, cancel
}
