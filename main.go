package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	app "github.com/instantmusic/realtime/internal"
	"github.com/instantmusic/realtime/internal/config"
)

const usage = `usage:
  realtime serve             run the room relay server
  realtime play <room-code>  join a room from the terminal`

// main - is the entry point of the application. It initializes the configuration, logger, and runs the selected mode.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	conf := initConfig()
	logger := initLogger(conf)

	mode := "serve"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	var err error

	switch mode {
	case "serve":
		err = app.RunServer(logger, conf)
	case "play":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		err = app.RunPlayer(logger, conf, os.Args[2])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// initialize config.
func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

// initialize logger.
func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
