package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/instantmusic/realtime/internal/apperror"
	"github.com/instantmusic/realtime/internal/client"
	"github.com/instantmusic/realtime/internal/entity"
	"github.com/instantmusic/realtime/internal/prefs"
	"github.com/instantmusic/realtime/pkg/protocol"
)

const (
	connectPollInterval = 100 * time.Millisecond
	defaultJoinWait     = 15 * time.Second
)

// Player is the terminal front of a quiz session: it joins a room, prints
// what happens there and submits whatever the user types as answers.
type Player struct {
	logger  *slog.Logger
	session *client.Session
	store   *client.GameStore
	prefs   *prefs.Store

	username string
	joinWait time.Duration
	in       io.Reader
	out      io.Writer
}

func New(logger *slog.Logger, session *client.Session, prefsStore *prefs.Store, username string, in io.Reader, out io.Writer) *Player {
	return &Player{
		logger:   logger.With("component", "player"),
		session:  session,
		store:    client.NewGameStore(),
		prefs:    prefsStore,
		username: username,
		joinWait: defaultJoinWait,
		in:       in,
		out:      out,
	}
}

// Run - joins the room and relays terminal input as answers until the
// context ends or the input stream closes.
func (that *Player) Run(ctx context.Context, roomCode string) error {
	unbind := client.BindGame(that.session, that.store)
	defer unbind()

	detach := that.watchRoom()
	defer detach()

	that.greet(roomCode)

	that.session.SetRoom(roomCode)

	if err := that.waitConnected(ctx); err != nil {
		return err
	}

	that.session.Send(protocol.EventPlayerJoin, protocol.PlayerPayload{
		Player: &entity.Player{Username: that.username},
	})

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(that.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			answer := strings.TrimSpace(line)
			if answer == "" {
				continue
			}
			if answer == "/quit" {
				return nil
			}

			that.session.Send(protocol.EventPlayerAnswer, protocol.AnswerPayload{
				Player: &entity.Player{Username: that.username},
				Answer: answer,
			})
		}
	}
}

// greet - prints the one-time how-to-play tip unless it was dismissed before.
func (that *Player) greet(roomCode string) {
	fmt.Fprintf(that.out, "joining room %s as %s\n", roomCode, that.username)

	if that.prefs == nil || that.prefs.Options("welcome-tip").Dismissed {
		return
	}

	fmt.Fprintln(that.out, "tip: type your answer and press enter, /quit to leave")

	if err := that.prefs.Dismiss("welcome-tip"); err != nil {
		that.logger.Debug("failed to persist welcome tip dismissal", "error", err)
	}
}

// waitConnected - waits for the room channel to open, giving up after
// joinWait so an unreachable relay surfaces as an error instead of a hang.
func (that *Player) waitConnected(ctx context.Context) error {
	ticker := time.NewTicker(connectPollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(that.joinWait)
	defer deadline.Stop()

	for {
		if that.session.Connected() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: room did not open within %s", apperror.ErrConnectionFailed, that.joinWait)
		case <-ticker.C:
		}
	}
}

// watchRoom - prints server events as they arrive; returns a detach func.
func (that *Player) watchRoom() func() {
	cleanups := []func(){
		that.session.OnMessage(protocol.EventConnectionEstablished, func(payload json.RawMessage) {
			var info protocol.InfoPayload
			if err := protocol.DecodePayload(payload, &info); err == nil && info.Message != "" {
				fmt.Fprintln(that.out, info.Message)
			}
		}),

		that.session.OnMessage(protocol.EventPlayerJoined, func(payload json.RawMessage) {
			var joined protocol.PlayerPayload
			if err := protocol.DecodePayload(payload, &joined); err != nil || joined.Player == nil {
				return
			}
			fmt.Fprintf(that.out, "%s joined the room\n", joined.Player.Username)
		}),

		that.session.OnMessage(protocol.EventPlayerAnswered, func(payload json.RawMessage) {
			var answered protocol.AnswerPayload
			if err := protocol.DecodePayload(payload, &answered); err != nil || answered.Player == nil {
				return
			}
			fmt.Fprintf(that.out, "%s answered: %s\n", answered.Player.Username, answered.Answer)
		}),

		that.session.OnMessage(protocol.EventGameStarted, func(_ json.RawMessage) {
			fmt.Fprintln(that.out, "the game has started")
		}),

		that.session.OnMessage(protocol.EventRoundStarted, func(payload json.RawMessage) {
			var round protocol.RoundPayload
			if err := protocol.DecodePayload(payload, &round); err != nil || round.RoundData == nil {
				return
			}
			fmt.Fprintf(that.out, "round %d started\n", round.RoundData.RoundNumber)
			for i, option := range round.RoundData.Options {
				fmt.Fprintf(that.out, "  %d. %s\n", i+1, option)
			}
		}),

		that.session.OnMessage(protocol.EventGameFinished, func(_ json.RawMessage) {
			that.printScores()
			fmt.Fprintln(that.out, "the game is over")
		}),

		that.session.OnMessage(protocol.EventError, func(payload json.RawMessage) {
			var info protocol.InfoPayload
			if err := protocol.DecodePayload(payload, &info); err == nil {
				fmt.Fprintf(that.out, "server error: %s\n", info.Message)
			}
		}),
	}

	return func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}
}

func (that *Player) printScores() {
	game := that.store.CurrentGame()
	if game == nil {
		return
	}

	for _, p := range game.Players {
		fmt.Fprintf(that.out, "%s: %d points\n", p.Username, p.Score)
	}
}
