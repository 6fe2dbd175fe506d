package entity

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
	StatusCancelled  = "cancelled"
)

const (
	ModeClassique  = "classique"
	ModeRapide     = "rapide"
	ModeGeneration = "generation"
	ModeParoles    = "paroles"
	ModeKaraoke    = "karaoke"
)

const (
	AnswerModeMCQ  = "mcq"
	AnswerModeText = "text"

	GuessTargetArtist = "artist"
	GuessTargetTitle  = "title"
)

// Game is a snapshot of one quiz session as last pushed by the server.
// The server stays the source of truth; a snapshot may be stale between frames.
type Game struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name,omitempty"`
	RoomCode             string    `json:"room_code"`
	Mode                 string    `json:"mode"`
	AnswerMode           string    `json:"answer_mode"`
	GuessTarget          string    `json:"guess_target"`
	Status               string    `json:"status"`
	MaxPlayers           int       `json:"max_players"`
	NumRounds            int       `json:"num_rounds"`
	RoundDuration        int       `json:"round_duration"`
	TimerStartRound      int       `json:"timer_start_round"`
	ScoreDisplayDuration int       `json:"score_display_duration"`
	LyricsWordsCount     int       `json:"lyrics_words_count,omitempty"`
	Players              []*Player `json:"players,omitempty"`
	CurrentRound         *Round    `json:"current_round,omitempty"`
}

type Round struct {
	RoundNumber  int      `json:"round_number"`
	TrackID      string   `json:"track_id,omitempty"`
	TrackName    string   `json:"track_name,omitempty"`
	ArtistName   string   `json:"artist_name,omitempty"`
	Options      []string `json:"options,omitempty"`
	PreviewURL   string   `json:"preview_url,omitempty"`
	QuestionType string   `json:"question_type,omitempty"`
	QuestionText string   `json:"question_text,omitempty"`
	Duration     int      `json:"duration"`
}

// NewGame - returns a waiting game snapshot for a room code with server defaults.
func NewGame(roomCode string) *Game {
	return &Game{
		RoomCode:             roomCode,
		Mode:                 ModeClassique,
		AnswerMode:           AnswerModeMCQ,
		GuessTarget:          GuessTargetTitle,
		Status:               StatusWaiting,
		MaxPlayers:           8,
		NumRounds:            10,
		RoundDuration:        30,
		TimerStartRound:      5,
		ScoreDisplayDuration: 10,
	}
}

// GamePatch is a partial game update. Nil fields are left untouched; a set
// field overwrites the whole field (mapping semantics, no deep merge).
type GamePatch struct {
	Name                 *string    `json:"name,omitempty"`
	Mode                 *string    `json:"mode,omitempty"`
	AnswerMode           *string    `json:"answer_mode,omitempty"`
	GuessTarget          *string    `json:"guess_target,omitempty"`
	Status               *string    `json:"status,omitempty"`
	MaxPlayers           *int       `json:"max_players,omitempty"`
	NumRounds            *int       `json:"num_rounds,omitempty"`
	RoundDuration        *int       `json:"round_duration,omitempty"`
	TimerStartRound      *int       `json:"timer_start_round,omitempty"`
	ScoreDisplayDuration *int       `json:"score_display_duration,omitempty"`
	LyricsWordsCount     *int       `json:"lyrics_words_count,omitempty"`
	Players              *[]*Player `json:"players,omitempty"`
	CurrentRound         *Round     `json:"current_round,omitempty"`
}

// ApplyPatch - overwrites the fields the patch carries, field by field.
func (that *Game) ApplyPatch(patch GamePatch) {
	if patch.Name != nil {
		that.Name = *patch.Name
	}
	if patch.Mode != nil {
		that.Mode = *patch.Mode
	}
	if patch.AnswerMode != nil {
		that.AnswerMode = *patch.AnswerMode
	}
	if patch.GuessTarget != nil {
		that.GuessTarget = *patch.GuessTarget
	}
	if patch.Status != nil {
		that.Status = *patch.Status
	}
	if patch.MaxPlayers != nil {
		that.MaxPlayers = *patch.MaxPlayers
	}
	if patch.NumRounds != nil {
		that.NumRounds = *patch.NumRounds
	}
	if patch.RoundDuration != nil {
		that.RoundDuration = *patch.RoundDuration
	}
	if patch.TimerStartRound != nil {
		that.TimerStartRound = *patch.TimerStartRound
	}
	if patch.ScoreDisplayDuration != nil {
		that.ScoreDisplayDuration = *patch.ScoreDisplayDuration
	}
	if patch.LyricsWordsCount != nil {
		that.LyricsWordsCount = *patch.LyricsWordsCount
	}
	if patch.Players != nil {
		that.Players = *patch.Players
	}
	if patch.CurrentRound != nil {
		that.CurrentRound = patch.CurrentRound
	}
}

// Clone - returns a copy with its own roster and round, safe to hand to readers.
func (that *Game) Clone() *Game {
	if that == nil {
		return nil
	}

	clone := *that

	if that.Players != nil {
		clone.Players = make([]*Player, len(that.Players))
		for i, p := range that.Players {
			cp := *p
			clone.Players[i] = &cp
		}
	}

	if that.CurrentRound != nil {
		round := *that.CurrentRound
		if round.Options != nil {
			round.Options = append([]string(nil), round.Options...)
		}
		clone.CurrentRound = &round
	}

	return &clone
}

// AddPlayer - appends a player to the roster, replacing an existing entry
// with the same username.
func (that *Game) AddPlayer(player *Player) {
	for i, p := range that.Players {
		if p.Username == player.Username {
			that.Players[i] = player
			return
		}
	}

	that.Players = append(that.Players, player)
}

// GetPlayerByUsername - returns the roster entry with the given username,
// or nil when the player is not in the room.
func (that *Game) GetPlayerByUsername(username string) *Player {
	for _, p := range that.Players {
		if p.Username == username {
			return p
		}
	}

	return nil
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}
