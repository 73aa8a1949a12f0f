// Package game implements the per-user guess-the-number session:
// lifecycle transitions, guess evaluation, and the timeout race.
// Transport and persistence stay behind the Store and Notifier contracts.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// State is the persisted session state of a user.
type State string

const (
	// StateNotStarted indicates no session exists for the user.
	StateNotStarted State = "not_started"
	// StateActive indicates a running game with a drawn target.
	StateActive State = "active"
	// StateEnded indicates the last session finished and its outcome is recorded.
	StateEnded State = "ended"
)

// Result is the recorded outcome of a finished session.
type Result string

const (
	// ResultWon marks a session finished by a correct guess.
	ResultWon Result = "won"
	// ResultLost marks a session finished by timeout, exhausted attempts, or giving up.
	ResultLost Result = "lost"
)

// Settings holds the per-user game configuration. Unset fields are nil
// until the user goes through the settings flow.
type Settings struct {
	RangeStart *int64
	RangeEnd   *int64
	TimeLimit  *int // seconds
	Attempts   *int
}

// ActiveGame is the running session row as read back from storage.
type ActiveGame struct {
	ID            int64
	Target        int64
	AttemptsTotal int
}

var (
	// ErrNoSettings means the user has no stored configuration at all.
	ErrNoSettings = errors.New("game: settings not found")
	// ErrGameInProgress means a new session was requested while one is active.
	ErrGameInProgress = errors.New("game: session already in progress")
	// ErrNoActiveGame means a guess arrived without an active session.
	ErrNoActiveGame = errors.New("game: no active session")
)

// IncompleteSettingsError reports which required settings are unset.
type IncompleteSettingsError struct {
	Missing []string
}

func (e *IncompleteSettingsError) Error() string {
	return fmt.Sprintf("game: settings incomplete: %s", strings.Join(e.Missing, ", "))
}

// Message keys passed to the Notifier; the template layer owns the texts.
const (
	MsgPlayPrompt       = "play_prompt"
	MsgNumberHigher     = "my_number_is_higher"
	MsgNumberLower      = "my_number_is_lower"
	MsgGameWon          = "game_won"
	MsgGameLostAttempts = "game_lost_attempts"
	MsgGameLostTime     = "game_lost_time"
	MsgGameGivenUp      = "game_given_up"
)

// Store is the persistence contract the session core depends on.
type Store interface {
	// LoadSettings returns the user's configuration or ErrNoSettings
	// when no record exists at all.
	LoadSettings(ctx context.Context, userID int64) (*Settings, error)
	// CreateGame inserts a new session row with the drawn target and the
	// full attempt budget, returning the game id.
	CreateGame(ctx context.Context, userID, target int64, attempts int) (int64, error)
	// ActiveGame returns the user's unfinished session or ErrNoActiveGame.
	ActiveGame(ctx context.Context, userID int64) (*ActiveGame, error)
	// SaveState persists the user's session state transition.
	SaveState(ctx context.Context, userID int64, st State) error
	// DecrementAttempts subtracts one attempt and returns the remaining count.
	DecrementAttempts(ctx context.Context, gameID int64) (int, error)
	// ElapsedSeconds reports whole seconds since the game started.
	ElapsedSeconds(ctx context.Context, gameID int64) (int, error)
	// FinishGame records the outcome iff the game has none yet and
	// reports whether this call won the terminal transition.
	FinishGame(ctx context.Context, gameID int64, result Result) (bool, error)
	IncrementWins(ctx context.Context, userID int64) error
	IncrementLosses(ctx context.Context, userID int64) error
}

// Notifier delivers a templated message to the user. Delivery is
// fire-and-forget: implementations log failures and never block the
// session logic on transport errors.
type Notifier interface {
	Notify(ctx context.Context, userID int64, key string, params map[string]any)
}
