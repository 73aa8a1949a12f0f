package bot

import (
	"context"
	"testing"

	tele "gopkg.in/telebot.v4"

	"guessbot/core/telegram/state"
	"guessbot/game"
	"guessbot/lexicon"
)

// fakeContext records outbound messages; everything else falls through
// to the embedded nil Context and would panic if a handler touched it.
type fakeContext struct {
	tele.Context
	user  *tele.User
	input string
	store map[string]interface{}
	sent  []string
}

func newFakeContext(userID int64, input string) *fakeContext {
	return &fakeContext{
		user:  &tele.User{ID: userID},
		input: input,
		store: make(map[string]interface{}),
	}
}

func (f *fakeContext) Sender() *tele.User { return f.user }
func (f *fakeContext) Chat() *tele.Chat   { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Update() tele.Update {
	return tele.Update{ID: 1}
}
func (f *fakeContext) Text() string { return f.input }

func (f *fakeContext) Get(key string) interface{} { return f.store[key] }
func (f *fakeContext) Set(key string, val interface{}) {
	f.store[key] = val
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

func (f *fakeContext) EditOrSend(what interface{}, _ ...interface{}) error {
	return f.Send(what)
}

func (f *fakeContext) lastSent(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no message was sent")
	}
	return f.sent[len(f.sent)-1]
}

// emptyGameStore satisfies game.Store with no active sessions.
type emptyGameStore struct{}

func (emptyGameStore) LoadSettings(context.Context, int64) (*game.Settings, error) {
	return nil, game.ErrNoSettings
}
func (emptyGameStore) CreateGame(context.Context, int64, int64, int) (int64, error) {
	return 0, nil
}
func (emptyGameStore) ActiveGame(context.Context, int64) (*game.ActiveGame, error) {
	return nil, game.ErrNoActiveGame
}
func (emptyGameStore) SaveState(context.Context, int64, game.State) error { return nil }
func (emptyGameStore) DecrementAttempts(context.Context, int64) (int, error) {
	return 0, nil
}
func (emptyGameStore) ElapsedSeconds(context.Context, int64) (int, error) { return 0, nil }
func (emptyGameStore) FinishGame(context.Context, int64, game.Result) (bool, error) {
	return false, nil
}
func (emptyGameStore) IncrementWins(context.Context, int64) error   { return nil }
func (emptyGameStore) IncrementLosses(context.Context, int64) error { return nil }

type silentNotifier struct{}

func (silentNotifier) Notify(context.Context, int64, string, map[string]any) {}

func newTestHandlers(t *testing.T) (*Handlers, state.Manager) {
	t.Helper()
	svc := game.New(emptyGameStore{}, silentNotifier{}, game.Options{})
	t.Cleanup(svc.Close)
	fsm := state.NewMemoryManager()
	return NewHandlers(svc, nil, fsm, Limits{}), fsm
}

func mustRender(t *testing.T, key string, params map[string]any) string {
	t.Helper()
	s, err := lexicon.Render(key, params)
	if err != nil {
		t.Fatalf("render %q: %v", key, err)
	}
	return s
}

func TestSetCancelClearsStateAndConfirms(t *testing.T) {
	h, fsm := newTestHandlers(t)
	fsm.SetState(7, StateAwaitRange)

	c := newFakeContext(7, "")
	if err := h.onSetCancel(c); err != nil {
		t.Fatalf("onSetCancel: %v", err)
	}
	if fsm.InProgress(7) {
		t.Fatal("cancel must clear the conversation state")
	}
	if got, want := c.lastSent(t), mustRender(t, lexicon.MsgCancelled, nil); got != want {
		t.Fatalf("sent %q, want %q", got, want)
	}
}

func TestGuessNonNumericFiltered(t *testing.T) {
	h, fsm := newTestHandlers(t)
	fsm.SetState(7, StateInGame)

	c := newFakeContext(7, "seven")
	if err := h.onGuess(c); err != nil {
		t.Fatalf("onGuess: %v", err)
	}
	if got := fsm.GetState(7); got != StateInGame {
		t.Fatalf("state = %q, want %q", got, StateInGame)
	}
	if got, want := c.lastSent(t), mustRender(t, lexicon.MsgGuessNotNumber, nil); got != want {
		t.Fatalf("sent %q, want %q", got, want)
	}
}

func TestGuessWithoutActiveSession(t *testing.T) {
	h, fsm := newTestHandlers(t)
	fsm.SetState(7, StateInGame)

	c := newFakeContext(7, "5")
	if err := h.onGuess(c); err != nil {
		t.Fatalf("onGuess: %v", err)
	}
	if fsm.InProgress(7) {
		t.Fatal("stale in-game state must be cleared")
	}
	if got, want := c.lastSent(t), mustRender(t, lexicon.MsgNoActiveGame, nil); got != want {
		t.Fatalf("sent %q, want %q", got, want)
	}
}
