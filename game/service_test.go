package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func i64(v int64) *int64 { return &v }
func iptr(v int) *int    { return &v }

func fullSettings(lo, hi int64, limit, attempts int) *Settings {
	return &Settings{
		RangeStart: i64(lo),
		RangeEnd:   i64(hi),
		TimeLimit:  iptr(limit),
		Attempts:   iptr(attempts),
	}
}

type fakeGameRow struct {
	userID        int64
	target        int64
	attemptsTotal int
	attemptsLeft  int
	result        Result
}

type fakeStore struct {
	mu           sync.Mutex
	settings     *Settings
	settingsErr  error
	nextID       int64
	games        map[int64]*fakeGameRow
	activeByUser map[int64]int64
	states       map[int64]State
	stateWrites  int
	wins         map[int64]int
	losses       map[int64]int
	elapsed      int
}

func newFakeStore(settings *Settings) *fakeStore {
	return &fakeStore{
		settings:     settings,
		games:        make(map[int64]*fakeGameRow),
		activeByUser: make(map[int64]int64),
		states:       make(map[int64]State),
		wins:         make(map[int64]int),
		losses:       make(map[int64]int),
		elapsed:      17,
	}
}

func (s *fakeStore) LoadSettings(_ context.Context, _ int64) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settingsErr != nil {
		return nil, s.settingsErr
	}
	if s.settings == nil {
		return nil, ErrNoSettings
	}
	return s.settings, nil
}

func (s *fakeStore) CreateGame(_ context.Context, userID, target int64, attempts int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.games[s.nextID] = &fakeGameRow{
		userID:        userID,
		target:        target,
		attemptsTotal: attempts,
		attemptsLeft:  attempts,
	}
	s.activeByUser[userID] = s.nextID
	return s.nextID, nil
}

func (s *fakeStore) ActiveGame(_ context.Context, userID int64) (*ActiveGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.activeByUser[userID]
	if !ok {
		return nil, ErrNoActiveGame
	}
	g := s.games[id]
	if g == nil || g.result != "" {
		return nil, ErrNoActiveGame
	}
	return &ActiveGame{ID: id, Target: g.target, AttemptsTotal: g.attemptsTotal}, nil
}

func (s *fakeStore) SaveState(_ context.Context, userID int64, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = st
	s.stateWrites++
	return nil
}

func (s *fakeStore) DecrementAttempts(_ context.Context, gameID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.games[gameID]
	g.attemptsLeft--
	return g.attemptsLeft, nil
}

func (s *fakeStore) ElapsedSeconds(_ context.Context, _ int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed, nil
}

func (s *fakeStore) FinishGame(_ context.Context, gameID int64, result Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.games[gameID]
	if g == nil || g.result != "" {
		return false, nil
	}
	g.result = result
	return true, nil
}

func (s *fakeStore) IncrementWins(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wins[userID]++
	return nil
}

func (s *fakeStore) IncrementLosses(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.losses[userID]++
	return nil
}

func (s *fakeStore) game(id int64) fakeGameRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.games[id]
}

type notification struct {
	userID int64
	key    string
	params map[string]any
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, key string, params map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{userID: userID, key: key, params: params})
}

func (n *fakeNotifier) keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.calls))
	for i, c := range n.calls {
		out[i] = c.key
	}
	return out
}

func (n *fakeNotifier) last() notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return notification{}
	}
	return n.calls[len(n.calls)-1]
}

func (n *fakeNotifier) count(key string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, call := range n.calls {
		if call.key == key {
			c++
		}
	}
	return c
}

// manualTimer hands out one channel per monitor so tests fire timeouts
// deterministically. Sends rendezvous with the monitor goroutine.
type manualTimer struct {
	mu    sync.Mutex
	fires []chan time.Time
}

func (m *manualTimer) after(_ time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time)
	m.fires = append(m.fires, ch)
	return ch
}

func (m *manualTimer) fire(t *testing.T, idx int) {
	t.Helper()
	m.mu.Lock()
	if idx >= len(m.fires) {
		m.mu.Unlock()
		t.Fatalf("no monitor %d armed", idx)
	}
	ch := m.fires[idx]
	m.mu.Unlock()
	select {
	case ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout monitor did not consume fire")
	}
}

func newTestService(store *fakeStore, target int64) (*Service, *fakeNotifier, *manualTimer) {
	notifier := &fakeNotifier{}
	timer := &manualTimer{}
	svc := New(store, notifier, Options{
		Draw:  func(lo, hi int64) int64 { return target },
		After: timer.after,
	})
	return svc, notifier, timer
}

func TestStartTargetWithinRange(t *testing.T) {
	const userID = int64(1)
	for i := 0; i < 200; i++ {
		store := newFakeStore(fullSettings(5, 9, 60, 3))
		svc := New(store, &fakeNotifier{}, Options{
			After: (&manualTimer{}).after,
		})
		if _, err := svc.Start(context.Background(), userID); err != nil {
			t.Fatalf("start: %v", err)
		}
		g := store.game(1)
		if g.target < 5 || g.target > 9 {
			t.Fatalf("target %d outside [5, 9]", g.target)
		}
		svc.Close()
	}
}

func TestStartReturnsAttemptBudget(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 60, 3))
	svc, _, _ := newTestService(store, 7)
	defer svc.Close()

	attempts, err := svc.Start(context.Background(), 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if store.states[1] != StateActive {
		t.Fatalf("state = %s, want %s", store.states[1], StateActive)
	}
}

func TestStartWithoutSettings(t *testing.T) {
	store := newFakeStore(nil)
	svc, _, _ := newTestService(store, 0)
	defer svc.Close()

	if _, err := svc.Start(context.Background(), 1); !errors.Is(err, ErrNoSettings) {
		t.Fatalf("err = %v, want ErrNoSettings", err)
	}
	if len(store.games) != 0 || store.stateWrites != 0 {
		t.Fatal("missing settings must not mutate session state")
	}
}

func TestStartIncompleteSettingsNeverActivates(t *testing.T) {
	settings := fullSettings(1, 10, 60, 3)
	settings.Attempts = nil
	settings.TimeLimit = nil
	store := newFakeStore(settings)
	svc, _, _ := newTestService(store, 0)
	defer svc.Close()

	_, err := svc.Start(context.Background(), 1)
	var incomplete *IncompleteSettingsError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompleteSettingsError", err)
	}
	want := []string{FieldTime, FieldAttempts}
	if len(incomplete.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v", incomplete.Missing, want)
	}
	for i := range want {
		if incomplete.Missing[i] != want[i] {
			t.Fatalf("missing = %v, want %v", incomplete.Missing, want)
		}
	}
	if len(store.games) != 0 || store.stateWrites != 0 {
		t.Fatal("incomplete settings must not mutate session state")
	}
}

func TestStartWhileActiveRefused(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 60, 3))
	svc, _, _ := newTestService(store, 7)
	defer svc.Close()

	if _, err := svc.Start(context.Background(), 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Start(context.Background(), 1); !errors.Is(err, ErrGameInProgress) {
		t.Fatalf("err = %v, want ErrGameInProgress", err)
	}
	if len(store.games) != 1 {
		t.Fatalf("games = %d, want 1", len(store.games))
	}
}

func TestEvaluateHintsThenWin(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 60, 4))
	svc, notifier, _ := newTestService(store, 7)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, guess := range []int64{3, 9, 7} {
		if err := svc.Evaluate(ctx, 1, guess); err != nil {
			t.Fatalf("evaluate %d: %v", guess, err)
		}
	}

	keys := notifier.keys()
	want := []string{MsgNumberHigher, MsgNumberLower, MsgGameWon}
	if len(keys) != len(want) {
		t.Fatalf("notifications = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", keys, want)
		}
	}

	last := notifier.last()
	if last.params["attempts"] != 3 {
		t.Fatalf("attempts consumed = %v, want 3", last.params["attempts"])
	}
	if last.params["seconds_passed"] != 17 {
		t.Fatalf("seconds_passed = %v, want 17", last.params["seconds_passed"])
	}
	if g := store.game(1); g.result != ResultWon {
		t.Fatalf("result = %s, want %s", g.result, ResultWon)
	}
	if store.wins[1] != 1 || store.losses[1] != 0 {
		t.Fatalf("counters = %d/%d, want 1/0", store.wins[1], store.losses[1])
	}
	if store.states[1] != StateEnded {
		t.Fatalf("state = %s, want %s", store.states[1], StateEnded)
	}
}

func TestEvaluateAttemptsDecreaseByOne(t *testing.T) {
	store := newFakeStore(fullSettings(1, 100, 60, 5))
	svc, notifier, _ := newTestService(store, 50)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	for n, guess := range []int64{1, 2, 3} {
		if err := svc.Evaluate(ctx, 1, guess); err != nil {
			t.Fatalf("evaluate %d: %v", guess, err)
		}
		wantLeft := 5 - (n + 1)
		if got := notifier.last().params["attempts_left"]; got != wantLeft {
			t.Fatalf("attempts_left after guess %d = %v, want %d", n+1, got, wantLeft)
		}
	}
}

// Exhausting the budget ends the game before the guess is compared,
// so a correct final guess still loses.
func TestEvaluateExhaustionSkipsComparison(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 60, 2))
	svc, notifier, _ := newTestService(store, 5)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Evaluate(ctx, 1, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// Second guess is the target, but it consumes the last attempt.
	if err := svc.Evaluate(ctx, 1, 5); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if g := store.game(1); g.result != ResultLost {
		t.Fatalf("result = %s, want %s", g.result, ResultLost)
	}
	if notifier.count(MsgGameWon) != 0 {
		t.Fatal("correct guess on the last attempt must not win")
	}
	if notifier.count(MsgGameLostAttempts) != 1 {
		t.Fatalf("lost notifications = %d, want 1", notifier.count(MsgGameLostAttempts))
	}
	if store.losses[1] != 1 {
		t.Fatalf("losses = %d, want 1", store.losses[1])
	}
}

func TestEvaluateWithoutActiveGame(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 60, 3))
	svc, _, _ := newTestService(store, 7)
	defer svc.Close()

	ctx := context.Background()
	if err := svc.Evaluate(ctx, 1, 4); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("err = %v, want ErrNoActiveGame", err)
	}

	if _, err := svc.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Evaluate(ctx, 1, 7); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// The session ended; further guesses are rejected.
	if err := svc.Evaluate(ctx, 1, 7); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("err = %v, want ErrNoActiveGame", err)
	}
	if g := store.game(1); g.attemptsLeft != 2 {
		t.Fatalf("attempts_left = %d, guesses must stop after the end", g.attemptsLeft)
	}
}

func TestTimeoutFinalizesLost(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 45, 3))
	svc, notifier, timer := newTestService(store, 7)

	if _, err := svc.Start(context.Background(), 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	timer.fire(t, 0)
	svc.Close()

	if g := store.game(1); g.result != ResultLost {
		t.Fatalf("result = %s, want %s", g.result, ResultLost)
	}
	if store.losses[1] != 1 {
		t.Fatalf("losses = %d, want 1", store.losses[1])
	}
	last := notifier.last()
	if last.key != MsgGameLostTime {
		t.Fatalf("notification = %s, want %s", last.key, MsgGameLostTime)
	}
	if last.params["time_limit"] != 45 {
		t.Fatalf("time_limit param = %v, want 45", last.params["time_limit"])
	}
	if store.states[1] != StateEnded {
		t.Fatalf("state = %s, want %s", store.states[1], StateEnded)
	}
}

// A timer firing after the session already ended must not write a
// second outcome, bump a counter, or notify again.
func TestTimeoutAfterWinIsNoOp(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 60, 3))
	svc, notifier, timer := newTestService(store, 7)

	ctx := context.Background()
	if _, err := svc.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Evaluate(ctx, 1, 7); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	timer.fire(t, 0)
	svc.Close()

	if g := store.game(1); g.result != ResultWon {
		t.Fatalf("result = %s, want %s", g.result, ResultWon)
	}
	if store.losses[1] != 0 {
		t.Fatalf("losses = %d, want 0", store.losses[1])
	}
	if notifier.count(MsgGameLostTime) != 0 {
		t.Fatal("stale timeout must not notify")
	}
	if notifier.count(MsgGameWon) != 1 {
		t.Fatalf("win notifications = %d, want 1", notifier.count(MsgGameWon))
	}
}

// A monitor armed for a finished game cannot finalize a newer session
// of the same user: it is bound to the game id it started with.
func TestStaleMonitorCannotEndNewSession(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 60, 3))
	svc, notifier, timer := newTestService(store, 7)

	ctx := context.Background()
	if _, err := svc.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Evaluate(ctx, 1, 7); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, err := svc.Start(ctx, 1); err != nil {
		t.Fatalf("restart: %v", err)
	}

	// First session's timer fires late.
	timer.fire(t, 0)
	svc.Close()

	if g := store.game(2); g.result != "" {
		t.Fatalf("new session result = %s, want still active", g.result)
	}
	if notifier.count(MsgGameLostTime) != 0 {
		t.Fatal("stale monitor must not notify the new session")
	}
}

// The timer fire and a winning guess race for the terminal transition;
// whichever loses must observe the ended session and back off completely.
func TestTimerRacesWinningGuess(t *testing.T) {
	for i := 0; i < 100; i++ {
		store := newFakeStore(fullSettings(1, 10, 60, 3))
		svc, notifier, timer := newTestService(store, 7)

		ctx := context.Background()
		if _, err := svc.Start(ctx, 1); err != nil {
			t.Fatalf("start: %v", err)
		}

		done := make(chan error, 1)
		go func() {
			done <- svc.Evaluate(ctx, 1, 7)
		}()
		timer.fire(t, 0)
		if err := <-done; err != nil && !errors.Is(err, ErrNoActiveGame) {
			t.Fatalf("evaluate: %v", err)
		}
		svc.Close()

		g := store.game(1)
		if g.result == "" {
			t.Fatal("session must end with an outcome")
		}
		if total := store.wins[1] + store.losses[1]; total != 1 {
			t.Fatalf("counters = %d wins / %d losses, want exactly one", store.wins[1], store.losses[1])
		}
		terminal := notifier.count(MsgGameWon) + notifier.count(MsgGameLostTime)
		if terminal != 1 {
			t.Fatalf("terminal notifications = %d, want exactly 1", terminal)
		}
		if g.result == ResultWon && (store.wins[1] != 1 || notifier.count(MsgGameWon) != 1) {
			t.Fatalf("won outcome with wins=%d, win notifications=%d", store.wins[1], notifier.count(MsgGameWon))
		}
		if g.result == ResultLost && (store.losses[1] != 1 || notifier.count(MsgGameLostTime) != 1) {
			t.Fatalf("lost outcome with losses=%d, timeout notifications=%d", store.losses[1], notifier.count(MsgGameLostTime))
		}
	}
}

func TestResignEndsGameOnce(t *testing.T) {
	store := newFakeStore(fullSettings(1, 10, 60, 3))
	svc, notifier, _ := newTestService(store, 7)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Start(ctx, 1); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Resign(ctx, 1); err != nil {
		t.Fatalf("resign: %v", err)
	}
	if err := svc.Resign(ctx, 1); !errors.Is(err, ErrNoActiveGame) {
		t.Fatalf("err = %v, want ErrNoActiveGame", err)
	}
	if g := store.game(1); g.result != ResultLost {
		t.Fatalf("result = %s, want %s", g.result, ResultLost)
	}
	if notifier.count(MsgGameGivenUp) != 1 {
		t.Fatalf("give-up notifications = %d, want 1", notifier.count(MsgGameGivenUp))
	}
	if store.losses[1] != 1 {
		t.Fatalf("losses = %d, want 1", store.losses[1])
	}
}
