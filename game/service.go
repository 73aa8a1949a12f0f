package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"guessbot/core/logger"
	"log/slog"
)

// Options tunes Service internals; zero values select production defaults.
type Options struct {
	// Draw picks a target uniformly from [lo, hi] inclusive.
	Draw func(lo, hi int64) int64
	// After schedules the timeout fire; tests substitute a manual channel.
	After func(d time.Duration) <-chan time.Time
}

// Service owns session lifecycle, guess evaluation, and timeout
// monitors. All operations for one user are serialized through a
// per-user lock so the timer fire and the next guess can never both
// finalize the same session.
type Service struct {
	store    Store
	notifier Notifier
	draw     func(lo, hi int64) int64
	after    func(d time.Duration) <-chan time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New constructs a Service with sane defaults for zeroed options.
func New(store Store, notifier Notifier, opts Options) *Service {
	if opts.Draw == nil {
		opts.Draw = func(lo, hi int64) int64 {
			return lo + rand.Int64N(hi-lo+1)
		}
	}
	if opts.After == nil {
		opts.After = func(d time.Duration) <-chan time.Time {
			return time.After(d)
		}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		draw:     opts.Draw,
		after:    opts.After,
		locks:    make(map[int64]*sync.Mutex),
		done:     make(chan struct{}),
	}
}

// Close stops pending timeout monitors and waits for them to return.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Start validates the user's settings, activates a new session with a
// freshly drawn target, arms the timeout monitor, and returns the
// attempt budget for the initial prompt.
//
// It fails with ErrNoSettings when no configuration exists,
// *IncompleteSettingsError when required fields are unset, and
// ErrGameInProgress while a previous session is still active; none of
// these paths mutates session state.
func (s *Service) Start(ctx context.Context, userID int64) (int, error) {
	settings, err := s.store.LoadSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSettings) {
			return 0, ErrNoSettings
		}
		return 0, fmt.Errorf("load settings: %w", err)
	}
	if missing := MissingSettings(settings); len(missing) > 0 {
		return 0, &IncompleteSettingsError{Missing: missing}
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.store.ActiveGame(ctx, userID); err == nil {
		return 0, ErrGameInProgress
	} else if !errors.Is(err, ErrNoActiveGame) {
		return 0, fmt.Errorf("check active game: %w", err)
	}

	if err := s.store.SaveState(ctx, userID, StateActive); err != nil {
		return 0, fmt.Errorf("activate session: %w", err)
	}

	target := s.draw(*settings.RangeStart, *settings.RangeEnd)
	gameID, err := s.store.CreateGame(ctx, userID, target, *settings.Attempts)
	if err != nil {
		if revertErr := s.store.SaveState(ctx, userID, StateNotStarted); revertErr != nil {
			logger.Warn(ctx, "game", "session.revert_failed",
				slog.String("status", "fail"),
				slog.Int64("user_id", userID),
				slog.String("err", revertErr.Error()),
			)
		}
		return 0, fmt.Errorf("create game: %w", err)
	}

	limit := *settings.TimeLimit
	s.watchTimeout(userID, gameID, limit)

	logger.Info(ctx, "game", "session.started",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Int64("game_id", gameID),
		slog.Int64("range_start", *settings.RangeStart),
		slog.Int64("range_end", *settings.RangeEnd),
		slog.Int("time_limit", limit),
		slog.Int("attempts_left", *settings.Attempts),
	)
	return *settings.Attempts, nil
}

// watchTimeout arms a one-shot monitor bound to the game id it was
// started for; a user restarting quickly can never be finalized by a
// stale monitor because the outcome write is keyed by that id.
func (s *Service) watchTimeout(userID, gameID int64, limitSec int) {
	// Armed before the goroutine starts so the countdown begins at
	// activation, not at first scheduling of the monitor.
	fire := s.after(time.Duration(limitSec) * time.Second)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.done:
			return
		case <-fire:
		}

		ctx := context.Background()
		lock := s.userLock(userID)
		lock.Lock()
		defer lock.Unlock()

		finalized, err := s.finalize(ctx, userID, gameID, ResultLost)
		if err != nil {
			logger.Error(ctx, "game", "session.timeout",
				slog.String("status", "fail"),
				slog.Int64("user_id", userID),
				slog.Int64("game_id", gameID),
				slog.String("err", err.Error()),
			)
			return
		}
		if !finalized {
			// Session ended before the timer fired.
			return
		}
		logger.Info(ctx, "game", "session.timeout",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
			slog.Int64("game_id", gameID),
			slog.String("result", string(ResultLost)),
			slog.Int("time_limit", limitSec),
		)
		s.notifier.Notify(ctx, userID, MsgGameLostTime, map[string]any{
			"time_limit": limitSec,
		})
	}()
}

// Evaluate consumes one guess for the user's active session. The
// attempt budget is decremented first; exhausting it ends the game as
// a loss before the guess is compared to the target.
func (s *Service) Evaluate(ctx context.Context, userID, guess int64) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.store.ActiveGame(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveGame) {
			return ErrNoActiveGame
		}
		return fmt.Errorf("load active game: %w", err)
	}

	left, err := s.store.DecrementAttempts(ctx, active.ID)
	if err != nil {
		return fmt.Errorf("decrement attempts: %w", err)
	}

	if left <= 0 {
		finalized, err := s.finalize(ctx, userID, active.ID, ResultLost)
		if err != nil {
			return err
		}
		if finalized {
			logger.Info(ctx, "game", "session.finished",
				slog.String("status", "ok"),
				slog.Int64("user_id", userID),
				slog.Int64("game_id", active.ID),
				slog.String("result", string(ResultLost)),
				slog.String("cause", "attempts_exhausted"),
			)
			s.notifier.Notify(ctx, userID, MsgGameLostAttempts, nil)
		}
		return nil
	}

	switch {
	case guess < active.Target:
		s.notifier.Notify(ctx, userID, MsgNumberHigher, map[string]any{
			"attempts_left": left,
		})
	case guess > active.Target:
		s.notifier.Notify(ctx, userID, MsgNumberLower, map[string]any{
			"attempts_left": left,
		})
	default:
		finalized, err := s.finalize(ctx, userID, active.ID, ResultWon)
		if err != nil {
			return err
		}
		if !finalized {
			return nil
		}
		seconds, err := s.store.ElapsedSeconds(ctx, active.ID)
		if err != nil {
			logger.Warn(ctx, "game", "session.elapsed",
				slog.String("status", "fail"),
				slog.Int64("game_id", active.ID),
				slog.String("err", err.Error()),
			)
		}
		logger.Info(ctx, "game", "session.finished",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
			slog.Int64("game_id", active.ID),
			slog.String("result", string(ResultWon)),
			slog.Int("attempts_left", left),
		)
		s.notifier.Notify(ctx, userID, MsgGameWon, map[string]any{
			"attempts":       active.AttemptsTotal - left,
			"seconds_passed": seconds,
		})
	}
	return nil
}

// Resign ends the user's active session as a loss on their request.
func (s *Service) Resign(ctx context.Context, userID int64) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.store.ActiveGame(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveGame) {
			return ErrNoActiveGame
		}
		return fmt.Errorf("load active game: %w", err)
	}

	finalized, err := s.finalize(ctx, userID, active.ID, ResultLost)
	if err != nil {
		return err
	}
	if finalized {
		logger.Info(ctx, "game", "session.finished",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
			slog.Int64("game_id", active.ID),
			slog.String("result", string(ResultLost)),
			slog.String("cause", "resigned"),
		)
		s.notifier.Notify(ctx, userID, MsgGameGivenUp, nil)
	}
	return nil
}

// finalize performs the exclusive terminal transition. The outcome
// write is a compare-and-set on the game row; losing it means another
// trigger already ended the session and every following step is
// skipped. The outcome always lands before the counter increment, so a
// counter failure can lose a statistic but never the history entry.
func (s *Service) finalize(ctx context.Context, userID, gameID int64, result Result) (bool, error) {
	won, err := s.store.FinishGame(ctx, gameID, result)
	if err != nil {
		return false, fmt.Errorf("finish game: %w", err)
	}
	if !won {
		return false, nil
	}

	if err := s.store.SaveState(ctx, userID, StateEnded); err != nil {
		logger.Warn(ctx, "game", "session.state",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.Int64("game_id", gameID),
			slog.String("err", err.Error()),
		)
	}

	inc := s.store.IncrementLosses
	if result == ResultWon {
		inc = s.store.IncrementWins
	}
	if err := inc(ctx, userID); err != nil {
		logger.Warn(ctx, "game", "session.counter",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.Int64("game_id", gameID),
			slog.String("result", string(result)),
			slog.String("err", err.Error()),
		)
	}
	return true, nil
}
