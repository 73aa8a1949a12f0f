package storage

import (
	"context"
	"fmt"

	"guessbot/game"
)

// EnsureUser creates the user row on first contact; repeated calls are no-ops.
func (s *Store) EnsureUser(ctx context.Context, userID int64) error {
	const q = `
		INSERT INTO users (user_id, state)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, q, userID, game.StateNotStarted); err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

// SaveState persists the user's session state transition.
func (s *Store) SaveState(ctx context.Context, userID int64, st game.State) error {
	const q = `UPDATE users SET state = $2 WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, q, userID, st); err != nil {
		return fmt.Errorf("save state for user %d: %w", userID, err)
	}
	return nil
}

// IncrementWins bumps the user's lifetime win counter.
func (s *Store) IncrementWins(ctx context.Context, userID int64) error {
	const q = `UPDATE users SET games_won = games_won + 1 WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("increment wins for user %d: %w", userID, err)
	}
	return nil
}

// IncrementLosses bumps the user's lifetime loss counter.
func (s *Store) IncrementLosses(ctx context.Context, userID int64) error {
	const q = `UPDATE users SET games_lost = games_lost + 1 WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("increment losses for user %d: %w", userID, err)
	}
	return nil
}
