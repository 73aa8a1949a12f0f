package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"guessbot/game"
)

type settingsRow struct {
	RangeStart *int64 `db:"range_start"`
	RangeEnd   *int64 `db:"range_end"`
	TimeLimit  *int   `db:"time_limit"`
	Attempts   *int   `db:"attempts"`
}

// LoadSettings returns the user's stored configuration. The absence of
// the whole record maps to game.ErrNoSettings; partially filled rows
// come back with nil fields for the validator to report.
func (s *Store) LoadSettings(ctx context.Context, userID int64) (*game.Settings, error) {
	const q = `
		SELECT range_start, range_end, time_limit, attempts
		FROM user_settings
		WHERE user_id = $1`
	var row settingsRow
	if err := s.db.GetContext(ctx, &row, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrNoSettings
		}
		return nil, fmt.Errorf("load settings for user %d: %w", userID, err)
	}
	return &game.Settings{
		RangeStart: row.RangeStart,
		RangeEnd:   row.RangeEnd,
		TimeLimit:  row.TimeLimit,
		Attempts:   row.Attempts,
	}, nil
}

// SaveRange upserts the guessing range.
func (s *Store) SaveRange(ctx context.Context, userID, start, end int64) error {
	const q = `
		INSERT INTO user_settings (user_id, range_start, range_end)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET range_start = EXCLUDED.range_start,
		    range_end   = EXCLUDED.range_end,
		    updated_at  = now()`
	if _, err := s.db.ExecContext(ctx, q, userID, start, end); err != nil {
		return fmt.Errorf("save range for user %d: %w", userID, err)
	}
	return nil
}

// SaveTimeLimit upserts the per-game time limit in seconds.
func (s *Store) SaveTimeLimit(ctx context.Context, userID int64, seconds int) error {
	const q = `
		INSERT INTO user_settings (user_id, time_limit)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET time_limit = EXCLUDED.time_limit,
		    updated_at = now()`
	if _, err := s.db.ExecContext(ctx, q, userID, seconds); err != nil {
		return fmt.Errorf("save time limit for user %d: %w", userID, err)
	}
	return nil
}

// SaveAttempts upserts the per-game attempt budget.
func (s *Store) SaveAttempts(ctx context.Context, userID int64, attempts int) error {
	const q = `
		INSERT INTO user_settings (user_id, attempts)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET attempts   = EXCLUDED.attempts,
		    updated_at = now()`
	if _, err := s.db.ExecContext(ctx, q, userID, attempts); err != nil {
		return fmt.Errorf("save attempts for user %d: %w", userID, err)
	}
	return nil
}
