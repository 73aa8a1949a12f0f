package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"guessbot/game"
)

// pqUniqueViolation is the Postgres error code for unique constraint breaches.
const pqUniqueViolation = "23505"

type activeGameRow struct {
	ID            int64 `db:"id"`
	Target        int64 `db:"target"`
	AttemptsTotal int   `db:"attempts_total"`
}

// CreateGame inserts a fresh session row holding the drawn target and
// the full attempt budget. The partial unique index on unfinished
// games turns a second concurrent start into game.ErrGameInProgress.
func (s *Store) CreateGame(ctx context.Context, userID, target int64, attempts int) (int64, error) {
	const q = `
		INSERT INTO games (user_id, target, attempts_total, attempts_left)
		VALUES ($1, $2, $3, $3)
		RETURNING id`
	var id int64
	if err := s.db.GetContext(ctx, &id, q, userID, target, attempts); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return 0, game.ErrGameInProgress
		}
		return 0, fmt.Errorf("create game for user %d: %w", userID, err)
	}
	return id, nil
}

// ActiveGame returns the user's unfinished session, if any.
func (s *Store) ActiveGame(ctx context.Context, userID int64) (*game.ActiveGame, error) {
	const q = `
		SELECT id, target, attempts_total
		FROM games
		WHERE user_id = $1 AND result IS NULL
		ORDER BY id DESC
		LIMIT 1`
	var row activeGameRow
	if err := s.db.GetContext(ctx, &row, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrNoActiveGame
		}
		return nil, fmt.Errorf("active game for user %d: %w", userID, err)
	}
	return &game.ActiveGame{
		ID:            row.ID,
		Target:        row.Target,
		AttemptsTotal: row.AttemptsTotal,
	}, nil
}

// DecrementAttempts consumes one attempt and returns the remaining count.
func (s *Store) DecrementAttempts(ctx context.Context, gameID int64) (int, error) {
	const q = `
		UPDATE games
		SET attempts_left = attempts_left - 1
		WHERE id = $1
		RETURNING attempts_left`
	var left int
	if err := s.db.GetContext(ctx, &left, q, gameID); err != nil {
		return 0, fmt.Errorf("decrement attempts for game %d: %w", gameID, err)
	}
	return left, nil
}

// ElapsedSeconds reports whole seconds since the game row was created.
func (s *Store) ElapsedSeconds(ctx context.Context, gameID int64) (int, error) {
	const q = `
		SELECT EXTRACT(EPOCH FROM (now() - started_at))::int
		FROM games
		WHERE id = $1`
	var seconds int
	if err := s.db.GetContext(ctx, &seconds, q, gameID); err != nil {
		return 0, fmt.Errorf("elapsed seconds for game %d: %w", gameID, err)
	}
	return seconds, nil
}

// FinishGame records the outcome once. The WHERE clause is the
// compare-and-set guarding the terminal transition: only the first
// caller sees an affected row, late triggers degrade to a no-op.
func (s *Store) FinishGame(ctx context.Context, gameID int64, result game.Result) (bool, error) {
	const q = `
		UPDATE games
		SET result = $2, finished_at = now()
		WHERE id = $1 AND result IS NULL`
	res, err := s.db.ExecContext(ctx, q, gameID, result)
	if err != nil {
		return false, fmt.Errorf("finish game %d: %w", gameID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finish game %d: rows affected: %w", gameID, err)
	}
	return affected > 0, nil
}
