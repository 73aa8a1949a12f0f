// Package storage implements the Postgres persistence for users,
// settings, and game history on top of sqlx.
package storage

import (
	"github.com/jmoiron/sqlx"
)

// Store bundles all repositories over one connection pool.
type Store struct {
	db *sqlx.DB
}

// New wraps an established sqlx pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}
