package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by every directory implementation when a user,
// material or form does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a create would duplicate an existing id.
var ErrConflict = errors.New("already exists")

const uniqueViolation = "23505"

func conflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
