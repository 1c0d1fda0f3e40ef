package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFoundOrForbidden covers both a missing meal and a meal owned by
	// someone else; callers must not be able to tell the two apart.
	ErrNotFoundOrForbidden = errors.New("meal not found or not authorized")
	// ErrInvalidOutcome is returned for an unknown outcome tag or a meal
	// compared with itself.
	ErrInvalidOutcome = errors.New("invalid comparison")
	// ErrTransientPersistence means the transaction was rolled back and nothing
	// was written. Callers may resubmit.
	ErrTransientPersistence = errors.New("persistence failure")

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWrongPassword      = errors.New("current password is required and must be correct")
)

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientPersistence, err)
}

// isUniqueViolation reports a postgres 23505 anywhere in the chain.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation reports a postgres 23503 anywhere in the chain.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
