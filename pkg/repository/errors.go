package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
	pgInvalidTextValue = "22P02"
)

// Errors names the domain errors that driver errors are translated to.
// A nil field leaves the matching driver error unchanged.
type Errors struct {
	NotFound  error
	Duplicate error
	Invalid   error
}

// Map translates err into the domain errors of e. sql.ErrNoRows becomes
// NotFound, a unique violation becomes Duplicate, and a check violation or
// malformed column value becomes Invalid. Other errors are returned unchanged.
func (e Errors) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && e.NotFound != nil {
		return e.NotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgUniqueViolation && e.Duplicate != nil:
		return e.Duplicate
	case (pgErr.Code == pgCheckViolation || pgErr.Code == pgInvalidTextValue) && e.Invalid != nil:
		if pgErr.ConstraintName != "" {
			return fmt.Errorf("%w: %s", e.Invalid, pgErr.ConstraintName)
		}
		return e.Invalid
	}

	return err
}
