package pg

import (
	"errors"
	"net/http"

	// Packages
	pgx "github.com/jackc/pgx/v5"
	pgconn "github.com/jackc/pgx/v5/pgconn"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	ErrNotFound       = httpresponse.Err(http.StatusNotFound)
	ErrBadParameter   = httpresponse.Err(http.StatusBadRequest)
	ErrConflict       = httpresponse.Err(http.StatusConflict)
	ErrForbidden      = httpresponse.Err(http.StatusForbidden)
	ErrInternalError  = httpresponse.Err(http.StatusInternalServerError)
	ErrNotImplemented = httpresponse.Err(http.StatusNotImplemented)
)

// PostgreSQL error codes which are mapped onto the package error taxonomy
const (
	pgCodeUniqueViolation = "23505"
	pgCodeCheckViolation  = "23514"
	pgCodeFKViolation     = "23503"
	pgCodeInvalidText     = "22P02"
)

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// pgerror maps pgx and pgconn errors onto the package error taxonomy,
// returning any other error unchanged.
func pgerror(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		switch pgerr.Code {
		case pgCodeUniqueViolation:
			return ErrConflict.Withf("duplicate value for %q", pgerr.ConstraintName)
		case pgCodeCheckViolation, pgCodeFKViolation, pgCodeInvalidText:
			return ErrBadParameter.With(pgerr.Message)
		}
	}

	// Return the error unchanged
	return err
}

// IsConflict returns true when the error indicates a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
