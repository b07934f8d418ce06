// Package repository is the Postgres persistence layer for onboarding.
package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"onboarding-workers/internal/common/errors"

	"github.com/lib/pq"
)

// SQLSTATE codes that mean another transaction holds the applicant row.
const (
	pqLockNotAvailable = "55P03"
	pqDeadlockDetected = "40P01"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// queryError maps driver and context failures onto the module error codes.
func queryError(queryType, applicantID string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsStandard(err); ok {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(queryType)
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqLockNotAvailable, pqDeadlockDetected:
			return errors.NewConcurrencyConflictError(applicantID, err)
		}
	}
	if stderrors.Is(err, sql.ErrConnDone) {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	return errors.NewQueryExecutionFailedError(queryType, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
