package errors

import (
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the manifest repo can hit
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
	pgInvalidText         = "22P02"
	pgReadOnlyTx          = "25006"
	pgCannotConnectNow    = "57P03"
	pgDiskFull            = "53100"
)

// DBErrorCode maps a postgres error to an ErrorCode; ok is false for non postgres errors
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case pgForeignKeyViolation, pgStringTooLong, pgInvalidText:
		return ErrorCodeInvalidArgument, true
	case pgNotNullViolation, pgCheckViolation:
		return ErrorCodeValidation, true
	case pgReadOnlyTx, pgCannotConnectNow:
		return ErrorCodeUnavailable, true
	case pgDiskFull:
		return ErrorCodeStorage, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresWithField is FromPostgres plus the offending column when postgres names one
// the column comes from ColumnName, else from the constraint suffix (uploads_title_check -> title)
func FromPostgresWithField(err error, msg string) error {
	out := FromPostgres(err, msg)
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return out
	}
	if col := strings.TrimSpace(pgErr.ColumnName); col != "" {
		return WithField(out, col)
	}
	parts := strings.Split(strings.TrimSpace(pgErr.ConstraintName), "_")
	if n := len(parts); n >= 3 {
		switch parts[n-1] {
		case "check", "key", "fkey", "pkey":
			return WithField(out, parts[n-2])
		}
	}
	return out
}
