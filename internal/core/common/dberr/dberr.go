// Package dberr maps driver-level constraint errors onto the application error taxonomy.
package dberr

import (
	stderrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	errors "github.com/frahmantamala/payflow/internal"
)

const pgUniqueViolation = "23505"

// UniqueViolationField reports the column behind a unique-constraint failure.
// Postgres constraints are expected to follow the uq_<table>_<column> naming used by the migrations.
func UniqueViolationField(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return fieldFromConstraint(pgErr.TableName, pgErr.ConstraintName), true
	}

	// sqlite: "UNIQUE constraint failed: users.email"
	msg := err.Error()
	if idx := strings.Index(msg, "UNIQUE constraint failed: "); idx >= 0 {
		target := strings.TrimSpace(msg[idx+len("UNIQUE constraint failed: "):])
		if comma := strings.Index(target, ","); comma >= 0 {
			target = target[:comma]
		}
		if dot := strings.LastIndex(target, "."); dot >= 0 {
			return target[dot+1:], true
		}
		return target, true
	}

	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}

	return "", false
}

func IsUniqueViolation(err error) bool {
	_, ok := UniqueViolationField(err)
	return ok
}

// Translate returns a ConstraintViolation for unique failures and the original error otherwise.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if field, ok := UniqueViolationField(err); ok {
		if field == "" {
			field = "value"
		}
		return errors.NewConstraintViolation(field, err)
	}
	return err
}

func fieldFromConstraint(table, constraint string) string {
	name := strings.TrimPrefix(constraint, "uq_")
	if table != "" {
		name = strings.TrimPrefix(name, table+"_")
	} else if idx := strings.Index(name, "_"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
