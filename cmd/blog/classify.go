package blog

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// classifyUniqueViolation maps a driver-level unique violation to a logical field.
// It understands PostgreSQL (pgconn) and SQLite (go-sqlite3) errors.
func classifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" { // unique_violation
			return "", false
		}
		return fieldFromConstraint(pgErr.ConstraintName), true
	}

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		if sqErr.ExtendedCode != sqlite3.ErrConstraintUnique {
			return "", false
		}
		// "UNIQUE constraint failed: users.username"
		return fieldFromConstraint(sqErr.Error()), true
	}
	return "", false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

func fieldFromConstraint(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	switch c {
	case "uq_users_username":
		return "username"
	case "uq_users_email":
		return "email"
	}
	switch {
	case strings.Contains(c, "username"):
		return "username"
	case strings.Contains(c, "email"):
		return "email"
	default:
		return "unique"
	}
}
