package database

import (
	"errors"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ExtractCode pulls a (vendorCode, sqlstate) pair out of err for the
// ErrorClassifier. Precise extraction is grounded on the two drivers
// whose error shapes are stable and well documented: pgx's
// pgconn.PgError (Postgres SQLSTATE) and go-sql-driver/mysql's
// MySQLError (MySQL vendor number). SQL Server, Oracle, DB2 and Tibero
// client libraries don't have a corpus-grounded error shape to extract
// from reliably, so errors from those dialects fall through to the
// empty pair, which the classifier's null-sqlstate rule treats as
// Retry — a conservative default, not a silent drop.
func ExtractCode(err error) (vendorCode int, sqlstate string) {
	if err == nil {
		return 0, ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return 0, pgErr.Code
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return int(myErr.Number), ""
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return 0, "" // transport failure, handled separately by the worker
	}

	return 0, ""
}

// IsTransportError reports whether err looks like a network-level
// failure (connection reset, timeout) rather than a classified
// database error — the worker's step 5c path, distinct from the
// ErrorClassifier's step 5b path.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
