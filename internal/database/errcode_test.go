package database

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestExtractCodePostgres(t *testing.T) {
	err := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	vendor, state := ExtractCode(err)
	if vendor != 0 || state != "40001" {
		t.Fatalf("got (%d, %q), want (0, \"40001\")", vendor, state)
	}
}

func TestExtractCodeMySQL(t *testing.T) {
	err := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	vendor, state := ExtractCode(err)
	if vendor != 1213 || state != "" {
		t.Fatalf("got (%d, %q), want (1213, \"\")", vendor, state)
	}
}

func TestExtractCodeUnknownErrorFallsThrough(t *testing.T) {
	vendor, state := ExtractCode(errors.New("some other failure"))
	if vendor != 0 || state != "" {
		t.Fatalf("got (%d, %q), want (0, \"\")", vendor, state)
	}
}

func TestExtractCodeNil(t *testing.T) {
	vendor, state := ExtractCode(nil)
	if vendor != 0 || state != "" {
		t.Fatalf("got (%d, %q), want (0, \"\")", vendor, state)
	}
}
