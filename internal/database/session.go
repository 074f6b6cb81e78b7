package database

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row is the minimal result-row contract a transaction executor needs,
// satisfied by both pgx.Row and *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows is the minimal multi-row result contract, satisfied by both
// pgx.Rows and *sql.Rows. Callers must call Close when done, even on
// error from Next/Scan/Err.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Tx is the minimal transaction contract a transaction library
// collaborator drives, implemented for pgx (Postgres) and database/sql
// (every other dialect).
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) error
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Session is one worker's exclusive database connection: the
// transaction library begins a Tx against it per attempt. A Session
// is held for the worker's entire lifetime and only replaced wholesale
// on reconnect, so its prepared-statement cache (maintained by the
// underlying driver) survives across many transactions.
type Session interface {
	Begin(ctx context.Context, isolation string) (Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// pgSession wraps one pooled pgx connection.
type pgSession struct {
	conn *pgxpool.Conn
}

func newPgSession(conn *pgxpool.Conn) Session {
	return &pgSession{conn: conn}
}

func (s *pgSession) Begin(ctx context.Context, isolation string) (Tx, error) {
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgIsolationLevel(isolation)})
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (s *pgSession) Ping(ctx context.Context) error { return s.conn.Ping(ctx) }
func (s *pgSession) Close()                         { s.conn.Release() }

func pgIsolationLevel(isolation string) pgx.TxIsoLevel {
	switch isolation {
	case "read_committed":
		return pgx.ReadCommitted
	case "repeatable_read":
		return pgx.RepeatableRead
	default:
		return pgx.Serializable
	}
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.Exec(ctx, query, args...)
	return err
}

func (t *pgTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return t.tx.QueryRow(ctx, query, args...)
}

func (t *pgTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgRows{rows: rows}, nil
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

type pgRows struct {
	rows pgx.Rows
}

func (r *pgRows) Next() bool             { return r.rows.Next() }
func (r *pgRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgRows) Err() error             { return r.rows.Err() }
func (r *pgRows) Close()                 { r.rows.Close() }

// sqlSession wraps one database/sql connection, used for every
// non-Postgres dialect (MySQL, SQL Server, Oracle, DB2, Tibero).
type sqlSession struct {
	conn *sql.Conn
}

func newSQLSession(conn *sql.Conn) Session {
	return &sqlSession{conn: conn}
}

func (s *sqlSession) Begin(ctx context.Context, isolation string) (Tx, error) {
	tx, err := s.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sqlIsolationLevel(isolation)})
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (s *sqlSession) Ping(ctx context.Context) error { return s.conn.PingContext(ctx) }
func (s *sqlSession) Close()                         { _ = s.conn.Close() }

func sqlIsolationLevel(isolation string) sql.IsolationLevel {
	switch isolation {
	case "read_committed":
		return sql.LevelReadCommitted
	case "repeatable_read":
		return sql.LevelRepeatableRead
	default:
		return sql.LevelSerializable
	}
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

func (t *sqlTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func (t *sqlTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *sqlTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool             { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Err() error             { return r.rows.Err() }
func (r *sqlRows) Close()                 { _ = r.rows.Close() }
