package database

// Blank imports register each dialect's database/sql driver by its
// well-known name so sql.Open(driverName, dsn) in NewPool resolves
// without the caller wiring anything else up. Postgres is excluded:
// it goes through pgx/pgxpool directly rather than database/sql.
import (
	_ "github.com/go-sql-driver/mysql"  // registers "mysql"
	_ "github.com/godror/godror"        // registers "godror" (Oracle)
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
)
