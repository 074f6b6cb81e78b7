// Package database provides the per-dialect DSN construction and the
// Session abstraction Workers drive their transaction bodies through.
//
// Grounded on the teacher's internal/database/manager.go
// buildConnectionString (a single hardcoded Postgres DSN builder),
// generalized here into one builder per types.Dialect so the same
// ConnectionManager can target Postgres, MySQL, SQL Server, Oracle,
// DB2 and Tibero.
package database

import (
	"fmt"
	"net/url"

	"txbench/pkg/types"
)

// BuildDSN returns the connection string for cfg under dialect. For
// DialectDB2 and DialectTibero no pack-grounded Go driver exists, so
// the DSN is passed through as cfg.ConnectString verbatim — the
// operator supplies both the driver name (registered via their own
// build's blank import) and its matching DSN syntax.
func BuildDSN(dialect types.Dialect, cfg types.DatabaseConfig) (string, error) {
	switch dialect {
	case types.DialectPostgres:
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			url.QueryEscape(cfg.Username), url.QueryEscape(cfg.Password),
			cfg.Host, cfg.Port, cfg.Dbname, sslModeOrDefault(cfg.SSLMode),
		), nil

	case types.DialectMySQL:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&interpolateParams=true",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Dbname,
		), nil

	case types.DialectSQLServer:
		u := url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(cfg.Username, cfg.Password),
			Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		}
		q := u.Query()
		q.Set("database", cfg.Dbname)
		u.RawQuery = q.Encode()
		return u.String(), nil

	case types.DialectOracle:
		return fmt.Sprintf(`user="%s" password="%s" connectString="%s:%d/%s"`,
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Dbname), nil

	case types.DialectDB2, types.DialectTibero:
		if cfg.ConnectString == "" {
			return "", fmt.Errorf("database: dialect %s requires an explicit connect_string (no bundled driver supplies a default DSN syntax)", dialect)
		}
		return cfg.ConnectString, nil

	default:
		return "", fmt.Errorf("database: unsupported dialect %q", dialect)
	}
}

func sslModeOrDefault(mode string) string {
	if mode == "" {
		return "disable"
	}
	return mode
}

// DriverName returns the database/sql driver name registered for
// dialect, used by every dialect except Postgres (which goes through
// pgx/pgxpool directly rather than database/sql). For DB2 and Tibero
// the name comes from configuration since no driver is bundled.
func DriverName(dialect types.Dialect, cfg types.DatabaseConfig) (string, error) {
	switch dialect {
	case types.DialectMySQL:
		return "mysql", nil
	case types.DialectSQLServer:
		return "sqlserver", nil
	case types.DialectOracle:
		return "godror", nil
	case types.DialectDB2, types.DialectTibero:
		if cfg.DriverName == "" {
			return "", fmt.Errorf("database: dialect %s requires database.driver_name in configuration", dialect)
		}
		return cfg.DriverName, nil
	default:
		return "", fmt.Errorf("database: %s does not go through database/sql", dialect)
	}
}
