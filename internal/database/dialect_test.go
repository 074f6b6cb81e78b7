package database

import (
	"strings"
	"testing"

	"txbench/pkg/types"
)

func baseCfg() types.DatabaseConfig {
	return types.DatabaseConfig{Host: "db.local", Port: 5432, Dbname: "tpcc", Username: "bench", Password: "s3cr3t"}
}

func TestBuildDSNPostgres(t *testing.T) {
	dsn, err := BuildDSN(types.DialectPostgres, baseCfg())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dsn, "postgres://") || !strings.Contains(dsn, "db.local:5432") {
		t.Fatalf("unexpected postgres dsn: %s", dsn)
	}
}

func TestBuildDSNMySQL(t *testing.T) {
	dsn, err := BuildDSN(types.DialectMySQL, baseCfg())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dsn, "tcp(db.local:5432)/tpcc") {
		t.Fatalf("unexpected mysql dsn: %s", dsn)
	}
}

func TestBuildDSNSQLServer(t *testing.T) {
	dsn, err := BuildDSN(types.DialectSQLServer, baseCfg())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dsn, "sqlserver://") {
		t.Fatalf("unexpected sqlserver dsn: %s", dsn)
	}
}

func TestBuildDSNDB2RequiresConnectString(t *testing.T) {
	_, err := BuildDSN(types.DialectDB2, baseCfg())
	if err == nil {
		t.Fatal("expected an error when connect_string is unset for db2")
	}

	cfg := baseCfg()
	cfg.ConnectString = "DATABASE=tpcc;HOSTNAME=db.local;PORT=50000"
	dsn, err := BuildDSN(types.DialectDB2, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if dsn != cfg.ConnectString {
		t.Fatalf("expected verbatim connect string, got %s", dsn)
	}
}

func TestDriverNameRequiresConfigForDB2(t *testing.T) {
	_, err := DriverName(types.DialectDB2, baseCfg())
	if err == nil {
		t.Fatal("expected an error when driver_name is unset for db2")
	}

	cfg := baseCfg()
	cfg.DriverName = "go_ibm_db"
	name, err := DriverName(types.DialectDB2, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if name != "go_ibm_db" {
		t.Fatalf("driver name = %s, want go_ibm_db", name)
	}
}

func TestDriverNameKnownDialects(t *testing.T) {
	cases := map[types.Dialect]string{
		types.DialectMySQL:     "mysql",
		types.DialectSQLServer: "sqlserver",
		types.DialectOracle:    "godror",
	}
	for dialect, want := range cases {
		got, err := DriverName(dialect, baseCfg())
		if err != nil {
			t.Fatalf("%s: %v", dialect, err)
		}
		if got != want {
			t.Errorf("%s: driver = %s, want %s", dialect, got, want)
		}
	}
}
