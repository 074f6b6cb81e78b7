package config

import (
	"os"
	"path/filepath"
	"testing"

	"txbench/pkg/types"
)

func validConfig() *types.Config {
	return &types.Config{
		Benchmark:      "tpcc",
		Dialect:        "postgres",
		TotalTerminals: 16,
		RetryCap:       10,
		Phases: []types.PhaseConfig{
			{
				ID:              "measure",
				Mode:            "unlimited",
				ActiveTerminals: 16,
				Mix: []types.WeightedTxnConfig{
					{TxnType: "new_order", Weight: 45},
					{TxnType: "payment", Weight: 43},
				},
			},
		},
		Database: types.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Dbname:   "test",
			Username: "user",
			SSLMode:  "disable",
		},
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "test_config.yaml")

	configContent := `
benchmark: tpcc
dialect: postgres
total_terminals: 16
retry_cap: 10
phases:
  - id: measure
    mode: unlimited
    active_terminals: 16
    mix:
      - txn_type: new_order
        weight: 45
      - txn_type: payment
        weight: 43
database:
  host: "localhost"
  port: 5432
  dbname: "test_db"
  username: "test_user"
  password: "test_pass"
  sslmode: "disable"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Host != "localhost" {
		t.Errorf("got host %q, want localhost", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("got port %d, want 5432", cfg.Database.Port)
	}
	if cfg.Dialect != "postgres" {
		t.Errorf("got dialect %q, want postgres", cfg.Dialect)
	}
	if len(cfg.Phases) != 1 || cfg.Phases[0].ID != "measure" {
		t.Fatalf("got phases %+v, want one phase named measure", cfg.Phases)
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	if _, err := Load("nonexistent.yaml"); err == nil {
		t.Error("expected error for nonexistent config file")
	}
}

func TestValidateConfigValid(t *testing.T) {
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateConfigInvalidDialect(t *testing.T) {
	cfg := validConfig()
	cfg.Dialect = "informix"
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for invalid dialect")
	}
}

func TestValidateConfigZeroTotalTerminals(t *testing.T) {
	cfg := validConfig()
	cfg.TotalTerminals = 0
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for zero total_terminals")
	}
}

func TestValidateConfigNoPhases(t *testing.T) {
	cfg := validConfig()
	cfg.Phases = nil
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for no phases")
	}
}

func TestValidateConfigDuplicatePhaseIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Phases = append(cfg.Phases, cfg.Phases[0])
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for duplicate phase ids")
	}
}

func TestValidateConfigActiveTerminalsExceedsTotal(t *testing.T) {
	cfg := validConfig()
	cfg.Phases[0].ActiveTerminals = cfg.TotalTerminals + 1
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error when phase active_terminals exceeds total_terminals")
	}
}

func TestValidateConfigRateLimitedRequiresRate(t *testing.T) {
	cfg := validConfig()
	cfg.Phases[0].Mode = "rate_limited"
	cfg.Phases[0].RatePerSecond = 0
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for rate_limited phase with zero rate")
	}
}

func TestValidateConfigEmptyHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for empty database host")
	}
}

func TestValidateConfigInvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Port = 0
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for invalid database port")
	}
}

func TestValidateConfigInvalidSSLMode(t *testing.T) {
	cfg := validConfig()
	cfg.Database.SSLMode = "bogus"
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for invalid sslmode")
	}
}

func TestValidateConfigDB2RequiresConnectStringAndDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Dialect = "db2"
	cfg.Database.ConnectString = ""
	cfg.Database.DriverName = ""
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for db2 dialect missing connect_string/driver_name")
	}
}

func TestBuildPhases(t *testing.T) {
	phases, err := BuildPhases(validConfig().Phases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(phases) != 1 {
		t.Fatalf("got %d phases, want 1", len(phases))
	}
	if phases[0].Mode != types.ModeUnlimited {
		t.Errorf("got mode %v, want ModeUnlimited", phases[0].Mode)
	}
	if phases[0].ActiveTerminals != 16 {
		t.Errorf("got active terminals %d, want 16", phases[0].ActiveTerminals)
	}
}

func TestBuildPhasesInvalidMode(t *testing.T) {
	configs := validConfig().Phases
	configs[0].Mode = "bogus"
	if _, err := BuildPhases(configs); err == nil {
		t.Error("expected error for invalid mode")
	}
}
