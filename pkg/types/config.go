package types

import "time"

// Config is the complete configuration for a benchmark run, loaded
// from YAML via internal/config. Field tags follow the mapstructure
// convention so viper.Unmarshal can populate the struct directly.
type Config struct {
	Benchmark string `mapstructure:"benchmark"` // e.g. "tpcc"
	Dialect   string `mapstructure:"dialect"`   // postgres|mysql|oracle|db2|sqlserver|tibero

	Database DatabaseConfig `mapstructure:"database"`

	// TotalTerminals is the maximum number of virtual terminals any
	// Phase may activate; every Phase.ActiveTerminals must be <= this.
	TotalTerminals int `mapstructure:"total_terminals"`

	// Isolation is the transaction isolation level every Worker uses
	// for the whole run. A Phase's own isolation setting is loaded into
	// Phase.Isolation but is not applied by the Worker.
	Isolation string `mapstructure:"isolation"`

	// RetryCap bounds the per-attempt retry loop (spec §4.7 step 5,
	// N_RETRY).
	RetryCap int `mapstructure:"retry_cap"`

	// TracePath is loaded from the configuration but not read by any
	// component: the orchestrator builds its WorkloadState without a
	// TraceReader, so work is always drawn from a Phase's weighted mix.
	TracePath string `mapstructure:"trace_path"`

	Phases []PhaseConfig `mapstructure:"phases"`

	// Warehouses and CustomersPerDistrict scale the TPC-C schema
	// populated by --create/--load; see internal/txnlib/tpcc.
	Warehouses           int `mapstructure:"warehouses"`
	CustomersPerDistrict int `mapstructure:"customers_per_district"`

	SummaryInterval string `mapstructure:"summary_interval"`

	Logging LoggingConfig `mapstructure:"logging"`
	Results ResultsConfig `mapstructure:"results"`
}

// DatabaseConfig holds per-dialect connection parameters. Not every
// field applies to every dialect; internal/database's dialect layer
// picks what it needs.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Dbname   string `mapstructure:"dbname"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`

	// DriverName is consulted only for dialects with no dedicated
	// session implementation (DB2, Tibero): the name under which an
	// operator has registered a database/sql driver.
	DriverName string `mapstructure:"driver_name"`

	// ConnectString, when set, is used verbatim as the DSN for DB2 and
	// Tibero instead of a built-in builder, since no pack-grounded
	// driver fixes their DSN syntax.
	ConnectString string `mapstructure:"connect_string"`

	MaxConnections    int           `mapstructure:"max_connections"`
	MinConnections    int           `mapstructure:"min_connections"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// WeightedTxnConfig is the YAML-facing form of WeightedTxn.
type WeightedTxnConfig struct {
	TxnType string `mapstructure:"txn_type"`
	Weight  int    `mapstructure:"weight"`
}

// PhaseConfig is the YAML-facing form of Phase; internal/config builds
// immutable *Phase values from a slice of these.
type PhaseConfig struct {
	ID              string              `mapstructure:"id"`
	Mix             []WeightedTxnConfig `mapstructure:"mix"`
	ActiveTerminals int                 `mapstructure:"active_terminals"`
	Mode            string              `mapstructure:"mode"` // disabled|serial|unlimited|rate_limited
	RatePerSecond   float64             `mapstructure:"rate_per_second"`
	Duration        string              `mapstructure:"duration"`
	Isolation       string              `mapstructure:"isolation"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Output      string `mapstructure:"output"`
	Development bool   `mapstructure:"development"`
}

// ResultsConfig configures internal/results sinks.
type ResultsConfig struct {
	SamplesPath string `mapstructure:"samples_path"` // CSV stream of LatencySamples
	SummaryPath string `mapstructure:"summary_path"` // JSON end-of-phase summary
}
