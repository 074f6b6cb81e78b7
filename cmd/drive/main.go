// Command drive is the invoker surface for the benchmark engine: a
// single cobra root command that composes the schema lifecycle
// (--create/--load/--clear), an ad-hoc SQL script runner
// (--runscript), and the workload execution engine (--execute) behind
// one config file.
//
// Grounded on the teacher's cmd/stormdb/main.go: root command
// construction with a cobra.Command and a version subcommand, config
// load followed by a setup/rebuild branch before the workload run,
// signal handling via os/signal + syscall.SIGINT/SIGTERM so a run
// tears down cleanly on interrupt, and a periodic summary log line
// while the workload runs. The progressive-scaling branch and the
// results-backend/database storage path are dropped; schema lifecycle
// and workload execution are driven directly through internal/config,
// internal/database, internal/txnlib/tpcc and internal/orchestrator
// instead of the teacher's WorkloadAdapter indirection.
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"txbench/internal/classify"
	"txbench/internal/config"
	"txbench/internal/database"
	"txbench/internal/logging"
	"txbench/internal/orchestrator"
	"txbench/internal/results"
	"txbench/internal/txnlib/tpcc"
	"txbench/pkg/types"
)

// Version is set by the build system via -ldflags.
var Version = "v0.1.0-dev"

type flags struct {
	benchmark   string
	configFile  string
	create      bool
	load        bool
	execute     bool
	clear       bool
	runscript   string
	profile     bool
	profilePort string
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "drive",
		Short: "Run a multi-dialect TPC-C style transactional workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	rootCmd.Flags().StringVarP(&f.benchmark, "benchmark", "b", "tpcc", "benchmark to run (tpcc)")
	rootCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "path to the run configuration YAML (required)")
	rootCmd.Flags().BoolVar(&f.create, "create", false, "create the benchmark schema before any other operation")
	rootCmd.Flags().BoolVar(&f.load, "load", false, "load initial data into the benchmark schema")
	rootCmd.Flags().BoolVar(&f.execute, "execute", false, "run the configured workload phases")
	rootCmd.Flags().BoolVar(&f.clear, "clear", false, "drop the benchmark schema")
	rootCmd.Flags().StringVar(&f.runscript, "runscript", "", "run a SQL script against the configured database and exit before the workload loop")
	rootCmd.Flags().BoolVar(&f.profile, "profile", false, "enable a pprof debug server")
	rootCmd.Flags().StringVar(&f.profilePort, "profile-port", "6060", "port for the pprof debug server")
	_ = rootCmd.MarkFlagRequired("config")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("drive %s\n", Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "drive:", err)
		os.Exit(1)
	}
}

// run composes the flags-selected operations in a fixed order: create,
// then load, then runscript (which exits before execute), then
// execute, then clear. Flags compose, matching the invoker surface's
// "flags compose" contract.
func run(ctx context.Context, f flags) error {
	if f.benchmark != "tpcc" {
		return fmt.Errorf("unsupported benchmark %q (only tpcc is implemented)", f.benchmark)
	}

	cfg, err := config.Load(f.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(logging.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	zapLogger, err := buildZapLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build zap logger: %w", err)
	}
	defer zapLogger.Sync()

	if f.profile {
		startProfilingServer(f.profilePort, logger)
	}

	dialect := types.Dialect(cfg.Dialect)

	pool, err := database.NewPool(ctx, dialect, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if f.create {
		logger.Info("creating schema")
		if err := tpcc.CreateSchema(ctx, pool, zapLogger); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if f.load {
		logger.Info("loading initial data")
		if err := tpcc.LoadInitialData(ctx, pool, cfg.Warehouses, cfg.CustomersPerDistrict, zapLogger); err != nil {
			return fmt.Errorf("load initial data: %w", err)
		}
	}

	if f.runscript != "" {
		script, err := os.ReadFile(f.runscript)
		if err != nil {
			return fmt.Errorf("read runscript %s: %w", f.runscript, err)
		}
		logger.Info("running script", logging.LoggerFields{}.String("path", f.runscript))
		if err := database.RunScript(ctx, pool, string(script)); err != nil {
			return fmt.Errorf("run script: %w", err)
		}
		return nil
	}

	if f.execute {
		if err := execute(ctx, cfg, pool, logger, zapLogger); err != nil {
			return fmt.Errorf("execute workload: %w", err)
		}
	}

	if f.clear {
		logger.Info("dropping schema")
		if err := tpcc.DropSchema(ctx, pool, zapLogger); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}

	return nil
}

func execute(ctx context.Context, cfg *types.Config, pool *database.Pool, logger logging.Logger, zapLogger *zap.Logger) error {
	phases, err := config.BuildPhases(cfg.Phases)
	if err != nil {
		return fmt.Errorf("build phases: %w", err)
	}

	resultsWriter, err := results.NewWriter(cfg.Results)
	if err != nil {
		return fmt.Errorf("build results writer: %w", err)
	}

	executor := tpcc.New(cfg.Warehouses)
	orch := orchestrator.New(cfg, phases, pool, classify.New(), executor, logger, zapLogger, resultsWriter)

	summaryInterval, err := summaryIntervalOrDefault(cfg.SummaryInterval)
	if err != nil {
		return fmt.Errorf("parse summary_interval: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(summaryInterval)
	defer ticker.Stop()
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				logger.Info("workload running")
			}
		}
	}()

	err = orch.Run(runCtx)
	cancel()
	<-tickerDone

	if err != nil {
		return err
	}
	logger.Info("workload complete")
	return nil
}

func summaryIntervalOrDefault(raw string) (time.Duration, error) {
	if raw == "" {
		return 10 * time.Second, nil
	}
	return time.ParseDuration(raw)
}

// startProfilingServer starts a background pprof debug server. Failures
// are logged, not fatal: profiling is a diagnostic convenience, never
// a precondition for a benchmark run.
func startProfilingServer(port string, logger logging.Logger) {
	addr := "localhost:" + port
	logger.Info("starting pprof debug server", logging.LoggerFields{}.String("addr", addr))
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Warn("pprof debug server stopped", logging.LoggerFields{}.Error(err))
		}
	}()
}

// buildZapLogger builds the raw *zap.Logger the schema functions in
// internal/txnlib/tpcc take directly, since logging.Logger
// exposes no accessor to the *zap.Logger it wraps internally.
func buildZapLogger(cfg types.LoggingConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
