package tpcc

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"txbench/internal/database"
)

// createStatements is the full TPC-C-shaped schema: the five tables
// the teacher's schema.go created (warehouse, district, customer,
// orders, order_line) plus stock, item, and new_order, added so
// Delivery and StockLevel have a schema to run against.
var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS warehouse (
		w_id INT PRIMARY KEY,
		w_name TEXT,
		w_tax DECIMAL(4,4),
		w_ytd DECIMAL(12,2)
	)`,
	`CREATE TABLE IF NOT EXISTS district (
		d_id SMALLINT,
		d_w_id INT REFERENCES warehouse(w_id),
		d_name TEXT,
		d_tax DECIMAL(4,4),
		d_ytd DECIMAL(12,2),
		d_next_o_id INT,
		PRIMARY KEY (d_w_id, d_id)
	)`,
	`CREATE TABLE IF NOT EXISTS customer (
		c_id INT,
		c_d_id SMALLINT,
		c_w_id INT,
		c_first TEXT,
		c_last TEXT,
		c_since TIMESTAMPTZ,
		c_credit CHAR(2),
		c_balance DECIMAL(12,2),
		c_ytd_pay DECIMAL(12,2) DEFAULT 0,
		c_payment_cnt INT DEFAULT 0,
		c_delivery_cnt INT DEFAULT 0,
		PRIMARY KEY (c_w_id, c_d_id, c_id)
	)`,
	`CREATE TABLE IF NOT EXISTS item (
		i_id INT PRIMARY KEY,
		i_name TEXT,
		i_price DECIMAL(5,2)
	)`,
	`CREATE TABLE IF NOT EXISTS stock (
		s_i_id INT,
		s_w_id INT,
		s_quantity INT,
		s_ytd INT DEFAULT 0,
		s_order_cnt INT DEFAULT 0,
		s_remote_cnt INT DEFAULT 0,
		PRIMARY KEY (s_w_id, s_i_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		o_id INT,
		o_d_id SMALLINT,
		o_w_id INT,
		o_c_id INT,
		o_entry_d TIMESTAMPTZ,
		o_carrier_id INT,
		o_ol_cnt INT,
		o_all_local INT,
		PRIMARY KEY (o_w_id, o_d_id, o_id)
	)`,
	`CREATE TABLE IF NOT EXISTS new_order (
		no_o_id INT,
		no_d_id SMALLINT,
		no_w_id INT,
		PRIMARY KEY (no_w_id, no_d_id, no_o_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_line (
		ol_o_id INT,
		ol_d_id SMALLINT,
		ol_w_id INT,
		ol_number INT,
		ol_i_id INT,
		ol_supply_w_id INT,
		ol_delivery_d TIMESTAMPTZ,
		ol_quantity INT,
		ol_amount DECIMAL(6,2),
		ol_dist_info CHAR(24),
		PRIMARY KEY (ol_w_id, ol_d_id, ol_o_id, ol_number)
	)`,
}

var dropStatements = []string{
	"DROP TABLE IF EXISTS order_line CASCADE",
	"DROP TABLE IF EXISTS new_order CASCADE",
	"DROP TABLE IF EXISTS orders CASCADE",
	"DROP TABLE IF EXISTS stock CASCADE",
	"DROP TABLE IF EXISTS item CASCADE",
	"DROP TABLE IF EXISTS customer CASCADE",
	"DROP TABLE IF EXISTS district CASCADE",
	"DROP TABLE IF EXISTS warehouse CASCADE",
}

// CreateSchema creates every TPC-C table if it doesn't already exist.
// Grounded on the teacher's schema.go Setup, split from "create +
// seed" into "create" alone; LoadInitialData is the seeding step.
func CreateSchema(ctx context.Context, pool *database.Pool, logger *zap.Logger) error {
	session, err := pool.AcquireSession(ctx)
	if err != nil {
		return fmt.Errorf("tpcc: acquire session for schema creation: %w", err)
	}
	defer session.Close()

	tx, err := session.Begin(ctx, "read_committed")
	if err != nil {
		return fmt.Errorf("tpcc: begin schema transaction: %w", err)
	}
	for _, stmt := range createStatements {
		if err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("tpcc: create table: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tpcc: commit schema transaction: %w", err)
	}
	logger.Info("tpcc schema created")
	return nil
}

// DropSchema drops every TPC-C table, used by the --clear operation.
func DropSchema(ctx context.Context, pool *database.Pool, logger *zap.Logger) error {
	session, err := pool.AcquireSession(ctx)
	if err != nil {
		return fmt.Errorf("tpcc: acquire session for schema drop: %w", err)
	}
	defer session.Close()

	tx, err := session.Begin(ctx, "read_committed")
	if err != nil {
		return fmt.Errorf("tpcc: begin drop transaction: %w", err)
	}
	for _, stmt := range dropStatements {
		if err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("tpcc: drop table: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tpcc: commit drop transaction: %w", err)
	}
	logger.Info("tpcc schema dropped")
	return nil
}

// LoadInitialData seeds warehouseCount warehouses, 10 districts each,
// the 100,000-row item table with 100,000 stock rows per warehouse,
// and customersPerDistrict customers per district. Grounded on the teacher's loadInitialData/
// loadDistrictsBatch/loadCustomersBatch, simplified from pgx COPY
// protocol (Postgres-only) to per-row inserts within one transaction
// per warehouse, since the dialect-neutral database.Tx contract has no
// COPY equivalent for the other five dialects.
func LoadInitialData(ctx context.Context, pool *database.Pool, warehouseCount, customersPerDistrict int, logger *zap.Logger) error {
	if warehouseCount <= 0 {
		warehouseCount = 1
	}
	if customersPerDistrict <= 0 {
		customersPerDistrict = 3000
	}

	session, err := pool.AcquireSession(ctx)
	if err != nil {
		return fmt.Errorf("tpcc: acquire session for data load: %w", err)
	}
	defer session.Close()

	now := time.Now()

	for w := 1; w <= warehouseCount; w++ {
		tx, err := session.Begin(ctx, "read_committed")
		if err != nil {
			return fmt.Errorf("tpcc: begin load transaction for warehouse %d: %w", w, err)
		}

		if err := tx.Exec(ctx,
			"INSERT INTO warehouse (w_id, w_name, w_tax, w_ytd) VALUES ($1, $2, 0.1, 300000) ON CONFLICT DO NOTHING",
			w, fmt.Sprintf("WH%d", w)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("tpcc: insert warehouse %d: %w", w, err)
		}

		for d := 1; d <= 10; d++ {
			if err := tx.Exec(ctx,
				"INSERT INTO district (d_id, d_w_id, d_name, d_tax, d_ytd, d_next_o_id) VALUES ($1, $2, $3, 0.1, 30000, 3001) ON CONFLICT DO NOTHING",
				d, w, fmt.Sprintf("District%d-%d", w, d)); err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("tpcc: insert district %d/%d: %w", w, d, err)
			}

			for c := 1; c <= customersPerDistrict; c++ {
				if err := tx.Exec(ctx,
					"INSERT INTO customer (c_id, c_d_id, c_w_id, c_first, c_last, c_since, c_credit, c_balance) VALUES ($1, $2, $3, $4, 'CUSTOMER', $5, 'GC', 0) ON CONFLICT DO NOTHING",
					c, d, w, fmt.Sprintf("First%d", c), now); err != nil {
					_ = tx.Rollback(ctx)
					return fmt.Errorf("tpcc: insert customer %d/%d/%d: %w", w, d, c, err)
				}
			}
		}

		for i := 1; i <= 100000; i++ {
			if err := tx.Exec(ctx,
				"INSERT INTO item (i_id, i_name, i_price) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
				i, fmt.Sprintf("Item%d", i), 1.0+float64(i%100)); err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("tpcc: insert item %d: %w", i, err)
			}
			if err := tx.Exec(ctx,
				"INSERT INTO stock (s_i_id, s_w_id, s_quantity) VALUES ($1, $2, 91) ON CONFLICT DO NOTHING",
				i, w); err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("tpcc: insert stock %d/%d: %w", w, i, err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("tpcc: commit load transaction for warehouse %d: %w", w, err)
		}
		logger.Info("tpcc warehouse seeded", zap.Int("warehouse", w))
	}

	return nil
}
