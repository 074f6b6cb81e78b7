package tpcc

import (
	"context"
	"math/rand"

	"txbench/internal/database"
)

// delivery processes the oldest undelivered order in every district of
// one warehouse: assigns a carrier, stamps each order line's delivery
// date, and credits the ordering customer's balance. New to this
// implementation (spec.md's distillation dropped it; see
// SPEC_FULL.md "Supplemented features"), written against the same
// schema the teacher's NewOrder/Payment/OrderStatus bodies use.
func (e *Executor) delivery(ctx context.Context, tx database.Tx, rng *rand.Rand) error {
	wID := e.randWarehouse(rng)
	carrierID := rng.Intn(10) + 1

	for dID := 1; dID <= e.DistrictPerWare; dID++ {
		var oID int
		err := tx.QueryRow(ctx,
			"SELECT no_o_id FROM new_order WHERE no_w_id = $1 AND no_d_id = $2 ORDER BY no_o_id LIMIT 1",
			wID, dID).Scan(&oID)
		if err != nil {
			// No undelivered order in this district; skip it, per the
			// standard TPC-C Delivery transaction's defined behavior.
			continue
		}

		if err := tx.Exec(ctx,
			"DELETE FROM new_order WHERE no_w_id = $1 AND no_d_id = $2 AND no_o_id = $3",
			wID, dID, oID); err != nil {
			return err
		}

		var cID int
		if err := tx.QueryRow(ctx,
			"SELECT o_c_id FROM orders WHERE o_w_id = $1 AND o_d_id = $2 AND o_id = $3",
			wID, dID, oID).Scan(&cID); err != nil {
			return err
		}

		if err := tx.Exec(ctx,
			"UPDATE orders SET o_carrier_id = $1 WHERE o_w_id = $2 AND o_d_id = $3 AND o_id = $4",
			carrierID, wID, dID, oID); err != nil {
			return err
		}

		if err := tx.Exec(ctx,
			"UPDATE order_line SET ol_delivery_d = NOW() WHERE ol_w_id = $1 AND ol_d_id = $2 AND ol_o_id = $3",
			wID, dID, oID); err != nil {
			return err
		}

		var lineTotal float64
		if err := tx.QueryRow(ctx,
			"SELECT COALESCE(SUM(ol_amount), 0) FROM order_line WHERE ol_w_id = $1 AND ol_d_id = $2 AND ol_o_id = $3",
			wID, dID, oID).Scan(&lineTotal); err != nil {
			return err
		}

		if err := tx.Exec(ctx,
			"UPDATE customer SET c_balance = c_balance + $1, c_delivery_cnt = c_delivery_cnt + 1 WHERE c_w_id = $2 AND c_d_id = $3 AND c_id = $4",
			lineTotal, wID, dID, cID); err != nil {
			return err
		}
	}

	return nil
}
