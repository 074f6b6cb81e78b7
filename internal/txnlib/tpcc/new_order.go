package tpcc

import (
	"context"
	"math/rand"

	"txbench/internal/database"
)

// newOrder enters a new order of 5-15 lines, 1% of which touch a
// remote warehouse, and bumps the district's next-order-id counter.
// Grounded on the teacher's newOrderTx; rollback and commit are the
// caller's (internal/worker's) responsibility, not this function's.
func (e *Executor) newOrder(ctx context.Context, tx database.Tx, rng *rand.Rand) error {
	wID := e.randWarehouse(rng)
	dID := e.randDistrict(rng)
	cID := rng.Intn(3000) + 1

	remote := rng.Intn(100) == 0
	olCount := 5 + rng.Intn(11)

	itemIDs := make([]int, olCount)
	quantities := make([]int, olCount)
	for i := 0; i < olCount; i++ {
		itemIDs[i] = rng.Intn(100000) + 1
		quantities[i] = 1 + rng.Intn(10)
	}

	var nextOID int
	err := tx.QueryRow(ctx,
		"SELECT d_next_o_id FROM district WHERE d_w_id = $1 AND d_id = $2 FOR UPDATE",
		wID, dID).Scan(&nextOID)
	if err != nil {
		return err
	}

	allLocal := 1
	if remote {
		allLocal = 0
	}
	if err := tx.Exec(ctx,
		"INSERT INTO orders (o_id, o_d_id, o_w_id, o_c_id, o_entry_d, o_carrier_id, o_ol_cnt, o_all_local) VALUES ($1, $2, $3, $4, NOW(), NULL, $5, $6)",
		nextOID, dID, wID, cID, olCount, allLocal); err != nil {
		return err
	}

	if err := tx.Exec(ctx,
		"INSERT INTO new_order (no_o_id, no_d_id, no_w_id) VALUES ($1, $2, $3)",
		nextOID, dID, wID); err != nil {
		return err
	}

	if err := tx.Exec(ctx,
		"UPDATE district SET d_next_o_id = d_next_o_id + 1 WHERE d_w_id = $1 AND d_id = $2",
		wID, dID); err != nil {
		return err
	}

	for i := 0; i < olCount; i++ {
		supplyWID := wID
		if remote && i == olCount-1 && e.WarehouseCount > 1 {
			supplyWID = (wID % e.WarehouseCount) + 1
		}
		amount := 1.0 + rng.Float64()*99.0

		var stockQty int
		if err := tx.QueryRow(ctx,
			"SELECT s_quantity FROM stock WHERE s_i_id = $1 AND s_w_id = $2 FOR UPDATE",
			itemIDs[i], supplyWID).Scan(&stockQty); err != nil {
			return err
		}
		newQty := stockQty - quantities[i]
		if newQty < 10 {
			newQty += 91
		}
		if err := tx.Exec(ctx,
			"UPDATE stock SET s_quantity = $1, s_ytd = s_ytd + $2, s_order_cnt = s_order_cnt + 1 WHERE s_i_id = $3 AND s_w_id = $4",
			newQty, quantities[i], itemIDs[i], supplyWID); err != nil {
			return err
		}

		if err := tx.Exec(ctx,
			"INSERT INTO order_line (ol_o_id, ol_d_id, ol_w_id, ol_number, ol_i_id, ol_supply_w_id, ol_delivery_d, ol_quantity, ol_amount, ol_dist_info) VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8, 'S_DIST_' || lpad($2::text, 2, '0'))",
			nextOID, dID, wID, i+1, itemIDs[i], supplyWID, quantities[i], amount); err != nil {
			return err
		}
	}

	return nil
}
