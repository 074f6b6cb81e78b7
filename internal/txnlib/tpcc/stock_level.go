package tpcc

import (
	"context"
	"math/rand"

	"txbench/internal/database"
)

// stockLevel counts how many of the last 20 orders' line items are
// low on stock (below a random threshold), read-only. New to this
// implementation, same rationale as delivery.go.
func (e *Executor) stockLevel(ctx context.Context, tx database.Tx, rng *rand.Rand) error {
	wID := e.randWarehouse(rng)
	dID := e.randDistrict(rng)
	threshold := 10 + rng.Intn(11)

	var nextOID int
	if err := tx.QueryRow(ctx,
		"SELECT d_next_o_id FROM district WHERE d_w_id = $1 AND d_id = $2",
		wID, dID).Scan(&nextOID); err != nil {
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT COUNT(DISTINCT s.s_i_id)
		   FROM order_line ol
		   JOIN stock s ON s.s_i_id = ol.ol_i_id AND s.s_w_id = ol.ol_w_id
		  WHERE ol.ol_w_id = $1 AND ol.ol_d_id = $2
		    AND ol.ol_o_id >= $3 - 20 AND ol.ol_o_id < $3
		    AND s.s_quantity < $4`,
		wID, dID, nextOID, threshold)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var lowStockCount int
		if err := rows.Scan(&lowStockCount); err != nil {
			return err
		}
	}
	return rows.Err()
}
