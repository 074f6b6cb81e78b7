package tpcc

import (
	"context"
	"math/rand"

	"txbench/internal/database"
)

// payment applies a random payment amount to a warehouse, its
// district, and a random customer. Grounded on the teacher's
// paymentTx, scaled to the configured warehouse count.
func (e *Executor) payment(ctx context.Context, tx database.Tx, rng *rand.Rand) error {
	wID := e.randWarehouse(rng)
	dID := e.randDistrict(rng)
	cID := rng.Intn(3000) + 1
	amount := 10.0 + rng.Float64()*4990.0

	if err := tx.Exec(ctx,
		"UPDATE warehouse SET w_ytd = w_ytd + $1 WHERE w_id = $2",
		amount, wID); err != nil {
		return err
	}

	if err := tx.Exec(ctx,
		"UPDATE district SET d_ytd = d_ytd + $1 WHERE d_w_id = $2 AND d_id = $3",
		amount, wID, dID); err != nil {
		return err
	}

	if err := tx.Exec(ctx,
		"UPDATE customer SET c_balance = c_balance - $1, c_ytd_pay = c_ytd_pay + $1, c_payment_cnt = c_payment_cnt + 1 WHERE c_w_id = $2 AND c_d_id = $3 AND c_id = $4",
		amount, wID, dID, cID); err != nil {
		return err
	}

	return nil
}
