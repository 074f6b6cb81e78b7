// Package tpcc is the reference transaction library collaborator: the
// five TPC-C style transaction bodies (NewOrder, Payment, OrderStatus,
// Delivery, StockLevel), each driven against an already-open
// database.Tx handed to it by a Worker. A tpcc.Executor never begins,
// commits, or rolls back its own transaction — that lifecycle belongs
// entirely to internal/worker's attempt loop.
//
// Grounded on the teacher's internal/workload/tpcc/{new_order,payment,
// order_status}.go transaction bodies, generalized from
// *pgxpool.Pool-shaped functions that owned their own Begin/Commit
// into database.Tx-shaped methods that only run statements. Delivery
// and StockLevel are new, added to round out the standard five TPC-C
// transaction types (spec.md's distillation carried only three).
package tpcc

import (
	"context"
	"fmt"
	"math/rand"

	"txbench/internal/database"
	"txbench/pkg/types"
)

// Transaction type names, matched against types.Phase.Mix entries.
const (
	TxnNewOrder   = "new_order"
	TxnPayment    = "payment"
	TxnOrderStat  = "order_status"
	TxnDelivery   = "delivery"
	TxnStockLevel = "stock_level"
)

// Executor implements worker.Executor for the TPC-C transaction mix.
type Executor struct {
	WarehouseCount  int
	DistrictPerWare int
}

// New returns an Executor scaled to warehouseCount warehouses, each
// with the standard 10 districts.
func New(warehouseCount int) *Executor {
	if warehouseCount <= 0 {
		warehouseCount = 1
	}
	return &Executor{WarehouseCount: warehouseCount, DistrictPerWare: 10}
}

// Execute dispatches txnType to the matching transaction body. params
// is accepted for interface compatibility with worker.Executor but
// unused here: every TPC-C transaction picks its own random inputs,
// exactly as the teacher's generator did.
func (e *Executor) Execute(ctx context.Context, tx database.Tx, txnType string, rng *rand.Rand, params types.Params) error {
	switch txnType {
	case TxnNewOrder:
		return e.newOrder(ctx, tx, rng)
	case TxnPayment:
		return e.payment(ctx, tx, rng)
	case TxnOrderStat:
		return e.orderStatus(ctx, tx, rng)
	case TxnDelivery:
		return e.delivery(ctx, tx, rng)
	case TxnStockLevel:
		return e.stockLevel(ctx, tx, rng)
	default:
		return fmt.Errorf("tpcc: unknown transaction type %q", txnType)
	}
}

// randWarehouse and randDistrict pick a uniformly random warehouse/
// district pair within the configured scale.
func (e *Executor) randWarehouse(rng *rand.Rand) int {
	return rng.Intn(e.WarehouseCount) + 1
}

func (e *Executor) randDistrict(rng *rand.Rand) int {
	return rng.Intn(e.DistrictPerWare) + 1
}
