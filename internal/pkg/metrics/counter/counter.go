// Package counter keeps cheap operational tallies of settlement activity in
// Redis. The tallies are advisory (dashboards, sanity checks); the ledger
// itself stays the source of truth.
package counter

import (
	"context"
	"strconv"

	"github.com/ManuelReschke/SplitFund/internal/pkg/cache"
)

const (
	settledPaymentsKey  = "settlement:counters:settled_payments"
	distributedPenceKey = "settlement:counters:distributed_pence"
)

// AddSettlement records one completed settlement and the amount it
// distributed.
func AddSettlement(amount int64) error {
	ctx := context.Background()
	rdb := cache.GetClient()
	if err := rdb.Incr(ctx, settledPaymentsKey).Err(); err != nil {
		return err
	}
	return rdb.IncrBy(ctx, distributedPenceKey, amount).Err()
}

// Snapshot returns the current settled-payment count and total distributed
// pence. Missing keys read as zero.
func Snapshot() (int64, int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	settled, err := readCounter(rdb.Get(ctx, settledPaymentsKey).Result())
	if err != nil {
		return 0, 0, err
	}
	distributed, err := readCounter(rdb.Get(ctx, distributedPenceKey).Result())
	if err != nil {
		return 0, 0, err
	}
	return settled, distributed, nil
}

func readCounter(raw string, err error) (int64, error) {
	if err != nil {
		if cache.IsMiss(err) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
