// Package payout implements the equal-split arithmetic used when a payment
// is distributed among recipients. All amounts are integer minor currency
// units (pence); there is no floating point anywhere in the money path.
package payout

// SplitEqual divides amount into n non-negative shares that sum exactly to
// amount. Every share gets amount/n; the first amount%n shares get one
// extra unit, so no two shares differ by more than one unit. Callers decide
// the recipient order and with it who absorbs the remainder.
//
// n must be positive and amount non-negative; violating either is a caller
// bug, not a runtime condition, and panics.
func SplitEqual(amount int64, n int) []int64 {
	if n <= 0 {
		panic("payout: split requires at least one recipient")
	}
	if amount < 0 {
		panic("payout: split amount must be non-negative")
	}

	base := amount / int64(n)
	remainder := amount % int64(n)

	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares
}

// Allocation pairs one recipient with the share assigned to them.
type Allocation struct {
	RecipientID uint
	Amount      int64
}

// Allocate maps SplitEqual's shares onto the given recipients, preserving
// their order. The recipient order therefore fixes the remainder placement.
func Allocate(amount int64, recipientIDs []uint) []Allocation {
	shares := SplitEqual(amount, len(recipientIDs))
	allocations := make([]Allocation, len(recipientIDs))
	for i, id := range recipientIDs {
		allocations[i] = Allocation{RecipientID: id, Amount: shares[i]}
	}
	return allocations
}

// Sum returns the total of the given shares. Used by the settlement service
// to verify conservation before committing a split batch.
func Sum(shares []int64) int64 {
	var total int64
	for _, s := range shares {
		total += s
	}
	return total
}
