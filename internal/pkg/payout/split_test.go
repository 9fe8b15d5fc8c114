package payout

import (
	"reflect"
	"testing"
)

func TestSplitEqual(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		n      int
		want   []int64
	}{
		{name: "10000 pence across 3", amount: 10000, n: 3, want: []int64{3334, 3333, 3333}},
		{name: "100 pence across 4", amount: 100, n: 4, want: []int64{25, 25, 25, 25}},
		{name: "single recipient", amount: 5000, n: 1, want: []int64{5000}},
		{name: "amount smaller than n", amount: 2, n: 3, want: []int64{1, 1, 0}},
		{name: "zero amount", amount: 0, n: 3, want: []int64{0, 0, 0}},
		{name: "remainder spread over first shares", amount: 7, n: 5, want: []int64{2, 2, 1, 1, 1}},
	}

	for _, tt := range tests {
		if got := SplitEqual(tt.amount, tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: SplitEqual(%d, %d) = %v, want %v", tt.name, tt.amount, tt.n, got, tt.want)
		}
	}
}

func TestSplitEqualConservation(t *testing.T) {
	for amount := int64(0); amount <= 1000; amount += 37 {
		for n := 1; n <= 12; n++ {
			shares := SplitEqual(amount, n)
			if got := Sum(shares); got != amount {
				t.Fatalf("SplitEqual(%d, %d) sums to %d, want %d", amount, n, got, amount)
			}
		}
	}
}

func TestSplitEqualSpreadBound(t *testing.T) {
	for amount := int64(0); amount <= 1000; amount += 13 {
		for n := 1; n <= 9; n++ {
			shares := SplitEqual(amount, n)
			minShare, maxShare := shares[0], shares[0]
			for _, s := range shares {
				if s < minShare {
					minShare = s
				}
				if s > maxShare {
					maxShare = s
				}
			}
			if maxShare-minShare > 1 {
				t.Fatalf("SplitEqual(%d, %d) spread %d exceeds 1: %v", amount, n, maxShare-minShare, shares)
			}
		}
	}
}

func TestSplitEqualDeterminism(t *testing.T) {
	first := SplitEqual(9999, 7)
	second := SplitEqual(9999, 7)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output for identical input, got %v and %v", first, second)
	}
}

func TestSplitEqualPanicsOnZeroRecipients(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for n = 0")
		}
	}()
	SplitEqual(100, 0)
}

func TestSplitEqualPanicsOnNegativeAmount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for negative amount")
		}
	}()
	SplitEqual(-1, 2)
}

func TestAllocate(t *testing.T) {
	allocations := Allocate(10000, []uint{7, 3, 9})

	want := []Allocation{
		{RecipientID: 7, Amount: 3334},
		{RecipientID: 3, Amount: 3333},
		{RecipientID: 9, Amount: 3333},
	}
	if !reflect.DeepEqual(allocations, want) {
		t.Fatalf("Allocate = %v, want %v", allocations, want)
	}
}
