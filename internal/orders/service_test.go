package orders

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSufficientMarginBoundary(t *testing.T) {
	free := decimal.RequireFromString("1000")

	// An order whose requirement equals the free margin exactly is accepted.
	if !sufficientMargin(free, free) {
		t.Fatal("requirement equal to free margin must be accepted")
	}
	if !sufficientMargin(decimal.RequireFromString("999.99999999"), free) {
		t.Fatal("requirement below free margin must be accepted")
	}

	over := free.Add(decimal.RequireFromString("0.00000001"))
	if sufficientMargin(over, free) {
		t.Fatalf("requirement %s must not fit into free margin %s", over, free)
	}

	if !sufficientMargin(decimal.Zero, decimal.Zero) {
		t.Fatal("zero requirement against zero free margin must be accepted")
	}
}
