package instrument

import (
	"testing"

	"marginfx/internal/types"

	"github.com/shopspring/decimal"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		symbol string
		want   types.Category
	}{
		{"EURUSD", types.CategoryForex},
		{"eurusd", types.CategoryForex},
		{"USDJPY", types.CategoryForex},
		{"BTCUSD", types.CategoryCrypto},
		{"ETHUSDT", types.CategoryCrypto},
		{"XAUUSD", types.CategoryCommodity},
		{"GOLD", types.CategoryCommodity},
		{"XAGUSD", types.CategoryCommodity},
		{"WTIUSD", types.CategoryCommodity},
		{"US500", types.CategoryIndex},
		{"NAS100", types.CategoryIndex},
		{"AAPL", types.CategoryEquity},
		{"TSLA", types.CategoryEquity},
		// Six letters but not two fiat halves.
		{"ABCDEF", types.CategoryEquity},
	}
	for _, tc := range cases {
		if got := Classify(tc.symbol); got != tc.want {
			t.Errorf("Classify(%q) got=%s want=%s", tc.symbol, got, tc.want)
		}
	}
}

func TestContractSize(t *testing.T) {
	cases := []struct {
		symbol string
		want   int64
	}{
		{"EURUSD", 100000},
		{"BTCUSD", 1},
		{"XAUUSD", 100},
		{"XAGUSD", 5000},
		{"WTIUSD", 1000},
		{"GASUSD", 10000},
		{"US500", 1},
		{"AAPL", 100},
	}
	for _, tc := range cases {
		got := ContractSize(tc.symbol, Classify(tc.symbol))
		if !got.Equal(decimal.NewFromInt(tc.want)) {
			t.Errorf("ContractSize(%q) got=%s want=%d", tc.symbol, got, tc.want)
		}
	}
}

func TestEffectiveLeverage(t *testing.T) {
	// Auto leverage takes the category default regardless of the account value.
	if got := EffectiveLeverage(500, true, types.CategoryCrypto); got != 5 {
		t.Fatalf("auto crypto got=%d want=5", got)
	}
	if got := EffectiveLeverage(3, true, types.CategoryForex); got != 100 {
		t.Fatalf("auto forex got=%d want=100", got)
	}

	// Manual leverage is clamped into the category bounds.
	if got := EffectiveLeverage(500, false, types.CategoryCrypto); got != 10 {
		t.Fatalf("clamped crypto got=%d want=10", got)
	}
	if got := EffectiveLeverage(500, false, types.CategoryForex); got != 500 {
		t.Fatalf("in-range forex got=%d want=500", got)
	}
	if got := EffectiveLeverage(0, false, types.CategoryForex); got != 1 {
		t.Fatalf("clamped low got=%d want=1", got)
	}
}

func TestLeveragePolicyFallback(t *testing.T) {
	p := LeveragePolicy(types.Category("unknown"))
	if p != fallbackPolicy {
		t.Fatalf("unknown category policy got=%+v want=%+v", p, fallbackPolicy)
	}
}
