package margin

import (
	"testing"

	"marginfx/internal/model"
	"marginfx/internal/types"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRequiredMargin(t *testing.T) {
	// 1 lot EURUSD at 1.10 with 1:100 leverage freezes 1100.
	got, err := RequiredMargin(d("1"), d("100000"), d("1.10"), 100)
	if err != nil {
		t.Fatalf("RequiredMargin error: %v", err)
	}
	if !got.Equal(d("1100")) {
		t.Fatalf("margin got=%s want=1100", got)
	}

	got, err = RequiredMargin(d("0.1"), d("100000"), d("1.10"), 100)
	if err != nil {
		t.Fatalf("RequiredMargin error: %v", err)
	}
	if !got.Equal(d("110")) {
		t.Fatalf("margin got=%s want=110", got)
	}

	if _, err := RequiredMargin(d("1"), d("100000"), d("1.10"), 0); err == nil {
		t.Fatal("expected error for zero leverage")
	}
}

func TestUnrealizedProfit(t *testing.T) {
	// Buy 1 lot at 1.10, bid moves to 1.105: +500.
	got := UnrealizedProfit(types.OrderSideBuy, d("1.10"), d("1.105"), d("1"), d("100000"))
	if !got.Equal(d("500")) {
		t.Fatalf("buy profit got=%s want=500", got)
	}

	// The same move is a loss for the sell side.
	got = UnrealizedProfit(types.OrderSideSell, d("1.10"), d("1.105"), d("1"), d("100000"))
	if !got.Equal(d("-500")) {
		t.Fatalf("sell profit got=%s want=-500", got)
	}

	// Flat price means zero either way.
	got = UnrealizedProfit(types.OrderSideBuy, d("1.10"), d("1.10"), d("1"), d("100000"))
	if !got.IsZero() {
		t.Fatalf("flat profit got=%s want=0", got)
	}
}

func TestMarkPrice(t *testing.T) {
	q := Quote{Bid: d("1.1000"), Ask: d("1.1002")}
	if got := MarkPrice(types.OrderSideBuy, q); !got.Equal(q.Bid) {
		t.Fatalf("buy marks at bid, got %s", got)
	}
	if got := MarkPrice(types.OrderSideSell, q); !got.Equal(q.Ask) {
		t.Fatalf("sell marks at ask, got %s", got)
	}
}

func fixedQuotes(m map[string]Quote) QuoteFunc {
	return func(symbol string) (Quote, bool) {
		q, ok := m[symbol]
		return q, ok
	}
}

func forexSize(string) decimal.Decimal { return d("100000") }

func TestRecompute(t *testing.T) {
	bal := model.Balance{Balance: d("10000")}
	orders := []model.Order{
		{
			Symbol:       "EURUSD",
			Side:         types.OrderSideBuy,
			Volume:       d("1"),
			EntryPrice:   d("1.10"),
			CurrentPrice: d("1.10"),
			Margin:       d("1100"),
		},
	}
	quotes := fixedQuotes(map[string]Quote{
		"EURUSD": {Bid: d("1.105"), Ask: d("1.1052")},
	})

	got, gotOrders := Recompute(bal, orders, quotes, forexSize)
	if !got.Equity.Equal(d("10500")) {
		t.Fatalf("equity got=%s want=10500", got.Equity)
	}
	if !got.Margin.Equal(d("1100")) {
		t.Fatalf("margin got=%s want=1100", got.Margin)
	}
	if !got.FreeMargin.Equal(d("9400")) {
		t.Fatalf("freeMargin got=%s want=9400", got.FreeMargin)
	}
	// 10500/1100*100
	wantLevel := d("10500").Div(d("1100")).Mul(d("100"))
	if !got.MarginLevel.Equal(wantLevel) {
		t.Fatalf("marginLevel got=%s want=%s", got.MarginLevel, wantLevel)
	}
	if !gotOrders[0].CurrentPrice.Equal(d("1.105")) {
		t.Fatalf("currentPrice got=%s want=1.105", gotOrders[0].CurrentPrice)
	}
	if !gotOrders[0].Profit.Equal(d("500")) {
		t.Fatalf("profit got=%s want=500", gotOrders[0].Profit)
	}

	// Inputs must not be mutated.
	if !orders[0].CurrentPrice.Equal(d("1.10")) || !bal.Equity.IsZero() {
		t.Fatal("Recompute mutated its arguments")
	}

	// Idempotent for unchanged quotes.
	again, _ := Recompute(got, gotOrders, quotes, forexSize)
	if !again.Equity.Equal(got.Equity) || !again.FreeMargin.Equal(got.FreeMargin) || !again.MarginLevel.Equal(got.MarginLevel) {
		t.Fatal("Recompute is not idempotent for unchanged inputs")
	}
}

func TestRecomputeMissingQuoteKeepsPrice(t *testing.T) {
	bal := model.Balance{Balance: d("10000")}
	orders := []model.Order{
		{
			Symbol:       "EURUSD",
			Side:         types.OrderSideBuy,
			Volume:       d("1"),
			EntryPrice:   d("1.10"),
			CurrentPrice: d("1.104"),
			Margin:       d("1100"),
		},
	}

	got, gotOrders := Recompute(bal, orders, fixedQuotes(nil), forexSize)
	if !gotOrders[0].CurrentPrice.Equal(d("1.104")) {
		t.Fatalf("missing quote must keep the last price, got %s", gotOrders[0].CurrentPrice)
	}
	if !got.Equity.Equal(d("10400")) {
		t.Fatalf("equity got=%s want=10400", got.Equity)
	}
}

func TestRecomputeNoOpenOrders(t *testing.T) {
	bal := model.Balance{Balance: d("10000"), Margin: d("1100"), MarginLevel: d("954")}
	got, _ := Recompute(bal, nil, fixedQuotes(nil), forexSize)
	if !got.Equity.Equal(d("10000")) {
		t.Fatalf("equity got=%s want=10000", got.Equity)
	}
	if !got.Margin.IsZero() {
		t.Fatalf("margin got=%s want=0", got.Margin)
	}
	if !got.FreeMargin.Equal(d("10000")) {
		t.Fatalf("freeMargin got=%s want=10000", got.FreeMargin)
	}
	// Zero reserved margin reports level 0, not infinity.
	if !got.MarginLevel.IsZero() {
		t.Fatalf("marginLevel got=%s want=0", got.MarginLevel)
	}
}
