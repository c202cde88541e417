package types

type OrderSide string

type OrderStatus string

type BalanceMode string

type Category string

type JournalOp string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

const (
	BalanceModeLive BalanceMode = "live"
	BalanceModeDemo BalanceMode = "demo"
)

const (
	CategoryForex     Category = "forex"
	CategoryCrypto    Category = "crypto"
	CategoryCommodity Category = "commodity"
	CategoryIndex     Category = "index"
	CategoryEquity    Category = "equity"
)

const (
	JournalOpMarginReserve JournalOp = "margin_reserve"
	JournalOpMarginRelease JournalOp = "margin_release"
	JournalOpProfitRealize JournalOp = "profit_realize"
	JournalOpReset         JournalOp = "reset"
	JournalOpLeverage      JournalOp = "leverage_change"
)

func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

func (m BalanceMode) Valid() bool {
	return m == BalanceModeLive || m == BalanceModeDemo
}
