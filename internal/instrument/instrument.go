// Package instrument maps traded symbols to an asset category, a contract
// size and a leverage policy. All lookups are pure and deterministic.
package instrument

import (
	"strings"

	"marginfx/internal/types"

	"github.com/shopspring/decimal"
)

// Policy bounds the per-account leverage for one asset category.
type Policy struct {
	Min     int
	Max     int
	Default int
}

var fiatCodes = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CHF": {}, "AUD": {},
	"NZD": {}, "CAD": {}, "SEK": {}, "NOK": {}, "DKK": {}, "SGD": {},
	"HKD": {}, "MXN": {}, "ZAR": {}, "TRY": {}, "PLN": {}, "CZK": {},
	"HUF": {}, "CNH": {}, "UZS": {},
}

var cryptoTickers = []string{
	"BTC", "ETH", "XRP", "LTC", "SOL", "ADA", "DOGE", "DOT", "BNB", "AVAX",
}

var indexTickers = []string{
	"US30", "US500", "SPX500", "NAS100", "USTEC", "GER40", "DAX",
	"UK100", "FTSE", "JPN225", "NIK225", "AUS200", "HK50", "FRA40", "EU50",
}

// commodityKeywords maps the recognized commodity substrings to contract
// sizes (metals in ounces per lot, energy in barrels/MMBtu per lot).
var commodityKeywords = []struct {
	keyword string
	size    int64
}{
	{"XAU", 100},
	{"GOLD", 100},
	{"XAG", 5000},
	{"SILVER", 5000},
	{"WTI", 1000},
	{"BRENT", 1000},
	{"OIL", 1000},
	{"GAS", 10000},
}

var policies = map[types.Category]Policy{
	types.CategoryForex:     {Min: 1, Max: 1000, Default: 100},
	types.CategoryCrypto:    {Min: 1, Max: 10, Default: 5},
	types.CategoryCommodity: {Min: 1, Max: 500, Default: 100},
	types.CategoryIndex:     {Min: 1, Max: 200, Default: 100},
	types.CategoryEquity:    {Min: 1, Max: 20, Default: 10},
}

// fallbackPolicy is the conservative entry used for unrecognized categories.
var fallbackPolicy = Policy{Min: 1, Max: 20, Default: 10}

var categorySizes = map[types.Category]int64{
	types.CategoryForex:  100000,
	types.CategoryCrypto: 1,
	types.CategoryIndex:  1,
	types.CategoryEquity: 100,
}

// Classify infers the asset category of a symbol. A 6-letter code whose two
// halves are both fiat currencies is a currency pair; a known crypto ticker
// substring wins next, then a commodity keyword, then a known index ticker.
// Anything else falls back to equity.
func Classify(symbol string) types.Category {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if isCurrencyPair(s) {
		return types.CategoryForex
	}
	for _, t := range cryptoTickers {
		if strings.Contains(s, t) {
			return types.CategoryCrypto
		}
	}
	for _, kw := range commodityKeywords {
		if strings.Contains(s, kw.keyword) {
			return types.CategoryCommodity
		}
	}
	for _, t := range indexTickers {
		if strings.Contains(s, t) {
			return types.CategoryIndex
		}
	}
	return types.CategoryEquity
}

func isCurrencyPair(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	_, baseOK := fiatCodes[s[:3]]
	_, quoteOK := fiatCodes[s[3:]]
	return baseOK && quoteOK
}

// ContractSize returns the units per one lot of the symbol. Per-symbol
// overrides loaded from a spec file take precedence over the category tables.
func ContractSize(symbol string, category types.Category) decimal.Decimal {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if size, ok := overrideSize(s); ok {
		return size
	}
	if category == types.CategoryCommodity {
		for _, kw := range commodityKeywords {
			if strings.Contains(s, kw.keyword) {
				return decimal.NewFromInt(kw.size)
			}
		}
		return decimal.NewFromInt(100)
	}
	if size, ok := categorySizes[category]; ok {
		return decimal.NewFromInt(size)
	}
	return decimal.NewFromInt(1)
}

// LeveragePolicy returns the leverage bounds for a category, falling back to
// the conservative default entry for unrecognized categories.
func LeveragePolicy(category types.Category) Policy {
	if p, ok := policies[category]; ok {
		return p
	}
	return fallbackPolicy
}

// EffectiveLeverage resolves the leverage the margin formula uses for one
// order: the category default when the account runs auto leverage, otherwise
// the account leverage clamped into the category policy bounds.
func EffectiveLeverage(accountLeverage int, autoLeverage bool, category types.Category) int {
	p := LeveragePolicy(category)
	if autoLeverage {
		return p.Default
	}
	if accountLeverage < p.Min {
		return p.Min
	}
	if accountLeverage > p.Max {
		return p.Max
	}
	return accountLeverage
}
