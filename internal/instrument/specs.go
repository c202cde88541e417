package instrument

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SpecFile overrides per-symbol contract sizes, e.g.:
//
//	symbols:
//	  XAUUSD:
//	    contract_size: "100"
//	  AAPL:
//	    contract_size: "1"
type SpecFile struct {
	Symbols map[string]SymbolSpec `yaml:"symbols"`
}

type SymbolSpec struct {
	ContractSize string `yaml:"contract_size"`
}

var overrides = struct {
	mu    sync.RWMutex
	sizes map[string]decimal.Decimal
}{
	sizes: map[string]decimal.Decimal{},
}

// LoadSpecs reads a YAML spec file and installs its per-symbol contract size
// overrides. Invalid entries are rejected as a whole; the previous overrides
// stay in place on error.
func LoadSpecs(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read instrument specs: %w", err)
	}
	var f SpecFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse instrument specs: %w", err)
	}
	sizes := make(map[string]decimal.Decimal, len(f.Symbols))
	for symbol, spec := range f.Symbols {
		size, err := decimal.NewFromString(strings.TrimSpace(spec.ContractSize))
		if err != nil || !size.GreaterThan(decimal.Zero) {
			return fmt.Errorf("instrument specs: bad contract_size for %s", symbol)
		}
		sizes[strings.ToUpper(strings.TrimSpace(symbol))] = size
	}
	overrides.mu.Lock()
	overrides.sizes = sizes
	overrides.mu.Unlock()
	return nil
}

func overrideSize(symbol string) (decimal.Decimal, bool) {
	overrides.mu.RLock()
	size, ok := overrides.sizes[symbol]
	overrides.mu.RUnlock()
	return size, ok
}
