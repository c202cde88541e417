package instrument

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func writeSpecFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "specs.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func resetOverrides() {
	overrides.mu.Lock()
	overrides.sizes = map[string]decimal.Decimal{}
	overrides.mu.Unlock()
}

func TestLoadSpecs(t *testing.T) {
	defer resetOverrides()
	path := writeSpecFile(t, `
symbols:
  xauusd:
    contract_size: "50"
  AAPL:
    contract_size: "1"
`)
	if err := LoadSpecs(path); err != nil {
		t.Fatalf("LoadSpecs error: %v", err)
	}

	// Override beats the commodity keyword table, keyed case-insensitively.
	got := ContractSize("XAUUSD", Classify("XAUUSD"))
	if !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("override size got=%s want=50", got)
	}
	got = ContractSize("AAPL", Classify("AAPL"))
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("override size got=%s want=1", got)
	}
}

func TestLoadSpecsRejectsBadSize(t *testing.T) {
	defer resetOverrides()
	good := writeSpecFile(t, "symbols:\n  EURUSD:\n    contract_size: \"100000\"\n")
	if err := LoadSpecs(good); err != nil {
		t.Fatalf("LoadSpecs error: %v", err)
	}

	bad := writeSpecFile(t, "symbols:\n  EURUSD:\n    contract_size: \"-5\"\n")
	if err := LoadSpecs(bad); err == nil {
		t.Fatal("expected error for negative contract_size")
	}

	// A failed load keeps the previous overrides.
	got := ContractSize("EURUSD", Classify("EURUSD"))
	if !got.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("previous override lost, got %s", got)
	}
}
