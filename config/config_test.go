package config

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcutil/bech32"

	"lienchain/crypto"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PubKey().Address().String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 1 {
		t.Fatalf("default chain id: got %d", cfg.ChainID)
	}
	if cfg.Lending.LoanToValueBps != 5_000 {
		t.Fatalf("default LTV: got %d", cfg.Lending.LoanToValueBps)
	}
	if cfg.Lending.MaxLoanLengthSeconds != 14*86_400 {
		t.Fatalf("default loan length: got %d", cfg.Lending.MaxLoanLengthSeconds)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
}

func TestLoadParsesAddressesAndAmounts(t *testing.T) {
	owner := testAddress(t)
	path := writeConfig(t, strings.Join([]string{
		`ChainID = 7`,
		`OwnerAddress = "` + owner + `"`,
		`MaxPriceWei = "2000000000000000000"`,
		``,
		`[lending]`,
		`MinInterestPerSecond = "31709791983"`,
		`LoanToValueBps = 2500`,
		`DailyBorrowCapWei = "50000000000000000000"`,
		``,
		`[auction]`,
		`FeeBps = 250`,
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 7 {
		t.Fatalf("chain id: got %d", cfg.ChainID)
	}
	if cfg.OwnerAddress != owner {
		t.Fatalf("owner: got %q", cfg.OwnerAddress)
	}
	maxPrice, err := WeiValue(cfg.MaxPriceWei)
	if err != nil {
		t.Fatalf("max price: %v", err)
	}
	want, _ := new(big.Int).SetString("2000000000000000000", 10)
	if maxPrice.Cmp(want) != 0 {
		t.Fatalf("max price: got %s", maxPrice)
	}
	if cfg.Lending.LoanToValueBps != 2_500 {
		t.Fatalf("LTV: got %d", cfg.Lending.LoanToValueBps)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	// Valid bech32, but the payload is 10 bytes instead of 20.
	conv, err := bech32.ConvertBits(make([]byte, 10), 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	shortAddr, err := bech32.Encode(string(crypto.LienPrefix), conv)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := []struct {
		name string
		body string
	}{
		{"bad address", `OwnerAddress = "not-bech32"`},
		{"short address payload", `OwnerAddress = "` + shortAddr + `"`},
		{"negative wei", `MaxPriceWei = "-5"`},
		{"non-numeric wei", `MaxPriceWei = "1.5e18"`},
		{"fee above cap", "[auction]\nFeeBps = 5001"},
		{"ltv above cap", "[lending]\nLoanToValueBps = 10001"},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.body)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestWeiValueEmptyIsZero(t *testing.T) {
	value, err := WeiValue("  ")
	if err != nil {
		t.Fatalf("wei value: %v", err)
	}
	if value.Sign() != 0 {
		t.Fatalf("empty wei: got %s", value)
	}
}
