package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"lienchain/crypto"
)

// Config captures the runtime configuration for the lending pool and the
// liquidation auction house. Wei-denominated amounts are decimal strings so
// the file stays exact for values beyond float range.
type Config struct {
	DataDir        string `toml:"DataDir"`
	MetricsAddress string `toml:"MetricsAddress"`

	ChainID           uint64 `toml:"ChainID"`
	OwnerAddress      string `toml:"OwnerAddress"`
	LiquidatorAddress string `toml:"LiquidatorAddress"`
	OracleAddress     string `toml:"OracleAddress"`
	CollectionAddress string `toml:"CollectionAddress"`
	MaxPriceWei       string `toml:"MaxPriceWei"`

	Lending LendingConfig `toml:"lending"`
	Auction AuctionConfig `toml:"auction"`
}

// LendingConfig groups the owner-settable lending pool parameters.
type LendingConfig struct {
	MinInterestPerSecond string `toml:"MinInterestPerSecond"`
	MaxVariablePerSecond string `toml:"MaxVariablePerSecond"`
	LoanToValueBps       uint64 `toml:"LoanToValueBps"`
	MaxLoanLengthSeconds int64  `toml:"MaxLoanLengthSeconds"`
	DailyBorrowCapWei    string `toml:"DailyBorrowCapWei"`
}

// AuctionConfig groups the auction house parameters.
type AuctionConfig struct {
	FeeBps       uint64 `toml:"FeeBps"`
	FeeRecipient string `toml:"FeeRecipient"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./lienchain-data"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = "localhost:9301"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 1
	}
	if cfg.Lending.LoanToValueBps == 0 {
		cfg.Lending.LoanToValueBps = 5_000
	}
	if cfg.Lending.MaxLoanLengthSeconds == 0 {
		cfg.Lending.MaxLoanLengthSeconds = 14 * 86_400
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects malformed values before any engine is constructed.
func (c *Config) Validate() error {
	if c.Auction.FeeBps > 5_000 {
		return fmt.Errorf("config: auction FeeBps %d above 5000", c.Auction.FeeBps)
	}
	if c.Lending.LoanToValueBps == 0 || c.Lending.LoanToValueBps > 10_000 {
		return fmt.Errorf("config: LoanToValueBps %d outside (0, 10000]", c.Lending.LoanToValueBps)
	}
	if c.Lending.MaxLoanLengthSeconds <= 0 {
		return fmt.Errorf("config: MaxLoanLengthSeconds must be positive")
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"MaxPriceWei", c.MaxPriceWei},
		{"lending.MinInterestPerSecond", c.Lending.MinInterestPerSecond},
		{"lending.MaxVariablePerSecond", c.Lending.MaxVariablePerSecond},
		{"lending.DailyBorrowCapWei", c.Lending.DailyBorrowCapWei},
	} {
		if _, err := parseWei(field.value); err != nil {
			return fmt.Errorf("config: %s: %w", field.name, err)
		}
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"OwnerAddress", c.OwnerAddress},
		{"LiquidatorAddress", c.LiquidatorAddress},
		{"OracleAddress", c.OracleAddress},
		{"auction.FeeRecipient", c.Auction.FeeRecipient},
	} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(field.value); err != nil {
			return fmt.Errorf("config: %s: %w", field.name, err)
		}
	}
	return nil
}

// WeiValue parses a decimal wei string, returning zero for empty values.
func WeiValue(value string) (*big.Int, error) {
	return parseWei(value)
}

func parseWei(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid wei amount %q", value)
	}
	return parsed, nil
}
