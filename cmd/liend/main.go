package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lienchain/config"
	"lienchain/crypto"
	"lienchain/native/auction"
	"lienchain/native/lending"
	"lienchain/native/oracle"
	"lienchain/observability/logging"
	"lienchain/observability/metrics"
	"lienchain/state"
	"lienchain/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the liend configuration file")
	flag.Parse()

	logger := logging.Setup("liend", os.Getenv("LIEN_ENV"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("failed to open state database", "dir", cfg.DataDir, "err", err)
		os.Exit(1)
	}
	defer db.Close()
	store := state.NewStore(db)

	owner, err := requireAddress(cfg.OwnerAddress)
	if err != nil {
		logger.Error("invalid OwnerAddress", "err", err)
		os.Exit(1)
	}
	oracleAddr, err := requireAddress(cfg.OracleAddress)
	if err != nil {
		logger.Error("invalid OracleAddress", "err", err)
		os.Exit(1)
	}
	collection, err := requireAddress(cfg.CollectionAddress)
	if err != nil {
		logger.Error("invalid CollectionAddress", "err", err)
		os.Exit(1)
	}

	maxPrice, _ := config.WeiValue(cfg.MaxPriceWei)
	verifier := oracle.NewVerifier(oracleAddr, cfg.ChainID, collection, maxPrice)

	minRate, _ := config.WeiValue(cfg.Lending.MinInterestPerSecond)
	maxVariable, _ := config.WeiValue(cfg.Lending.MaxVariablePerSecond)
	dailyCap, _ := config.WeiValue(cfg.Lending.DailyBorrowCapWei)

	emitter := metrics.NewEmitter(nil)

	lendingVault := moduleVault("lending")
	auctionVault := moduleVault("auction")

	pool := lending.NewEngine(owner, lendingVault, lending.InterestParams{
		MinInterestPerSecond: minRate,
		MaxVariablePerSecond: maxVariable,
		LoanToValueBps:       cfg.Lending.LoanToValueBps,
	})
	pool.SetState(store)
	pool.SetCustody(store)
	pool.SetVerifier(verifier)
	pool.SetEmitter(emitter)
	if err := pool.SetMaxLoanLength(owner, cfg.Lending.MaxLoanLengthSeconds); err != nil {
		logger.Error("failed to configure loan length", "err", err)
		os.Exit(1)
	}
	if err := pool.SetDailyCap(owner, dailyCap); err != nil {
		logger.Error("failed to configure daily cap", "err", err)
		os.Exit(1)
	}
	if strings.TrimSpace(cfg.LiquidatorAddress) != "" {
		liquidator, err := requireAddress(cfg.LiquidatorAddress)
		if err != nil {
			logger.Error("invalid LiquidatorAddress", "err", err)
			os.Exit(1)
		}
		if err := pool.SetLiquidator(owner, liquidator); err != nil {
			logger.Error("failed to configure liquidator", "err", err)
			os.Exit(1)
		}
	}

	feeRecipient := owner
	if strings.TrimSpace(cfg.Auction.FeeRecipient) != "" {
		feeRecipient, err = requireAddress(cfg.Auction.FeeRecipient)
		if err != nil {
			logger.Error("invalid FeeRecipient", "err", err)
			os.Exit(1)
		}
	}
	house := auction.NewEngine(owner, auctionVault, feeRecipient, cfg.Auction.FeeBps)
	house.SetState(store)
	house.SetCustody(store)
	house.SetPoolOwnership(pool)
	house.SetEmitter(emitter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		book, err := pool.Book()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":        "ok",
			"totalBorrowed": book.TotalBorrowed.String(),
			"windowAmount":  book.WindowAmount.String(),
		})
	})

	logger.Info("liend started",
		"chainId", cfg.ChainID,
		"metrics", cfg.MetricsAddress,
		"dataDir", cfg.DataDir,
		"lendingVault", crypto.NewAddress(crypto.VaultPrefix, lendingVault[:]).String(),
		"auctionVault", crypto.NewAddress(crypto.VaultPrefix, auctionVault[:]).String(),
	)
	if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
		logger.Error("metrics listener stopped", "err", err)
		os.Exit(1)
	}
}

func requireAddress(value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

// moduleVault derives a deterministic treasury address for a module so that
// custody and liquidity survive restarts without key material.
func moduleVault(module string) [20]byte {
	var out [20]byte
	digest := ethcrypto.Keccak256([]byte("lienchain/vault/" + module))
	copy(out[:], digest[12:])
	return out
}
