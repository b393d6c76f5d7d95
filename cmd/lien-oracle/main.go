// Command lien-oracle signs collateral price attestations with a keystore
// key. The printed signature is what borrowers submit alongside their borrow
// request.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"lienchain/crypto"
	"lienchain/native/oracle"
)

func main() {
	keystorePath := flag.String("keystore", "", "path to the oracle keystore file")
	passphraseEnv := flag.String("passphrase-env", "LIEN_ORACLE_PASSPHRASE", "environment variable holding the keystore passphrase")
	chainID := flag.Uint64("chain-id", 1, "chain identifier bound into the attestation")
	collection := flag.String("collection", "", "collateral collection address (bech32)")
	price := flag.String("price", "", "attested floor price in wei")
	deadline := flag.Int64("deadline", 0, "unix timestamp after which the attestation is invalid")
	flag.Parse()

	if err := run(*keystorePath, *passphraseEnv, *chainID, *collection, *price, *deadline); err != nil {
		fmt.Fprintln(os.Stderr, "lien-oracle:", err)
		os.Exit(1)
	}
}

func run(keystorePath, passphraseEnv string, chainID uint64, collection, price string, deadline int64) error {
	if strings.TrimSpace(keystorePath) == "" {
		return fmt.Errorf("--keystore is required")
	}
	key, err := crypto.LoadFromKeystore(keystorePath, os.Getenv(passphraseEnv))
	if err != nil {
		return fmt.Errorf("load keystore: %w", err)
	}

	collectionAddr, err := crypto.DecodeAddress(strings.TrimSpace(collection))
	if err != nil {
		return fmt.Errorf("decode collection: %w", err)
	}
	var collectionBytes [20]byte
	copy(collectionBytes[:], collectionAddr.Bytes())

	priceWei, ok := new(big.Int).SetString(strings.TrimSpace(price), 10)
	if !ok || priceWei.Sign() <= 0 {
		return fmt.Errorf("invalid price %q", price)
	}

	att, err := oracle.NewAttestation(chainID, collectionBytes, priceWei, deadline, nil)
	if err != nil {
		return err
	}
	if err := att.Sign(key); err != nil {
		return fmt.Errorf("sign attestation: %w", err)
	}

	fmt.Printf("signer:    %s\n", key.PubKey().Address().String())
	fmt.Printf("price:     %s\n", priceWei.String())
	fmt.Printf("deadline:  %d\n", deadline)
	fmt.Printf("signature: %s\n", hex.EncodeToString(att.Signature))
	return nil
}
