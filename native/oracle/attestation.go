package oracle

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	repocrypto "lienchain/crypto"
)

// PriceDomainV1 defines the domain separator used when signing collateral
// price attestations. Signatures over any other domain never verify here.
const PriceDomainV1 = "LIEN_ORACLE_PRICE_V1"

// Attestation captures a signed floor-price observation for a collateral
// collection. Every borrow must present a fresh attestation; the deadline
// and chain identifier prevent stale and cross-chain replay.
type Attestation struct {
	Domain     string
	ChainID    uint64
	Collection [20]byte
	Price      *big.Int
	Deadline   int64
	Signature  []byte
}

// NewAttestation constructs an attestation from the raw submission payload.
func NewAttestation(chainID uint64, collection [20]byte, price *big.Int, deadline int64, signature []byte) (*Attestation, error) {
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("attestation: price must be positive")
	}
	if deadline <= 0 {
		return nil, fmt.Errorf("attestation: deadline required")
	}
	att := &Attestation{
		Domain:     PriceDomainV1,
		ChainID:    chainID,
		Collection: collection,
		Price:      new(big.Int).Set(price),
		Deadline:   deadline,
	}
	if len(signature) > 0 {
		att.Signature = append([]byte(nil), signature...)
	}
	return att, nil
}

// CanonicalMessage renders the canonical message used for signature
// verification. The encoding is pinned: changing any separator or field
// order invalidates previously issued attestations.
func (a *Attestation) CanonicalMessage() (string, error) {
	if a == nil {
		return "", fmt.Errorf("attestation not initialised")
	}
	domain := strings.TrimSpace(a.Domain)
	if domain == "" {
		domain = PriceDomainV1
	}
	if a.Price == nil || a.Price.Sign() <= 0 {
		return "", fmt.Errorf("attestation: price required")
	}
	if a.Deadline <= 0 {
		return "", fmt.Errorf("attestation: deadline required")
	}
	builder := strings.Builder{}
	builder.WriteString(strings.ToUpper(domain))
	builder.WriteString("|chain=")
	builder.WriteString(fmt.Sprintf("%d", a.ChainID))
	builder.WriteString("|collection=0x")
	builder.WriteString(hex.EncodeToString(a.Collection[:]))
	builder.WriteString("|price=")
	builder.WriteString(a.Price.String())
	builder.WriteString("|deadline=")
	builder.WriteString(fmt.Sprintf("%d", a.Deadline))
	return builder.String(), nil
}

// Hash computes the keccak256 digest of the canonical message.
func (a *Attestation) Hash() ([]byte, error) {
	message, err := a.CanonicalMessage()
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256([]byte(message)), nil
}

// Sign produces the compact signature for the attestation using the supplied
// oracle key and stores it on the attestation. Intended for the attester
// daemon and tests.
func (a *Attestation) Sign(key *repocrypto.PrivateKey) error {
	if key == nil {
		return fmt.Errorf("attestation: nil signing key")
	}
	hash, err := a.Hash()
	if err != nil {
		return err
	}
	sig, err := ethcrypto.Sign(hash, key.PrivateKey)
	if err != nil {
		return err
	}
	a.Signature = sig
	return nil
}
