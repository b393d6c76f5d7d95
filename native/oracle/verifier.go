package oracle

import (
	"errors"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrAttestationExpired marks attestations used at or past their deadline.
	ErrAttestationExpired = errors.New("oracle: attestation expired")
	// ErrSignatureInvalid marks malformed signatures, failed recovery or a
	// recovered signer that does not match the configured oracle.
	ErrSignatureInvalid = errors.New("oracle: signature invalid")
	// ErrPriceTooHigh is the circuit breaker for implausible price reports.
	ErrPriceTooHigh = errors.New("oracle: price above acceptable maximum")

	errNilAttestation = errors.New("oracle: attestation required")
	errNoOracle       = errors.New("oracle: signer address not configured")
)

// Verifier validates externally signed price attestations before borrows are
// admitted. The configured chain identifier and collection address pin the
// signing domain; the maximum price acts as a circuit breaker against
// manipulated or fat-fingered reports.
type Verifier struct {
	oracle     [20]byte
	chainID    uint64
	collection [20]byte
	maxPrice   *big.Int
	nowFn      func() int64
}

// NewVerifier constructs a verifier trusting the given oracle signer.
func NewVerifier(oracle [20]byte, chainID uint64, collection [20]byte, maxPrice *big.Int) *Verifier {
	v := &Verifier{
		oracle:     oracle,
		chainID:    chainID,
		collection: collection,
		nowFn:      func() int64 { return time.Now().Unix() },
	}
	if maxPrice != nil {
		v.maxPrice = new(big.Int).Set(maxPrice)
	}
	return v
}

// SetNowFunc overrides the time source used for deadline checks. Primarily
// intended for tests to provide deterministic timestamps.
func (v *Verifier) SetNowFunc(now func() int64) {
	if now == nil {
		v.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	v.nowFn = now
}

// SetMaxPrice updates the circuit breaker threshold. A nil value disables it.
func (v *Verifier) SetMaxPrice(maxPrice *big.Int) {
	if maxPrice == nil {
		v.maxPrice = nil
		return
	}
	v.maxPrice = new(big.Int).Set(maxPrice)
}

// Verify checks the attestation against the configured oracle and returns
// the recovered signer address, reading the verifier's own clock for the
// deadline check.
func (v *Verifier) Verify(att *Attestation) ([20]byte, error) {
	if v == nil {
		return [20]byte{}, errNoOracle
	}
	return v.VerifyAt(att, v.nowFn())
}

// VerifyAt is Verify with a caller-supplied timestamp. Engines pass the
// single snapshot their operation runs under so the deadline check cannot
// straddle a clock tick. The deadline boundary is exclusive: an attestation
// presented exactly at its deadline is already expired.
func (v *Verifier) VerifyAt(att *Attestation, now int64) ([20]byte, error) {
	var zero [20]byte
	if v == nil {
		return zero, errNoOracle
	}
	if att == nil {
		return zero, errNilAttestation
	}
	if att.Price == nil || att.Price.Sign() <= 0 {
		return zero, errNilAttestation
	}
	if now >= att.Deadline {
		return zero, ErrAttestationExpired
	}
	if v.maxPrice != nil && att.Price.Cmp(v.maxPrice) >= 0 {
		return zero, ErrPriceTooHigh
	}
	if att.ChainID != v.chainID || att.Collection != v.collection {
		return zero, ErrSignatureInvalid
	}
	if len(att.Signature) != 65 {
		return zero, ErrSignatureInvalid
	}
	hash, err := att.Hash()
	if err != nil {
		return zero, err
	}
	pubKey, err := ethcrypto.SigToPub(hash, att.Signature)
	if err != nil {
		return zero, ErrSignatureInvalid
	}
	recovered := ethcrypto.PubkeyToAddress(*pubKey)
	if recovered != ethcommon.BytesToAddress(v.oracle[:]) {
		return zero, ErrSignatureInvalid
	}
	return [20]byte(recovered), nil
}
