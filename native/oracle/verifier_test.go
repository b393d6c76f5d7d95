package oracle

import (
	"errors"
	"math/big"
	"testing"

	"lienchain/crypto"
)

func signedAttestation(t *testing.T, key *crypto.PrivateKey, chainID uint64, collection [20]byte, price *big.Int, deadline int64) *Attestation {
	t.Helper()
	att, err := NewAttestation(chainID, collection, price, deadline, nil)
	if err != nil {
		t.Fatalf("new attestation: %v", err)
	}
	if err := att.Sign(key); err != nil {
		t.Fatalf("sign attestation: %v", err)
	}
	return att
}

func oracleAddress(t *testing.T, key *crypto.PrivateKey) [20]byte {
	t.Helper()
	var addr [20]byte
	copy(addr[:], key.PubKey().Address().Bytes())
	return addr
}

func TestVerifyRecoversConfiguredSigner(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	collection := [20]byte{0xaa}
	att := signedAttestation(t, key, 7, collection, big.NewInt(1_000), 500)

	verifier := NewVerifier(oracleAddress(t, key), 7, collection, big.NewInt(10_000))
	verifier.SetNowFunc(func() int64 { return 100 })

	signer, err := verifier.Verify(att)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if signer != oracleAddress(t, key) {
		t.Fatalf("unexpected signer: %x", signer)
	}
}

func TestVerifyDeadlineBoundaryIsExclusive(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	collection := [20]byte{0xaa}
	att := signedAttestation(t, key, 1, collection, big.NewInt(1_000), 100)

	verifier := NewVerifier(oracleAddress(t, key), 1, collection, nil)
	verifier.SetNowFunc(func() int64 { return 100 })
	if _, err := verifier.Verify(att); !errors.Is(err, ErrAttestationExpired) {
		t.Fatalf("expected expiry at deadline, got %v", err)
	}

	verifier.SetNowFunc(func() int64 { return 99 })
	if _, err := verifier.Verify(att); err != nil {
		t.Fatalf("expected success just before deadline, got %v", err)
	}
}

func TestVerifyAtUsesCallerTimestamp(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	collection := [20]byte{0xaa}
	att := signedAttestation(t, key, 1, collection, big.NewInt(1_000), 100)

	verifier := NewVerifier(oracleAddress(t, key), 1, collection, nil)
	verifier.SetNowFunc(func() int64 { return 1_000_000 })

	// The verifier's own clock is far past the deadline, but the caller's
	// snapshot governs.
	if _, err := verifier.Verify(att); !errors.Is(err, ErrAttestationExpired) {
		t.Fatalf("expected expiry on the verifier clock, got %v", err)
	}
	if _, err := verifier.VerifyAt(att, 50); err != nil {
		t.Fatalf("expected success at caller timestamp, got %v", err)
	}
	if _, err := verifier.VerifyAt(att, 100); !errors.Is(err, ErrAttestationExpired) {
		t.Fatalf("expected expiry at caller deadline, got %v", err)
	}
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	oracleKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	rogueKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	collection := [20]byte{0xaa}
	att := signedAttestation(t, rogueKey, 1, collection, big.NewInt(1_000), 500)

	verifier := NewVerifier(oracleAddress(t, oracleKey), 1, collection, nil)
	verifier.SetNowFunc(func() int64 { return 1 })
	if _, err := verifier.Verify(att); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature rejection, got %v", err)
	}
}

func TestVerifyRejectsTamperedPrice(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	collection := [20]byte{0xaa}
	att := signedAttestation(t, key, 1, collection, big.NewInt(1_000), 500)
	att.Price = big.NewInt(1)

	verifier := NewVerifier(oracleAddress(t, key), 1, collection, nil)
	verifier.SetNowFunc(func() int64 { return 1 })
	if _, err := verifier.Verify(att); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature rejection, got %v", err)
	}
}

func TestVerifyRejectsCrossChainReplay(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	collection := [20]byte{0xaa}
	att := signedAttestation(t, key, 2, collection, big.NewInt(1_000), 500)

	verifier := NewVerifier(oracleAddress(t, key), 1, collection, nil)
	verifier.SetNowFunc(func() int64 { return 1 })
	if _, err := verifier.Verify(att); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected cross-chain rejection, got %v", err)
	}
}

func TestVerifyCircuitBreaker(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	collection := [20]byte{0xaa}
	att := signedAttestation(t, key, 1, collection, big.NewInt(10_000), 500)

	verifier := NewVerifier(oracleAddress(t, key), 1, collection, big.NewInt(10_000))
	verifier.SetNowFunc(func() int64 { return 1 })
	if _, err := verifier.Verify(att); !errors.Is(err, ErrPriceTooHigh) {
		t.Fatalf("expected price cap rejection at the boundary, got %v", err)
	}

	verifier.SetMaxPrice(big.NewInt(10_001))
	if _, err := verifier.Verify(att); err != nil {
		t.Fatalf("expected success below cap, got %v", err)
	}
}
