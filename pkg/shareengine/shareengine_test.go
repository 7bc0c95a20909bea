package shareengine

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

func randomSecret(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func TestSplitReconstructAnyTwoSubset(t *testing.T) {
	secret := randomSecret(32)
	coeffs := randomSecret(32)
	shares, err := Split(secret, coeffs)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(shares) != MaxShareholders {
		t.Fatalf("expected %d shares, got %d", MaxShareholders, len(shares))
	}

	for i := 0; i < len(shares); i++ {
		for j := i + 1; j < len(shares); j++ {
			got, err := Reconstruct([]Share{shares[i], shares[j]})
			if err != nil {
				t.Fatalf("Reconstruct(%d,%d): %v", i, j, err)
			}
			if !bytes.Equal(got, secret) {
				t.Fatalf("Reconstruct(%d,%d) mismatch: got %x want %x", i, j, got, secret)
			}
		}
	}
}

func TestReconstructFailsWithOneShare(t *testing.T) {
	secret := randomSecret(32)
	coeffs := randomSecret(32)
	shares, _ := Split(secret, coeffs)

	if _, err := Reconstruct(shares[:1]); err != ErrNotEnoughShares {
		t.Fatalf("expected ErrNotEnoughShares, got %v", err)
	}
}

func TestReconstructRejectsDuplicateX(t *testing.T) {
	secret := randomSecret(32)
	coeffs := randomSecret(32)
	shares, _ := Split(secret, coeffs)

	if _, err := Reconstruct([]Share{shares[0], shares[0]}); err != ErrDuplicateX {
		t.Fatalf("expected ErrDuplicateX, got %v", err)
	}
}

func TestSplitWithThreeOrMoreAlsoReconstructs(t *testing.T) {
	secret := randomSecret(32)
	coeffs := randomSecret(32)
	shares, _ := Split(secret, coeffs)

	got, err := Reconstruct(shares[:4])
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("mismatch with 4-share reconstruction")
	}
}

func TestArbitraryDataLength(t *testing.T) {
	secret := randomSecret(512)
	coeffs := randomSecret(512)
	shares, err := Split(secret, coeffs)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	got, err := Reconstruct([]Share{shares[2], shares[4]})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("512-byte arbitrary-data reconstruction mismatch")
	}
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	secret := randomSecret(32)
	coeffs := randomSecret(32)
	shares, _ := Split(secret, coeffs)

	key := DeriveShareKey("1234")
	var iv [cryptokit.AESBlockSize]byte
	_, _ = rand.Read(iv[:])

	wrapped, err := Wrap(shares[0], key, iv)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	unwrapped, err := Unwrap(wrapped, key)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(unwrapped.Y, shares[0].Y) || unwrapped.X != shares[0].X {
		t.Fatalf("unwrap mismatch")
	}
}

func TestWrapUnwrapTamperedMACFails(t *testing.T) {
	secret := randomSecret(32)
	coeffs := randomSecret(32)
	shares, _ := Split(secret, coeffs)

	key := DeriveShareKey("1234")
	var iv [cryptokit.AESBlockSize]byte
	_, _ = rand.Read(iv[:])

	wrapped, err := Wrap(shares[2], key, iv)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	// Tamper with one byte of the ciphertext (scenario S7: "swapping one
	// byte of share 3's ciphertext").
	wrapped.Ciphertext[0] ^= 0xFF

	if _, err := Unwrap(wrapped, key); err != ErrShareMacInvalid {
		t.Fatalf("expected ErrShareMacInvalid, got %v", err)
	}
}

func TestScenarioS7SplitWrapUnwrapReconstruct(t *testing.T) {
	entropy := make([]byte, 32) // 00...00
	coeffs := randomSecret(32)
	shares, err := Split(entropy, coeffs)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	key := DeriveShareKey("0000")
	wrapped := make([]WrappedShare, len(shares))
	for i, s := range shares {
		var iv [cryptokit.AESBlockSize]byte
		_, _ = rand.Read(iv[:])
		w, err := Wrap(s, key, iv)
		if err != nil {
			t.Fatalf("Wrap(%d): %v", i, err)
		}
		wrapped[i] = w
	}

	share1, err := Unwrap(wrapped[0], key)
	if err != nil {
		t.Fatalf("Unwrap(1): %v", err)
	}
	share3, err := Unwrap(wrapped[2], key)
	if err != nil {
		t.Fatalf("Unwrap(3): %v", err)
	}
	got, err := Reconstruct([]Share{share1, share3})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !bytes.Equal(got, entropy) {
		t.Fatalf("reconstructed entropy mismatch")
	}

	wrapped[2].Ciphertext[0] ^= 0x01
	if _, err := Unwrap(wrapped[2], key); err != ErrShareMacInvalid {
		t.Fatalf("expected ErrShareMacInvalid after tamper, got %v", err)
	}
}
