package cryptokit

import (
	"github.com/tyler-smith/go-bip39"
)

// NewMnemonic generates a fresh BIP-39 mnemonic for the given entropy bit
// length (128/160/192/224/256), grounded on hdwallet.go's NewMnemonic.
func NewMnemonic(bits int) (string, error) {
	if bits < 128 || bits > 256 || bits%32 != 0 {
		return "", ErrInvalidEntropyBits
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// MnemonicFromEntropy deterministically renders entropy (16/20/24/28/32
// bytes) as its BIP-39 mnemonic, used by the "create wallet" flow when the
// device itself drew the entropy (spec §4.6 step 1-2).
func MnemonicFromEntropy(entropy []byte) (string, error) {
	return bip39.NewMnemonic(entropy)
}

// EntropyFromMnemonic is the inverse of MnemonicFromEntropy.
func EntropyFromMnemonic(mnemonic string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.EntropyFromMnemonic(mnemonic)
}

// ValidateMnemonic reports whether mnemonic is well-formed (correct word
// list membership and checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives the 64-byte BIP-39 seed via
// PBKDF2-HMAC-SHA512(password=mnemonic, salt="mnemonic"+passphrase,
// iterations=2048), per spec §4.2.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if mnemonic == "" {
		return nil, ErrInvalidMnemonic
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
}
